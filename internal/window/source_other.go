//go:build !windows

package window

import "context"

// stubSource reports capture as unavailable. WeChat and QQ desktop
// clients are Windows applications; other platforms run pryd only for
// development and tests, which inject their own Source.
type stubSource struct{}

// NewSource returns the platform frame source.
func NewSource() (Source, error) {
	return &stubSource{}, nil
}

func (s *stubSource) Resolve(ctx context.Context, target Target) (Handle, error) {
	return Handle{}, ErrNotSupported
}

func (s *stubSource) Capture(ctx context.Context, h Handle) (*Frame, error) {
	return nil, ErrNotSupported
}
