//go:build windows

package window

import (
	"context"
	"image"
	"sort"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procEnumWindows        = user32.NewProc("EnumWindows")
	procGetWindowTextW     = user32.NewProc("GetWindowTextW")
	procGetClassNameW      = user32.NewProc("GetClassNameW")
	procIsWindowVisible    = user32.NewProc("IsWindowVisible")
	procIsIconic           = user32.NewProc("IsIconic")
	procIsWindow           = user32.NewProc("IsWindow")
	procGetWindowRect      = user32.NewProc("GetWindowRect")
	procGetForegroundWnd   = user32.NewProc("GetForegroundWindow")
	procGetDesktopWindow   = user32.NewProc("GetDesktopWindow")
	procGetWindowDC        = user32.NewProc("GetWindowDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procSetProcessDPIAware = user32.NewProc("SetProcessDPIAware")

	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procDeleteDC               = gdi32.NewProc("DeleteDC")

	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
)

const (
	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// EnableHighDPIAwareness opts the process into physical-pixel
// coordinates so captured rectangles match screen content on scaled
// displays. Safe to call more than once.
func EnableHighDPIAwareness() {
	// PROCESS_SYSTEM_DPI_AWARE = 1; fall back to the Vista-era API.
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		procSetProcessDpiAwareness.Call(1)
		return
	}
	procSetProcessDPIAware.Call()
}

// gdiSource captures windows through the GDI screen DC.
type gdiSource struct{}

// NewSource returns the Windows frame source.
func NewSource() (Source, error) {
	EnableHighDPIAwareness()
	return &gdiSource{}, nil
}

type candidate struct {
	hwnd  uintptr
	title string
	class string
	rect  image.Rectangle
	// strategy records how the candidate matched: 0 class+title,
	// 1 class only, 2 title only. Lower is stronger.
	strategy int
}

// Resolve enumerates top-level windows and picks the best match:
// strongest strategy first, largest area within it.
func (s *gdiSource) Resolve(ctx context.Context, target Target) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	var candidates []candidate

	cb := windows.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1
		}

		title := windowText(hwnd)
		class := windowClass(hwnd)

		strategy := -1
		switch {
		case target.Class != "" && class == target.Class && target.Title != "" && title == target.Title:
			strategy = 0
		case target.Class != "" && class == target.Class:
			strategy = 1
		case target.Title != "" && title == target.Title:
			strategy = 2
		default:
			return 1
		}

		rect, ok := windowRect(hwnd)
		if !ok || !plausible(rect) {
			return 1
		}

		candidates = append(candidates, candidate{
			hwnd: hwnd, title: title, class: class, rect: rect, strategy: strategy,
		})
		return 1
	})

	procEnumWindows.Call(cb, 0)

	if len(candidates) == 0 {
		return Handle{}, ErrWindowGone
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].strategy != candidates[j].strategy {
			return candidates[i].strategy < candidates[j].strategy
		}
		ai := candidates[i].rect.Dx() * candidates[i].rect.Dy()
		aj := candidates[j].rect.Dx() * candidates[j].rect.Dy()
		return ai > aj
	})

	best := candidates[0]
	fg, _, _ := procGetForegroundWnd.Call()

	return Handle{
		HWND:       best.hwnd,
		Title:      best.title,
		Class:      best.class,
		Rect:       best.rect,
		Foreground: fg == best.hwnd,
	}, nil
}

// Capture blits the window's screen rectangle into an RGBA image. The
// GDI calls cannot be interrupted, so an overrun capture is abandoned
// to its goroutine and reported as a timeout.
func (s *gdiSource) Capture(ctx context.Context, h Handle) (*Frame, error) {
	alive, _, _ := procIsWindow.Call(h.HWND)
	if alive == 0 {
		return nil, ErrWindowGone
	}
	iconic, _, _ := procIsIconic.Call(h.HWND)
	if iconic != 0 {
		return nil, ErrWindowMinimized
	}

	rect, ok := windowRect(h.HWND)
	if !ok || !plausible(rect) {
		return nil, ErrWindowGone
	}

	type result struct {
		frame *Frame
		err   error
	}
	done := make(chan result, 1)

	go func() {
		img, err := blitScreenRegion(rect)
		if err != nil {
			done <- result{nil, err}
			return
		}
		done <- result{&Frame{Img: img, Rect: rect, CapturedAt: time.Now()}, nil}
	}()

	select {
	case <-ctx.Done():
		return nil, &CaptureError{Op: "blit", Err: ctx.Err()}
	case r := <-done:
		return r.frame, r.err
	}
}

// blitScreenRegion copies a screen rectangle via BitBlt + GetDIBits.
func blitScreenRegion(rect image.Rectangle) (*image.RGBA, error) {
	w, ht := rect.Dx(), rect.Dy()

	desktop, _, _ := procGetDesktopWindow.Call()
	screenDC, _, err := procGetWindowDC.Call(desktop)
	if screenDC == 0 {
		return nil, &CaptureError{Op: "GetWindowDC", Err: err}
	}
	defer procReleaseDC.Call(desktop, screenDC)

	memDC, _, err := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, &CaptureError{Op: "CreateCompatibleDC", Err: err}
	}
	defer procDeleteDC.Call(memDC)

	bmp, _, err := procCreateCompatibleBitmap.Call(screenDC, uintptr(w), uintptr(ht))
	if bmp == 0 {
		return nil, &CaptureError{Op: "CreateCompatibleBitmap", Err: err}
	}
	defer procDeleteObject.Call(bmp)

	prev, _, _ := procSelectObject.Call(memDC, bmp)
	defer procSelectObject.Call(memDC, prev)

	ok, _, err := procBitBlt.Call(
		memDC, 0, 0, uintptr(w), uintptr(ht),
		screenDC, uintptr(rect.Min.X), uintptr(rect.Min.Y), srcCopy,
	)
	if ok == 0 {
		return nil, &CaptureError{Op: "BitBlt", Err: err}
	}

	// Negative height requests top-down scanlines.
	info := bitmapInfo{Header: bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(w),
		Height:      -int32(ht),
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}

	buf := make([]byte, w*ht*4)
	lines, _, err := procGetDIBits.Call(
		memDC, bmp, 0, uintptr(ht),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&info)),
		dibRGBColors,
	)
	if lines == 0 {
		return nil, &CaptureError{Op: "GetDIBits", Err: err}
	}

	// BGRA to RGBA in place.
	img := image.NewRGBA(image.Rect(0, 0, w, ht))
	for i := 0; i+3 < len(buf); i += 4 {
		img.Pix[i+0] = buf[i+2]
		img.Pix[i+1] = buf[i+1]
		img.Pix[i+2] = buf[i+0]
		img.Pix[i+3] = 0xFF
	}

	return img, nil
}

func windowText(hwnd uintptr) string {
	var buf [512]uint16
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowClass(hwnd uintptr) string {
	var buf [256]uint16
	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowRect(hwnd uintptr) (image.Rectangle, bool) {
	var r winRect
	ok, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), true
}
