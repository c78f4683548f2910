package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
)

// httpEngine talks to a local recognition sidecar. The sidecar accepts
// a base64 PNG and returns line-level results:
//
//	POST {endpoint}  {"image": "<base64>", "languages": "chi_sim+eng"}
//	200              {"lines": [{"text": "...", "confidence": 0.97,
//	                             "box": [x1, y1, x2, y2]}]}
type httpEngine struct {
	endpoint  string
	languages string
	client    *http.Client
}

func newHTTPEngine(cfg Config) *httpEngine {
	return &httpEngine{
		endpoint:  cfg.Endpoint,
		languages: cfg.Languages,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *httpEngine) Name() string { return "http" }

type sidecarRequest struct {
	Image     string `json:"image"`
	Languages string `json:"languages,omitempty"`
}

type sidecarLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

type sidecarResponse struct {
	Lines []sidecarLine `json:"lines"`
	Error string        `json:"error,omitempty"`
}

func (e *httpEngine) Recognize(ctx context.Context, img *image.RGBA) ([]TextLine, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	body, err := json.Marshal(sidecarRequest{
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		Languages: e.languages,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sidecar returned %s", resp.Status)
	}

	var parsed sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode sidecar response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("sidecar: %s", parsed.Error)
	}

	lines := make([]TextLine, 0, len(parsed.Lines))
	for _, l := range parsed.Lines {
		lines = append(lines, TextLine{
			Text:       l.Text,
			Confidence: l.Confidence,
			Box:        image.Rect(l.Box[0], l.Box[1], l.Box[2], l.Box[3]),
		})
	}
	return lines, nil
}
