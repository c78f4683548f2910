package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
)

// tesseractEngine shells out to the tesseract binary in TSV mode and
// regroups word boxes into lines. It is the offline fallback when the
// recognition sidecar is not running.
type tesseractEngine struct {
	binary    string
	languages string
}

func newTesseractEngine(cfg Config) *tesseractEngine {
	langs := cfg.Languages
	if langs == "" {
		langs = "chi_sim+eng"
	}
	binary := cfg.TesseractPath
	if binary == "" {
		binary = "tesseract"
	}
	return &tesseractEngine{binary: binary, languages: langs}
}

func (e *tesseractEngine) Name() string { return "tesseract" }

func (e *tesseractEngine) Recognize(ctx context.Context, img *image.RGBA) ([]TextLine, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	// PSM 6: assume a single uniform block of text, which matches a
	// cropped chat region better than full page analysis.
	cmd := exec.CommandContext(ctx, e.binary, "stdin", "stdout", "-l", e.languages, "--psm", "6", "tsv")
	cmd.Stdin = &in

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("tesseract: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("tesseract: %w", err)
	}

	return parseTSV(string(out)), nil
}

// tsvWord is one level-5 row of tesseract TSV output.
type tsvWord struct {
	block, par, line int
	box              image.Rectangle
	conf             float64
	text             string
}

// parseTSV converts tesseract TSV output into line-grouped results.
// Word confidences are 0-100; line confidence is the word average on
// the 0-1 scale.
func parseTSV(out string) []TextLine {
	var words []tsvWord
	for i, row := range strings.Split(out, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}

		level, _ := strconv.Atoi(cols[0])
		if level != 5 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		block, _ := strconv.Atoi(cols[2])
		par, _ := strconv.Atoi(cols[3])
		line, _ := strconv.Atoi(cols[4])
		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		words = append(words, tsvWord{
			block: block, par: par, line: line,
			box:  image.Rect(left, top, left+width, top+height),
			conf: conf / 100,
			text: text,
		})
	}

	var lines []TextLine
	var cur []tsvWord
	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, 0, len(cur))
		box := cur[0].box
		sum := 0.0
		for _, w := range cur {
			parts = append(parts, w.text)
			box = box.Union(w.box)
			sum += w.conf
		}
		lines = append(lines, TextLine{
			Text:       strings.Join(parts, " "),
			Box:        box,
			Confidence: sum / float64(len(cur)),
		})
		cur = cur[:0]
	}

	for _, w := range words {
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			if w.block != prev.block || w.par != prev.par || w.line != prev.line {
				flush()
			}
		}
		cur = append(cur, w)
	}
	flush()

	return lines
}
