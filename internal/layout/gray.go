package layout

import (
	"image"
	"math"
	"sort"
)

// grayPlane is a luminance view of a frame with a summed-area table,
// so band means over arbitrary rectangles are O(1).
type grayPlane struct {
	w, h int
	pix  []float64 // row-major luminance
	sat  []float64 // (w+1)*(h+1) summed-area table
}

func newGrayPlane(img *image.RGBA) *grayPlane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	g := &grayPlane{
		w:   w,
		h:   h,
		pix: make([]float64, w*h),
		sat: make([]float64, (w+1)*(h+1)),
	}

	for y := 0; y < h; y++ {
		rowSum := 0.0
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r := float64(img.Pix[i])
			gc := float64(img.Pix[i+1])
			bl := float64(img.Pix[i+2])
			// ITU-R BT.601 luma weights.
			lum := 0.299*r + 0.587*gc + 0.114*bl

			g.pix[y*w+x] = lum
			rowSum += lum
			g.sat[(y+1)*(w+1)+(x+1)] = g.sat[y*(w+1)+(x+1)] + rowSum
		}
	}

	return g
}

func (g *grayPlane) at(x, y int) float64 {
	return g.pix[y*g.w+x]
}

// rectMean returns the mean luminance over [x1,x2) x [y1,y2).
// Out-of-range coordinates are clamped.
func (g *grayPlane) rectMean(x1, y1, x2, y2 int) float64 {
	x1 = clampInt(x1, 0, g.w)
	x2 = clampInt(x2, 0, g.w)
	y1 = clampInt(y1, 0, g.h)
	y2 = clampInt(y2, 0, g.h)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	s := g.sat
	w1 := g.w + 1
	total := s[y2*w1+x2] - s[y1*w1+x2] - s[y2*w1+x1] + s[y1*w1+x1]
	return total / float64((x2-x1)*(y2-y1))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// smooth applies a centered moving average of the given window.
func smooth(vals []float64, win int) []float64 {
	if win < 2 || len(vals) < win {
		return vals
	}

	out := make([]float64, len(vals))
	half := win / 2
	for i := range vals {
		lo := clampInt(i-half, 0, len(vals))
		hi := clampInt(i+half+1, 0, len(vals))
		sum := 0.0
		for _, v := range vals[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}

// percentile returns the p-th percentile (0-100) by nearest rank.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[clampInt(rank, 0, len(sorted)-1)]
}

// argmax returns the index of the largest value, or -1 for empty input.
func argmax(vals []float64) int {
	best := -1
	bestV := math.Inf(-1)
	for i, v := range vals {
		if v > bestV {
			best, bestV = i, v
		}
	}
	return best
}
