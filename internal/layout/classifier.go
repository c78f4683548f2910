package layout

import (
	"image"

	"pryd/internal/window"
)

// Fallback holds the percentage defaults a profile supplies for when
// edge detection finds nothing plausible.
type Fallback struct {
	ChatListPct   float64
	MemberPanePct float64
	TitleBarPct   float64
	InputBarPct   float64
}

// Config holds classifier thresholds.
type Config struct {
	// MinConfidence is the floor below which regions are omitted.
	MinConfidence float64

	// EdgeThreshold is the minimum brightness step treated as a
	// pane divider.
	EdgeThreshold float64

	// ResizeTolerancePx is how far the frame may drift from a cached
	// hint before full re-segmentation.
	ResizeTolerancePx int

	// Fallback supplies the profile percentage defaults.
	Fallback Fallback
}

// Classifier segments frames into regions.
type Classifier struct {
	cfg     Config
	version uint64
}

// New creates a classifier with the given thresholds.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// fallbackConfidence is assigned to boundaries that came from profile
// percentages instead of a detected edge. It sits below the usual
// minimum confidence so purely guessed layouts are omitted.
const fallbackConfidence = 0.35

// boundary is one detected (or guessed) separator position.
type boundary struct {
	pos        int
	score      float64
	confidence float64
	fromEdge   bool
}

// Classify segments the frame. When the hint still matches the frame
// the cached layout is returned unchanged (cheap path); otherwise full
// segmentation runs and a fresh hint is produced. An empty layout with
// a nil hint means no region cleared the confidence floor.
func (c *Classifier) Classify(frame *window.Frame, hint *Hint) (Layout, *Hint) {
	g := newGrayPlane(frame.Img)

	if hint != nil && c.hintValid(g, hint) {
		return hint.Regions, hint
	}

	return c.segment(g)
}

// hintValid rechecks a cached layout against the new frame: the
// dimensions must match within tolerance and the divider/title edges
// must still be present where the hint put them.
func (c *Classifier) hintValid(g *grayPlane, hint *Hint) bool {
	tol := c.cfg.ResizeTolerancePx
	if abs(g.w-hint.FrameW) > tol || abs(g.h-hint.FrameH) > tol {
		return false
	}
	if len(hint.Regions) == 0 {
		return false
	}

	k := maxInt(8, g.w/100)
	y1, y2 := int(0.12*float64(g.h)), int(0.88*float64(g.h))

	left := g.rectMean(hint.ChatListX-k, y1, hint.ChatListX, y2)
	right := g.rectMean(hint.ChatListX+1, y1, hint.ChatListX+k+1, y2)
	if absFloat(left-right) < 0.5*c.cfg.EdgeThreshold {
		return false
	}

	// The stored title boundary sits a few rows below the separator
	// line, so check a small window above it.
	x2 := int(0.95 * float64(g.w))
	for y := hint.TitleY - 10; y <= hint.TitleY+2; y++ {
		if c.rowGradient(g, y, hint.ChatListX+20, x2) >= 0.5*c.cfg.EdgeThreshold {
			return true
		}
	}
	return false
}

// rowGradient is the mean absolute vertical step at row y over [x1,x2).
func (c *Classifier) rowGradient(g *grayPlane, y, x1, x2 int) float64 {
	if y < 1 || y >= g.h {
		return 0
	}
	x1 = clampInt(x1, 0, g.w)
	x2 = clampInt(x2, 0, g.w)
	if x2 <= x1 {
		return 0
	}

	sum := 0.0
	for x := x1; x < x2; x++ {
		sum += absFloat(g.at(x, y) - g.at(x, y-1))
	}
	return sum / float64(x2-x1)
}

// segment runs full heuristic segmentation.
func (c *Classifier) segment(g *grayPlane) (Layout, *Hint) {
	w, h := g.w, g.h

	chatList := c.findChatListDivider(g)
	title := c.findTitleBoundary(g, chatList.pos)
	member := c.findMemberPanel(g)

	rightEdge := w - 10
	if member != nil {
		rightEdge = member.Bounds.Min.X - 5
	}
	input := c.findInputBoundary(g, chatList.pos, rightEdge)

	// Geometry sanity: an input line that crowds the title bar means
	// the scan latched onto a bubble edge, not the compose box.
	if input.pos <= title.pos+120 {
		input = c.fallbackInput(h)
	}
	if chatList.pos <= 80 || chatList.pos >= w-180 {
		chatList = c.fallbackChatList(w)
	}

	layout := make(Layout)

	titleRect := image.Rect(chatList.pos+2, 0, rightEdge, title.pos)
	if titleRect.Dx() > 50 && titleRect.Dy() > 10 {
		c.admit(layout, Region{
			Name:       RegionTitle,
			Bounds:     titleRect,
			Confidence: minFloat(title.confidence, chatList.confidence),
			Heuristic:  heuristicName(title.fromEdge),
		})
	}

	transcriptRect := image.Rect(chatList.pos+3, title.pos, rightEdge, input.pos)
	if transcriptRect.Dx() > 50 && transcriptRect.Dy() > 50 {
		c.admit(layout, Region{
			Name:       RegionTranscript,
			Bounds:     transcriptRect,
			Confidence: minFloat(chatList.confidence, minFloat(title.confidence, input.confidence)),
			Heuristic:  heuristicName(chatList.fromEdge && title.fromEdge && input.fromEdge),
		})
	}

	inputRect := image.Rect(chatList.pos+3, input.pos, rightEdge, h)
	if inputRect.Dx() > 50 && inputRect.Dy() > 10 {
		c.admit(layout, Region{
			Name:       RegionInput,
			Bounds:     inputRect,
			Confidence: minFloat(input.confidence, chatList.confidence),
			Heuristic:  heuristicName(input.fromEdge),
		})
	}

	if member != nil {
		c.admit(layout, *member)
	}

	if len(layout) == 0 {
		return layout, nil
	}

	c.version++
	memberX := 0
	if member != nil {
		memberX = member.Bounds.Min.X
	}
	return layout, &Hint{
		Version:   c.version,
		FrameW:    w,
		FrameH:    h,
		ChatListX: chatList.pos,
		TitleY:    title.pos,
		InputY:    input.pos,
		MemberX:   memberX,
		Regions:   layout,
	}
}

// admit adds a region if it clears the confidence floor, resolving
// overlaps against any candidate already holding the slot.
func (c *Classifier) admit(l Layout, r Region) {
	if r.Confidence < c.cfg.MinConfidence {
		return
	}
	if prev, ok := l[r.Name]; ok {
		r = pickRegion(prev, r)
	}
	l[r.Name] = r
}

// findChatListDivider locates the vertical boundary between the chat
// list and the conversation area by scanning for the strongest
// left/right brightness difference.
func (c *Classifier) findChatListDivider(g *grayPlane) boundary {
	w, h := g.w, g.h
	xMin, xMax := int(0.16*float64(w)), int(0.56*float64(w))
	y1, y2 := int(0.12*float64(h)), int(0.88*float64(h))
	k := maxInt(8, w/100)

	if xMax <= xMin+k+2 {
		return c.fallbackChatList(w)
	}

	scores := make([]float64, xMax-xMin)
	for x := xMin; x < xMax; x++ {
		if x-k < 0 || x+k+1 >= w {
			continue
		}
		left := g.rectMean(x-k, y1, x, y2)
		right := g.rectMean(x+1, y1, x+k+1, y2)
		scores[x-xMin] = absFloat(left - right)
	}

	scores = smooth(scores, 9)
	idx := argmax(scores)
	if idx < 0 {
		return c.fallbackChatList(w)
	}

	pos := xMin + idx
	score := scores[idx]

	minCL, maxCL := int(0.18*float64(w)), int(0.45*float64(w))
	if pos < minCL || pos > maxCL || score < c.cfg.EdgeThreshold {
		return c.fallbackChatList(w)
	}

	return boundary{pos: pos, score: score, confidence: c.edgeConfidence(score), fromEdge: true}
}

// findTitleBoundary locates the bottom of the title bar as the
// earliest strong horizontal separator in the top scan band. Median
// row statistics suppress spikes from avatars and text.
func (c *Classifier) findTitleBoundary(g *grayPlane, chatListX int) boundary {
	w, h := g.w, g.h
	x1 := minInt(w-2, chatListX+20)
	x2 := minInt(w-1, int(0.95*float64(w)))
	if x2 <= x1+10 {
		return c.fallbackTitle(h)
	}

	yStart, yEnd := int(0.03*float64(h)), int(0.20*float64(h))
	if yEnd <= yStart+5 {
		return c.fallbackTitle(h)
	}

	rowScores := make([]float64, yEnd-yStart)
	diffs := make([]float64, 0, x2-x1)
	for y := yStart; y < yEnd; y++ {
		if y < 1 {
			continue
		}
		diffs = diffs[:0]
		for x := x1; x < x2; x++ {
			diffs = append(diffs, absFloat(g.at(x, y)-g.at(x, y-1)))
		}
		rowScores[y-yStart] = median(diffs)
	}

	rowScores = smooth(rowScores, 7)
	cut := median(rowScores) + 0.6*stddev(rowScores)

	for i, v := range rowScores {
		if v >= cut && v >= c.cfg.EdgeThreshold {
			pos := int(clampFloat(float64(yStart+i+6), 0.045*float64(h), 0.10*float64(h)))
			return boundary{pos: pos, score: v, confidence: c.edgeConfidence(v), fromEdge: true}
		}
	}

	return c.fallbackTitle(h)
}

// findInputBoundary locates the top of the compose box as the lowest
// strong horizontal line in the bottom scan band. The 75th-percentile
// row statistic favors continuous lines over scattered characters.
func (c *Classifier) findInputBoundary(g *grayPlane, chatListX, rightEdge int) boundary {
	w, h := g.w, g.h
	x1 := minInt(w-2, chatListX+10)
	x2 := maxInt(x1+20, minInt(rightEdge, w-10))

	yStart, yEnd := int(0.55*float64(h)), int(0.94*float64(h))
	if yEnd <= yStart+5 || x2 <= x1 {
		return c.fallbackInput(h)
	}

	rowScores := make([]float64, yEnd-yStart)
	diffs := make([]float64, 0, x2-x1)
	for y := yStart; y < yEnd; y++ {
		diffs = diffs[:0]
		for x := x1; x < x2; x++ {
			diffs = append(diffs, absFloat(g.at(x, y)-g.at(x, y-1)))
		}
		rowScores[y-yStart] = percentile(diffs, 75)
	}

	rowScores = smooth(rowScores, 9)
	cut := median(rowScores) + stddev(rowScores)

	for i := len(rowScores) - 1; i >= 0; i-- {
		if rowScores[i] >= cut && rowScores[i] >= c.cfg.EdgeThreshold {
			pos := int(clampFloat(float64(yStart+i), 0.58*float64(h), 0.90*float64(h)))
			return boundary{pos: pos, score: rowScores[i], confidence: c.edgeConfidence(rowScores[i]), fromEdge: true}
		}
	}

	return c.fallbackInput(h)
}

// findMemberPanel looks for a right-hand vertical divider that holds
// across three separate height bands. Group chats show one; private
// chats usually do not, and absence is the normal outcome.
func (c *Classifier) findMemberPanel(g *grayPlane) *Region {
	w, h := g.w, g.h
	xMin, xMax := int(0.62*float64(w)), int(0.90*float64(w))
	k := maxInt(10, int(0.012*float64(w)))

	bands := [][2]float64{{0.20, 0.35}, {0.35, 0.55}, {0.55, 0.72}}

	var best *Region
	for x := xMin; x < xMax; x++ {
		if x-k < 0 || x+k+1 >= w {
			continue
		}

		minDiff, sumDiff := -1.0, 0.0
		for _, band := range bands {
			y1 := int(band[0] * float64(h))
			y2 := int(band[1] * float64(h))
			d := absFloat(g.rectMean(x-k, y1, x, y2) - g.rectMean(x+1, y1, x+k+1, y2))
			sumDiff += d
			if minDiff < 0 || d < minDiff {
				minDiff = d
			}
		}

		score := minDiff*0.7 + (sumDiff/float64(len(bands)))*0.3

		panelW := w - x
		if panelW < int(0.10*float64(w)) || panelW > int(0.30*float64(w)) {
			continue
		}
		if minDiff <= c.cfg.EdgeThreshold || score <= 1.25*c.cfg.EdgeThreshold {
			continue
		}

		cand := Region{
			Name:       RegionMemberPanel,
			Bounds:     image.Rect(x, 0, w, h),
			Confidence: c.edgeConfidence(score),
			Heuristic:  "band-persistence",
		}
		if best == nil {
			best = &cand
		} else {
			picked := pickRegion(*best, cand)
			best = &picked
		}
	}

	return best
}

// edgeConfidence maps a signal score to [0.5, 1): a score exactly at
// the threshold earns 0.5 and stronger edges approach 1.
func (c *Classifier) edgeConfidence(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + c.cfg.EdgeThreshold)
}

func heuristicName(fromEdge bool) string {
	if fromEdge {
		return "edge-scan"
	}
	return "fallback-pct"
}

func (c *Classifier) fallbackChatList(w int) boundary {
	return boundary{pos: int(float64(w) * c.cfg.Fallback.ChatListPct), confidence: fallbackConfidence}
}

func (c *Classifier) fallbackTitle(h int) boundary {
	return boundary{pos: int(float64(h) * c.cfg.Fallback.TitleBarPct), confidence: fallbackConfidence}
}

func (c *Classifier) fallbackInput(h int) boundary {
	pos := h - int(float64(h)*c.cfg.Fallback.InputBarPct) - 20
	return boundary{pos: pos, confidence: fallbackConfidence}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
