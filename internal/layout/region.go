// Package layout segments a captured window frame into semantic zones:
// title bar, chat transcript, input box, and the optional member panel.
//
// Segmentation is heuristic and confidence-scored. A region that cannot
// be located with enough confidence is omitted from the result rather
// than guessed; an empty result means "layout unknown this cycle" and
// is an expected outcome, not an error.
package layout

import "image"

// RegionName identifies a semantic zone within a frame.
type RegionName string

const (
	// RegionTitle is the title bar strip carrying the contact name.
	RegionTitle RegionName = "title"
	// RegionTranscript is the chat message area.
	RegionTranscript RegionName = "transcript"
	// RegionInput is the compose box at the bottom.
	RegionInput RegionName = "input"
	// RegionMemberPanel is the optional right-hand member list.
	RegionMemberPanel RegionName = "member_panel"
)

// Region is one classified zone.
type Region struct {
	Name RegionName

	// Bounds is relative to the frame, not the screen.
	Bounds image.Rectangle

	// Confidence in [0, 1].
	Confidence float64

	// Heuristic names the signal that produced the region
	// ("edge-scan", "band-persistence", "cached").
	Heuristic string
}

// Layout maps region names to resolved regions. Partial maps are
// normal; an empty map means no region cleared the threshold.
type Layout map[RegionName]Region

// Has reports whether the named region resolved this cycle.
func (l Layout) Has(name RegionName) bool {
	_, ok := l[name]
	return ok
}

// pickRegion resolves two overlapping candidates for the same name:
// higher confidence wins, exact ties prefer the smaller rectangle.
func pickRegion(a, b Region) Region {
	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return a
		}
		return b
	}
	if area(a.Bounds) <= area(b.Bounds) {
		return a
	}
	return b
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// Hint is a versioned layout cache owned by the monitor loop and passed
// back in on the next cycle. It lets the classifier skip full
// re-segmentation while the window geometry is stable.
type Hint struct {
	// Version increments every time full segmentation runs.
	Version uint64

	// FrameW and FrameH are the dimensions the hint was computed for.
	FrameW, FrameH int

	// Boundary positions from the last full segmentation.
	ChatListX int
	TitleY    int
	InputY    int
	MemberX   int // 0 when no member panel was found

	// Regions is the layout produced alongside the boundaries.
	Regions Layout
}
