package tracker

import (
	"errors"
	"math"
)

// ErrEmptyLayout indicates the host reported no measurable page height.
var ErrEmptyLayout = errors.New("page height is zero")

// Layout is a snapshot of the document metrics a browser exposes. Missing
// measurements are reported as 0.
type Layout struct {
	BodyScrollHeight float64 `json:"bodyScrollHeight"`
	RootScrollHeight float64 `json:"rootScrollHeight"`
	BodyOffsetHeight float64 `json:"bodyOffsetHeight"`
	RootOffsetHeight float64 `json:"rootOffsetHeight"`
	BodyClientHeight float64 `json:"bodyClientHeight"`
	RootClientHeight float64 `json:"rootClientHeight"`
	InnerHeight      float64 `json:"innerHeight"`
	PageYOffset      float64 `json:"pageYOffset"`
	RootScrollTop    float64 `json:"rootScrollTop"`
	RootClientTop    float64 `json:"rootClientTop"`
}

// PageHeight is the largest of the height measurements, since hosts disagree
// about which one reflects the full document.
func PageHeight(l Layout) float64 {
	return max(
		l.BodyScrollHeight, l.RootScrollHeight,
		l.BodyOffsetHeight, l.RootOffsetHeight,
		l.BodyClientHeight, l.RootClientHeight,
	)
}

// ViewportHeight returns the first available of window inner height, root
// client height and body client height.
func ViewportHeight(l Layout) float64 {
	return firstNonZero(l.InnerHeight, l.RootClientHeight, l.BodyClientHeight)
}

// ScrollPosition is the vertical offset already scrolled, corrected by the
// root element's client top.
func ScrollPosition(l Layout) float64 {
	return firstNonZero(l.PageYOffset, l.RootScrollTop) - l.RootClientTop
}

// ScrollPercent reports how far down the bottom edge of the viewport sits,
// rounded up. Pages shorter than the viewport yield values above 100.
func ScrollPercent(l Layout) (int, error) {
	height := PageHeight(l)
	if height <= 0 {
		return 0, ErrEmptyLayout
	}
	return int(math.Ceil((ScrollPosition(l) + ViewportHeight(l)) / height * 100)), nil
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
