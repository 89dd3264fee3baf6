package layout

import (
	"math"
	"strconv"
)

const (
	DefaultFontColor = "#171717"
	MutedColor       = "#525252"
	RuleColor        = "#d4d4d4"
	DotEmptyColor    = "#d9d9d9"
)

// Scale maps named spacing steps to points and carries the type scale.
//
// Step n of the standard scale is 2n points: Space(1) = 2pt, Space(4) = 8pt,
// Space(8) = 16pt.
type Scale struct {
	Name string
	// Unit is the size of one step in points.
	Unit float64

	TitleSize   float64
	HeadingSize float64
	// BodyRatio scales the configured body font size.
	BodyRatio   float64
	BulletRatio float64
	SmallRatio  float64
	// GlyphWidth is the fixed width reserved for a bullet glyph, in steps.
	GlyphWidth float64
}

var Standard = Scale{
	Name:        "standard",
	Unit:        2,
	TitleSize:   20,
	HeadingSize: 12,
	BodyRatio:   1,
	BulletRatio: 1,
	SmallRatio:  0.85,
	GlyphWidth:  3,
}

// Compact 用于单页模板：更小的间距和字号。
var Compact = Scale{
	Name:        "compact",
	Unit:        1.5,
	TitleSize:   16,
	HeadingSize: 10.5,
	BodyRatio:   0.9,
	BulletRatio: 0.88,
	SmallRatio:  0.8,
	GlyphWidth:  3,
}

// Steps accepted by Space. Full is handled separately.
var steps = []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 5, 6, 8, 10, 12, 16, 20, 24}

// Full is the "full" spacing step.
const Full = -1

// Space converts a step to a CSS length. Steps between the named ones round
// up to the next named step.
func (s Scale) Space(step float64) string {
	if step == Full {
		return "100%"
	}
	for _, named := range steps {
		if step <= named {
			return Pt(named * s.Unit)
		}
	}
	return Pt(steps[len(steps)-1] * s.Unit)
}

// Body returns the body font size for a configured base size.
func (s Scale) Body(base float64) string { return Pt(base * s.BodyRatio) }

func (s Scale) Bullet(base float64) string { return Pt(base * s.BulletRatio) }

func (s Scale) Small(base float64) string { return Pt(base * s.SmallRatio) }

// Pt formats points with at most two decimals.
func Pt(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "pt"
}

var (
	FlexRow = Style{
		"display":        "flex",
		"flex-direction": "row",
	}
	FlexRowBetween = Style{
		"display":         "flex",
		"flex-direction":  "row",
		"justify-content": "space-between",
	}
	FlexCol = Style{
		"display":        "flex",
		"flex-direction": "column",
	}
)
