package render

import (
	"fmt"
	"slices"
	"strings"

	"resumekit/internal/layout"
)

// FallbackStack is used after the requested family and instead of it when the
// family is unavailable.
const FallbackStack = "Helvetica, Arial, sans-serif"

// FontFace is a web font file the page can load.
type FontFace struct {
	Family string `mapstructure:"family" json:"family"`
	Weight int    `mapstructure:"weight" json:"weight"`
	URL    string `mapstructure:"url" json:"url"`
}

// FontBook 记录运行环境可用的字体族。
type FontBook struct {
	families map[string]string
	faces    []FontFace
}

// NewFontBook registers installed families plus families provided by faces.
func NewFontBook(families []string, faces ...FontFace) *FontBook {
	b := &FontBook{families: map[string]string{}}
	for _, f := range families {
		b.add(f)
	}
	for _, face := range faces {
		if strings.TrimSpace(face.URL) == "" {
			continue
		}
		b.add(face.Family)
		b.faces = append(b.faces, face)
	}
	return b
}

func (b *FontBook) add(family string) {
	family = strings.TrimSpace(family)
	if family == "" {
		return
	}
	b.families[strings.ToLower(family)] = family
}

// Has reports whether family is available, ignoring case.
func (b *FontBook) Has(family string) bool {
	if b == nil {
		return false
	}
	_, ok := b.families[strings.ToLower(strings.TrimSpace(family))]
	return ok
}

// Families lists the available families sorted by name.
func (b *FontBook) Families() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.families))
	for _, f := range b.families {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// FontChoice is the outcome of resolving a font requirement.
type FontChoice struct {
	Stack    string
	Faces    []FontFace
	Fallback bool
	Warning  string
}

// Resolve picks the CSS font stack for req. A missing family is never an
// error: the fallback stack is used and a warning returned.
func (b *FontBook) Resolve(req layout.FontRequirement) FontChoice {
	family := strings.TrimSpace(req.Family)
	if family == "" || !b.Has(family) {
		return FontChoice{
			Stack:    FallbackStack,
			Fallback: true,
			Warning:  fmt.Sprintf("font %q is not available, using %s", family, FallbackStack),
		}
	}
	name := b.families[strings.ToLower(family)]
	var faces []FontFace
	for _, face := range b.faces {
		if strings.EqualFold(face.Family, family) && weightWanted(req.Weights, face.Weight) {
			faces = append(faces, face)
		}
	}
	return FontChoice{Stack: quoteFamily(name) + ", " + FallbackStack, Faces: faces}
}

func weightWanted(weights []int, w int) bool {
	return len(weights) == 0 || w == 0 || slices.Contains(weights, w)
}

func quoteFamily(family string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '\\', ';', '{', '}', '<', '>':
			return -1
		}
		return r
	}, family)
	return `"` + clean + `"`
}
