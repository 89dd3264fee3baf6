// Package templates holds the full-page compositions. Every variant is a pure
// function of the record, the settings and the final flag.
package templates

import (
	"strings"

	"resumekit/internal/layout"
	"resumekit/internal/resume"
)

// Variant describes one template.
type Variant struct {
	ID           resume.TemplateID      `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	DefaultTheme string                 `json:"defaultTheme"`
	Font         layout.FontRequirement `json:"font"`
	Scale        layout.Scale           `json:"-"`

	compose func(c composition) *layout.Node
}

// composition is the normalized input handed to a variant's compose func.
type composition struct {
	variant  Variant
	record   resume.Record
	settings resume.Settings
	theme    layout.Theme
}

func (c composition) profile() *layout.Node {
	return layout.Profile(c.theme, c.record.Profile)
}

// sections renders the kinds in order.
func (c composition) sections(kinds []resume.SectionKind) []*layout.Node {
	out := make([]*layout.Node, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, layout.RenderSection(k, c.theme, c.record, c.settings))
	}
	return out
}

// Render builds the LayoutTree of the variant.
func (v Variant) Render(rec resume.Record, s resume.Settings, isFinal bool) *layout.Document {
	s = s.Normalize()
	theme := layout.Theme{
		Scale:    v.Scale,
		Color:    v.themeColor(s),
		FontSize: s.FontSize,
		Final:    isFinal,
	}
	font := v.Font
	if s.FontFamily != "" {
		font.Family = s.FontFamily
	}

	title := strings.TrimSpace(rec.Profile.Name)
	if title == "" {
		title = "Resume"
	}
	page := v.compose(composition{variant: v, record: rec, settings: s, theme: theme})
	page.Style = page.Style.Merge(layout.Style{
		"color":       layout.DefaultFontColor,
		"font-size":   theme.Scale.Body(s.FontSize),
		"font-family": "var(--resume-font)",
	})
	return &layout.Document{
		Title:      title,
		Author:     strings.TrimSpace(rec.Profile.Name),
		Template:   v.ID,
		Size:       s.DocumentSize,
		Font:       font,
		FontSizePt: s.FontSize * theme.Scale.BodyRatio,
		ThemeColor: theme.Color,
		Final:      isFinal,
		Page:       page,
	}
}

func (v Variant) themeColor(s resume.Settings) string {
	if s.ThemeColor != "" {
		return s.ThemeColor
	}
	return v.DefaultTheme
}

var (
	robotoFont     = layout.FontRequirement{Family: "Roboto", Weights: []int{400, 700}}
	sourceSansFont = layout.FontRequirement{Family: "Source Sans Pro", Weights: []int{400, 600, 700}}
)

var registry = []Variant{
	{
		ID:           resume.TemplateClassic,
		Name:         "Classic",
		Description:  "Single column, sections in the configured order.",
		DefaultTheme: layout.DefaultFontColor,
		Font:         robotoFont,
		Scale:        layout.Standard,
		compose:      composeClassic,
	},
	{
		ID:           resume.TemplateSidebarRight,
		Name:         "Two Column",
		Description:  "Experience on the left, skills in a right sidebar.",
		DefaultTheme: "#2563eb",
		Font:         sourceSansFont,
		Scale:        layout.Standard,
		compose:      composeSidebarRight,
	},
	{
		ID:           resume.TemplateSidebarLeft,
		Name:         "Modern",
		Description:  "Framed page with a tinted left sidebar.",
		DefaultTheme: "#0f766e",
		Font:         sourceSansFont,
		Scale:        layout.Standard,
		compose:      composeSidebarLeft,
	},
	{
		ID:           resume.TemplateSinglePage,
		Name:         "Single Page",
		Description:  "Classic sections at a compact density.",
		DefaultTheme: layout.DefaultFontColor,
		Font:         sourceSansFont,
		Scale:        layout.Compact,
		compose:      composeSinglePage,
	},
	{
		ID:           resume.TemplateWeb,
		Name:         "Web",
		Description:  "Two to one grid with a configurable column partition.",
		DefaultTheme: "#1f2937",
		Font:         robotoFont,
		Scale:        layout.Standard,
		compose:      composeWeb,
	},
}

// All lists the variants in selector order.
func All() []Variant {
	out := make([]Variant, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a variant by id.
func Lookup(id resume.TemplateID) (Variant, bool) {
	id = resume.TemplateID(strings.ToUpper(strings.TrimSpace(string(id))))
	for _, v := range registry {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Resolve is Lookup with the classic variant as fallback.
func Resolve(id resume.TemplateID) Variant {
	if v, ok := Lookup(id); ok {
		return v
	}
	return registry[0]
}

// Render resolves the snapshot's template and renders it.
func Render(snap resume.Snapshot, isFinal bool) *layout.Document {
	return Resolve(snap.Template()).Render(snap.Resume, snap.Settings, isFinal)
}
