package resume

import (
	"maps"
	"math"
	"slices"
	"strings"
)

// DocumentSize is the physical page format.
type DocumentSize string

const (
	A4     DocumentSize = "A4"
	Letter DocumentSize = "LETTER"
)

// Normalize maps loose spellings ("Letter", "a4") onto the two supported
// sizes. Anything unrecognised becomes Letter.
func (s DocumentSize) Normalize() DocumentSize {
	if strings.EqualFold(strings.TrimSpace(string(s)), string(A4)) {
		return A4
	}
	return Letter
}

// TemplateID identifies a template variant ("A" … "E").
type TemplateID string

const (
	TemplateClassic      TemplateID = "A"
	TemplateSidebarRight TemplateID = "B"
	TemplateSidebarLeft  TemplateID = "C"
	TemplateSinglePage   TemplateID = "D"
	TemplateWeb          TemplateID = "E"
)

const (
	DefaultFontFamily = "Roboto"
	DefaultFontSize   = 11.0
)

// ColumnPartition assigns sections to the two columns of the web variant.
type ColumnPartition struct {
	Main    []SectionKind `json:"main"`
	Sidebar []SectionKind `json:"sidebar"`
}

// Settings 控制渲染外观，与简历内容无关。
type Settings struct {
	ThemeColor       string                 `json:"themeColor,omitempty"`
	FontFamily       string                 `json:"fontFamily"`
	FontSize         float64                `json:"fontSize"`
	DocumentSize     DocumentSize           `json:"documentSize"`
	FormsOrder       []SectionKind          `json:"formsOrder"`
	FormToShow       map[SectionKind]bool   `json:"formToShow"`
	FormToHeading    map[SectionKind]string `json:"formToHeading"`
	ShowBulletPoints map[SectionKind]bool   `json:"showBulletPoints"`
	SelectedTemplate TemplateID             `json:"selectedTemplate"`
	Columns          *ColumnPartition       `json:"columns,omitempty"`
}

// DefaultSettings mirrors the editor's initial state.
func DefaultSettings() Settings {
	return Settings{
		FontFamily:   DefaultFontFamily,
		FontSize:     DefaultFontSize,
		DocumentSize: Letter,
		FormsOrder:   slices.Clone(Kinds[:]),
		FormToShow: map[SectionKind]bool{
			WorkExperiences: true,
			Educations:      true,
			Projects:        true,
			Skills:          true,
			Custom:          false,
		},
		FormToHeading: map[SectionKind]string{
			WorkExperiences: "WORK EXPERIENCE",
			Educations:      "EDUCATION",
			Projects:        "PROJECT",
			Skills:          "SKILLS",
			Custom:          "CUSTOM SECTION",
		},
		ShowBulletPoints: map[SectionKind]bool{
			WorkExperiences: true,
			Educations:      true,
			Projects:        true,
			Skills:          true,
			Custom:          true,
		},
		SelectedTemplate: TemplateClassic,
	}
}

// Normalize returns a copy in which FormsOrder holds every known kind
// exactly once: invalid kinds and duplicates are dropped and missing kinds
// are appended in canonical order. Invalid kinds are also dropped from the
// per-section maps and the column partition. Size and font size fall back
// to defaults.
func (s Settings) Normalize() Settings {
	out := s.Clone()

	seen := make(map[SectionKind]bool, len(Kinds))
	order := make([]SectionKind, 0, len(Kinds))
	for _, k := range s.FormsOrder {
		if !k.Valid() || seen[k] {
			continue
		}
		seen[k] = true
		order = append(order, k)
	}
	for _, k := range Kinds {
		if !seen[k] {
			order = append(order, k)
		}
	}
	out.FormsOrder = order

	deleteInvalidKinds(out.FormToShow)
	deleteInvalidKinds(out.FormToHeading)
	deleteInvalidKinds(out.ShowBulletPoints)
	if out.Columns != nil {
		out.Columns.Main = slices.DeleteFunc(out.Columns.Main, invalidKind)
		out.Columns.Sidebar = slices.DeleteFunc(out.Columns.Sidebar, invalidKind)
	}

	out.DocumentSize = s.DocumentSize.Normalize()
	if !(out.FontSize > 0) || math.IsInf(out.FontSize, 1) {
		out.FontSize = DefaultFontSize
	}
	out.ThemeColor = strings.TrimSpace(out.ThemeColor)
	out.FontFamily = strings.TrimSpace(out.FontFamily)
	return out
}

func invalidKind(k SectionKind) bool { return !k.Valid() }

func deleteInvalidKinds[V any](m map[SectionKind]V) {
	maps.DeleteFunc(m, func(k SectionKind, _ V) bool { return !k.Valid() })
}

// Visible reports formToShow[kind]; an absent entry means hidden.
func (s Settings) Visible(kind SectionKind) bool {
	return s.FormToShow[kind]
}

// Heading returns the user label for kind, possibly empty.
func (s Settings) Heading(kind SectionKind) string {
	return strings.TrimSpace(s.FormToHeading[kind])
}

// Bullets reports whether bullet glyphs are drawn for kind. An absent entry
// keeps the glyphs.
func (s Settings) Bullets(kind SectionKind) bool {
	show, ok := s.ShowBulletPoints[kind]
	if !ok {
		return true
	}
	return show
}

// VisibleKinds is the normalized FormsOrder filtered by visibility.
func (s Settings) VisibleKinds() []SectionKind {
	return s.VisibleOf(s.Normalize().FormsOrder)
}

// VisibleOf keeps the visible kinds of set, ordered by the normalized
// FormsOrder.
func (s Settings) VisibleOf(set []SectionKind) []SectionKind {
	order := s.FormsOrder
	if len(order) != len(Kinds) {
		order = s.Normalize().FormsOrder
	}
	out := make([]SectionKind, 0, len(set))
	for _, k := range order {
		if s.Visible(k) && slices.Contains(set, k) {
			out = append(out, k)
		}
	}
	return out
}

func (s Settings) Clone() Settings {
	out := s
	out.FormsOrder = slices.Clone(s.FormsOrder)
	out.FormToShow = maps.Clone(s.FormToShow)
	out.FormToHeading = maps.Clone(s.FormToHeading)
	out.ShowBulletPoints = maps.Clone(s.ShowBulletPoints)
	if s.Columns != nil {
		cols := ColumnPartition{
			Main:    slices.Clone(s.Columns.Main),
			Sidebar: slices.Clone(s.Columns.Sidebar),
		}
		out.Columns = &cols
	}
	return out
}
