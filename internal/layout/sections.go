package layout

import (
	"strings"

	"resumekit/internal/resume"
)

// SectionProps is the per-section input shared by all section renderers.
type SectionProps struct {
	Theme
	Heading     string
	ShowBullets bool
}

// PropsFor derives the props of kind from the settings.
func PropsFor(t Theme, s resume.Settings, kind resume.SectionKind) SectionProps {
	return SectionProps{Theme: t, Heading: s.Heading(kind), ShowBullets: s.Bullets(kind)}
}

// RenderSection dispatches kind to its renderer. Every SectionKind has a case.
func RenderSection(kind resume.SectionKind, t Theme, rec resume.Record, s resume.Settings) *Node {
	p := PropsFor(t, s, kind)
	switch kind {
	case resume.WorkExperiences:
		return WorkExperience(p, rec.WorkExperiences)
	case resume.Educations:
		return Education(p, rec.Educations)
	case resume.Projects:
		return Projects(p, rec.Projects)
	case resume.Skills:
		return Skills(p, rec.Skills)
	case resume.Custom:
		return Custom(p, rec.Custom)
	default:
		return nil
	}
}

// Profile renders the header: name, summary and contact line.
func Profile(t Theme, p resume.Profile) *Node {
	var contacts []*Node
	if v := strings.TrimSpace(p.Email); v != "" {
		contacts = append(contacts, Link(t, "mailto:"+v, v))
	}
	if v := strings.TrimSpace(p.Phone); v != "" {
		contacts = append(contacts, Link(t, "tel:"+telDigits(v), v))
	}
	if v := strings.TrimSpace(p.Location); v != "" {
		contacts = append(contacts, Text(Run{Text: v, Role: "location"}))
	}
	if v := strings.TrimSpace(p.URL); v != "" {
		contacts = append(contacts, Link(t, v, v))
	}

	var name, summary, contactRow *Node
	if v := strings.TrimSpace(p.Name); v != "" {
		name = Text(Run{Text: v, Bold: true, Size: Pt(t.Scale.TitleSize), Role: "name"})
	}
	if v := strings.TrimSpace(p.Summary); v != "" {
		summary = Text(Run{Text: v, Size: t.Scale.Body(t.FontSize), Role: "summary"})
	}
	if len(contacts) > 0 {
		contactRow = Box("contacts", FlexRow.Merge(Style{
			"flex-wrap": "wrap",
			"gap":       t.Scale.Space(1) + " " + t.Scale.Space(4),
			"font-size": t.Scale.Small(t.FontSize),
			"color":     MutedColor,
		}), contacts...)
	}
	return Box(RoleProfile, FlexCol.Merge(Style{"gap": t.Scale.Space(1)}), name, summary, contactRow)
}

func telDigits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == '+' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, phone)
}

// CompanyLabels returns the company label of every rendered (non blank)
// record. A label equal to the previous rendered record's company is
// suppressed as "".
func CompanyLabels(items []resume.WorkExperience) []string {
	labels := make([]string, 0, len(items))
	prev, first := "", true
	for _, w := range items {
		if w.Blank() {
			continue
		}
		company := strings.TrimSpace(w.Company)
		if !first && company == prev {
			labels = append(labels, "")
		} else {
			labels = append(labels, company)
		}
		prev, first = company, false
	}
	return labels
}

func WorkExperience(p SectionProps, items []resume.WorkExperience) *Node {
	labels := CompanyLabels(items)
	entries := make([]*Node, 0, len(labels))
	i := 0
	for _, w := range items {
		if w.Blank() {
			continue
		}
		var company *Node
		if labels[i] != "" {
			company = Text(Run{Text: labels[i], Bold: true, Role: RoleCompany})
		}
		i++
		entries = append(entries, Box(RoleEntry, FlexCol.Merge(Style{"gap": p.Scale.Space(1)}),
			company,
			titleRow(p.Theme, w.JobTitle, w.Date, false),
			BulletList(p.Theme, w.Descriptions, p.ShowBullets),
		))
	}
	return Section(p.Theme, resume.WorkExperiences, p.Heading, entries...)
}

func Education(p SectionProps, items []resume.Education) *Node {
	entries := make([]*Node, 0, len(items))
	for _, e := range items {
		if e.Blank() {
			continue
		}
		var school *Node
		if v := strings.TrimSpace(e.School); v != "" {
			school = Text(Run{Text: v, Bold: true, Role: "school"})
		}
		entries = append(entries, Box(RoleEntry, FlexCol.Merge(Style{"gap": p.Scale.Space(1)}),
			school,
			titleRow(p.Theme, degreeLine(e), e.Date, false),
			BulletList(p.Theme, e.Descriptions, p.ShowBullets),
		))
	}
	return Section(p.Theme, resume.Educations, p.Heading, entries...)
}

// degreeLine joins "studyType in area - GPA".
func degreeLine(e resume.Education) string {
	degree := strings.TrimSpace(e.StudyType)
	if area := strings.TrimSpace(e.Area); area != "" {
		if degree != "" {
			degree += " in " + area
		} else {
			degree = area
		}
	}
	if gpa := strings.TrimSpace(e.GPA); gpa != "" {
		if degree != "" {
			degree += " - "
		}
		degree += gpa + " GPA"
	}
	return degree
}

func Projects(p SectionProps, items []resume.Project) *Node {
	entries := make([]*Node, 0, len(items))
	for _, pr := range items {
		if pr.Blank() {
			continue
		}
		entries = append(entries, Box(RoleEntry, FlexCol.Merge(Style{"gap": p.Scale.Space(1)}),
			titleRow(p.Theme, pr.Name, pr.Date, true),
			BulletList(p.Theme, pr.Descriptions, p.ShowBullets),
		))
	}
	return Section(p.Theme, resume.Projects, p.Heading, entries...)
}

func Skills(p SectionProps, s resume.SkillsSection) *Node {
	var chips []*Node
	for _, f := range s.Featured {
		if name := strings.TrimSpace(f.Skill); name != "" {
			chips = append(chips, FeaturedSkill(p.Theme, name, f.Rating))
		}
	}
	var grid *Node
	if len(chips) > 0 {
		grid = Box("featured-skills", Style{
			"display":               "grid",
			"grid-template-columns": "repeat(3, minmax(0, 1fr))",
			"column-gap":            p.Scale.Space(6),
			"row-gap":               p.Scale.Space(1),
		}, chips...)
	}
	return Section(p.Theme, resume.Skills, p.Heading, grid, BulletList(p.Theme, s.Descriptions, p.ShowBullets))
}

func Custom(p SectionProps, c resume.CustomSection) *Node {
	return Section(p.Theme, resume.Custom, p.Heading, BulletList(p.Theme, c.Descriptions, p.ShowBullets))
}

// titleRow is the "title ... date" row used by every entry.
func titleRow(t Theme, title, date string, bold bool) *Node {
	title, date = strings.TrimSpace(title), strings.TrimSpace(date)
	if title == "" && date == "" {
		return nil
	}
	var left, right *Node
	if title != "" {
		left = Text(Run{Text: title, Bold: bold, Role: "title"})
	}
	if date != "" {
		right = Text(Run{Text: date, Color: MutedColor, Size: t.Scale.Small(t.FontSize), Role: "date"})
	}
	return Box("title-row", FlexRowBetween.Merge(Style{"align-items": "baseline"}), left, right)
}
