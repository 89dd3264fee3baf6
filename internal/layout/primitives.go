package layout

import (
	"net/url"
	"strings"

	"resumekit/internal/resume"
)

// Theme carries everything a renderer needs besides the data itself.
type Theme struct {
	Scale    Scale
	Color    string
	FontSize float64
	// Final is true for the artifact-producing render.
	Final bool
}

// Run is a styled piece of text.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Color  string
	Size   string
	Role   string
}

// Text renders a run.
func Text(run Run) *Node {
	style := Style{}
	if run.Bold {
		style["font-weight"] = "700"
	}
	if run.Italic {
		style["font-style"] = "italic"
	}
	if run.Color != "" {
		style["color"] = run.Color
	}
	if run.Size != "" {
		style["font-size"] = run.Size
	}
	return &Node{Kind: KindText, Role: run.Role, Style: style, Text: run.Text}
}

// Section 是分区容器：标题非空时才渲染标题和主题色下划线，正文始终保留。
func Section(t Theme, kind resume.SectionKind, heading string, children ...*Node) *Node {
	var head *Node
	if heading = strings.TrimSpace(heading); heading != "" {
		head = Box(RoleHeading, FlexCol.Merge(Style{"gap": t.Scale.Space(1)}),
			Text(Run{
				Text: strings.ToUpper(heading),
				Bold: true,
				Size: Pt(t.Scale.HeadingSize),
				Role: "heading-text",
			}),
			&Node{
				Kind: KindRule,
				Role: RoleHeadingRule,
				Style: Style{
					"border-bottom": "1.5pt solid " + t.Color,
					"width":         t.Scale.Space(Full),
				},
			},
		)
	}

	body := Box(RoleBody, FlexCol.Merge(Style{"gap": t.Scale.Space(2)}), children...)
	node := Box(RoleSection, FlexCol.Merge(Style{"gap": t.Scale.Space(2), "position": "relative"}), head, body)
	node.Section = kind
	if !t.Final {
		node.Children = append(node.Children, &Node{
			Kind:        KindAffordance,
			Role:        RoleHover,
			Section:     kind,
			Interactive: true,
			Style: Style{
				"position": "absolute",
				"inset":    "0",
				"outline":  "1pt dashed " + t.Color,
			},
		})
	}
	return node
}

// BulletList renders one row per description. The glyph cell has the same
// width with or without a glyph so text stays aligned.
func BulletList(t Theme, items []string, showBullets bool) *Node {
	rows := make([]*Node, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		glyph := ""
		if showBullets {
			glyph = "•"
		}
		rows = append(rows, Box(RoleBulletRow, FlexRow,
			&Node{
				Kind: KindText,
				Role: RoleBulletGlyph,
				Text: glyph,
				Style: Style{
					"flex":      "0 0 " + t.Scale.Space(t.Scale.GlyphWidth),
					"width":     t.Scale.Space(t.Scale.GlyphWidth),
					"font-size": t.Scale.Bullet(t.FontSize),
				},
			},
			Text(Run{Text: item, Size: t.Scale.Bullet(t.FontSize), Role: "bullet-text"}),
		))
	}
	return Box(RoleBulletList, FlexCol.Merge(Style{"gap": t.Scale.Space(0.5)}), rows...)
}

// Link renders a hyperlink to an absolute URL. The preview additionally
// opens it in a new browsing context.
func Link(t Theme, href, text string) *Node {
	return &Node{
		Kind:     KindLink,
		Role:     "link",
		Text:     text,
		Href:     AbsoluteURL(href),
		External: !t.Final,
		Style:    Style{"color": "inherit", "text-decoration": "none"},
	}
}

// AbsoluteURL returns href unchanged when it carries a scheme and prefixes
// https:// otherwise.
func AbsoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		return href
	}
	return "https://" + strings.TrimPrefix(href, "//")
}

// FeaturedSkill renders a named skill with MaxSkillRating dots, the first
// rating of them filled with the theme color.
func FeaturedSkill(t Theme, name string, rating int) *Node {
	rating = min(max(rating, 0), resume.MaxSkillRating)
	dots := make([]*Node, resume.MaxSkillRating)
	for i := range dots {
		color, role := DotEmptyColor, "dot-empty"
		if i < rating {
			color, role = t.Color, "dot-filled"
		}
		dots[i] = &Node{
			Kind: KindDot,
			Role: role,
			Style: Style{
				"width":            t.Scale.Space(2),
				"height":           t.Scale.Space(2),
				"border-radius":    "50%",
				"background-color": color,
			},
		}
	}
	return Box(RoleSkillChip, FlexRowBetween.Merge(Style{"align-items": "center"}),
		Text(Run{Text: name, Role: "skill-name"}),
		Box("skill-dots", FlexRow.Merge(Style{"gap": t.Scale.Space(0.5)}), dots...),
	)
}
