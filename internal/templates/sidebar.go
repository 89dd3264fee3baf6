package templates

import (
	"resumekit/internal/layout"
	"resumekit/internal/resume"
)

// Fixed column assignment of the sidebar variants. Inclusion still follows
// formToShow and the order within a column follows formsOrder.
var (
	mainKinds    = []resume.SectionKind{resume.WorkExperiences, resume.Educations, resume.Projects}
	sidebarKinds = []resume.SectionKind{resume.Skills, resume.Custom}
)

func column(role, width string, style layout.Style, children ...*layout.Node) *layout.Node {
	return layout.Box(role, layout.FlexCol.Merge(layout.Style{
		"width":     width,
		"flex":      "0 0 " + width,
		"min-width": "0",
	}, style), children...)
}

func composeSidebarRight(c composition) *layout.Node {
	sc := c.theme.Scale
	main := column(layout.RoleMainColumn, "65%", layout.Style{"gap": sc.Space(5)},
		c.sections(c.settings.VisibleOf(mainKinds))...)
	side := column(layout.RoleSidebar, "35%", layout.Style{
		"gap":          sc.Space(5),
		"padding-left": sc.Space(6),
		"border-left":  "1pt solid " + layout.RuleColor,
	}, c.sections(c.settings.VisibleOf(sidebarKinds))...)

	return layout.Box(layout.RolePage, layout.FlexCol.Merge(layout.Style{
		"gap":     sc.Space(6),
		"padding": sc.Space(10) + " " + sc.Space(12),
	}),
		c.profile(),
		layout.Box("columns", layout.FlexRow.Merge(layout.Style{"gap": sc.Space(6)}), main, side),
	)
}

// composeSidebarLeft 左侧栏带主题色底色，整页加边框。
func composeSidebarLeft(c composition) *layout.Node {
	sc := c.theme.Scale
	sideChildren := append([]*layout.Node{c.profile()}, c.sections(c.settings.VisibleOf(sidebarKinds))...)
	side := column(layout.RoleSidebar, "30%", layout.Style{
		"gap":              sc.Space(5),
		"padding":          sc.Space(8) + " " + sc.Space(5),
		"background-color": tint(c.theme.Color),
	}, sideChildren...)
	main := column(layout.RoleMainColumn, "70%", layout.Style{
		"gap":     sc.Space(5),
		"padding": sc.Space(8) + " " + sc.Space(6),
	}, c.sections(c.settings.VisibleOf(mainKinds))...)

	return layout.Box(layout.RolePage, layout.FlexRow.Merge(layout.Style{
		"border":     "2pt solid " + c.theme.Color,
		"min-height": "100%",
		"box-sizing": "border-box",
	}), side, main)
}

// tint returns a translucent form of a #rrggbb color, or a neutral grey.
func tint(color string) string {
	if len(color) == 7 && color[0] == '#' {
		return color + "14"
	}
	return "#f5f5f5"
}
