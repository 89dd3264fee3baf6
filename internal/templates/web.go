package templates

import (
	"slices"

	"resumekit/internal/layout"
	"resumekit/internal/resume"
)

// webColumns splits the visible kinds by the configured partition. Visible
// kinds the partition does not mention go to the main column, and without a
// partition everything does.
func webColumns(s resume.Settings) (main, side []resume.SectionKind) {
	visible := s.VisibleKinds()
	if s.Columns == nil {
		return visible, nil
	}
	inMain := s.Columns.Main
	inSide := slices.DeleteFunc(slices.Clone(s.Columns.Sidebar), func(k resume.SectionKind) bool {
		return slices.Contains(inMain, k)
	})
	for _, k := range visible {
		if slices.Contains(inSide, k) {
			side = append(side, k)
		} else {
			main = append(main, k)
		}
	}
	return main, side
}

func composeWeb(c composition) *layout.Node {
	sc := c.theme.Scale
	mainKinds, sideKinds := webColumns(c.settings)

	main := layout.Box(layout.RoleMainColumn, layout.FlexCol.Merge(layout.Style{"gap": sc.Space(5), "min-width": "0"}),
		c.sections(mainKinds)...)
	cols := "minmax(0, 1fr)"
	var side *layout.Node
	if len(sideKinds) > 0 {
		cols = "minmax(0, 2fr) minmax(0, 1fr)"
		side = layout.Box(layout.RoleSidebar, layout.FlexCol.Merge(layout.Style{"gap": sc.Space(5), "min-width": "0"}),
			c.sections(sideKinds)...)
	}

	header := layout.Box("header", layout.Style{
		"padding":       sc.Space(8) + " " + sc.Space(12),
		"border-bottom": "3pt solid " + c.theme.Color,
	}, c.profile())
	grid := layout.Box("grid", layout.Style{
		"display":               "grid",
		"grid-template-columns": cols,
		"column-gap":            sc.Space(10),
		"padding":               sc.Space(8) + " " + sc.Space(12),
	}, main, side)
	return layout.Box(layout.RolePage, layout.FlexCol, header, grid)
}
