package templates

import (
	"resumekit/internal/layout"
)

func themeBar(c composition) *layout.Node {
	return &layout.Node{
		Kind: layout.KindRule,
		Role: layout.RoleThemeBar,
		Style: layout.Style{
			"height":           c.theme.Scale.Space(3.5),
			"width":            c.theme.Scale.Space(layout.Full),
			"background-color": c.theme.Color,
		},
	}
}

func singleColumn(c composition) *layout.Node {
	sc := c.theme.Scale
	children := append([]*layout.Node{c.profile()}, c.sections(c.settings.VisibleKinds())...)
	return layout.Box(layout.RoleMainColumn, layout.FlexCol.Merge(layout.Style{
		"gap":     sc.Space(5),
		"padding": sc.Space(6) + " " + sc.Space(20),
	}), children...)
}

// composeClassic draws the theme bar only when the user picked a color.
func composeClassic(c composition) *layout.Node {
	var bar *layout.Node
	if c.settings.ThemeColor != "" {
		bar = themeBar(c)
	}
	return layout.Box(layout.RolePage, layout.FlexCol, bar, singleColumn(c))
}

func composeSinglePage(c composition) *layout.Node {
	page := layout.Box(layout.RolePage, layout.FlexCol.Merge(layout.Style{"overflow": "hidden"}), themeBar(c), singleColumn(c))
	return page
}
