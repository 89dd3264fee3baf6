package layout

import (
	"maps"
	"slices"
	"strings"

	"resumekit/internal/resume"
)

// NodeKind 是布局树节点的类型。
type NodeKind string

const (
	KindBox        NodeKind = "box"
	KindText       NodeKind = "text"
	KindLink       NodeKind = "link"
	KindRule       NodeKind = "rule"
	KindDot        NodeKind = "dot"
	KindAffordance NodeKind = "affordance"
)

// Style holds CSS declarations. Keys are property names.
type Style map[string]string

// Merge returns a new style with the declarations of others applied over s.
func (s Style) Merge(others ...Style) Style {
	out := maps.Clone(s)
	if out == nil {
		out = Style{}
	}
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// CSS serializes the declarations sorted by property name.
func (s Style) CSS() string {
	keys := slices.Sorted(maps.Keys(s))
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(s[k])
		b.WriteByte(';')
	}
	return b.String()
}

// Node is one element of a LayoutTree.
type Node struct {
	Kind NodeKind
	// Role names what the node is for ("section", "heading", "company" ...).
	Role    string
	Section resume.SectionKind
	Style   Style
	Text    string
	Href    string
	// External marks a link that opens a new browsing context.
	External bool
	// Interactive nodes exist only in preview renders.
	Interactive bool
	Children    []*Node
}

// Box is a container node.
func Box(role string, style Style, children ...*Node) *Node {
	return &Node{Kind: KindBox, Role: role, Style: style, Children: compact(children)}
}

func compact(nodes []*Node) []*Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FindAll returns every descendant (n included) with the given role.
func (n *Node) FindAll(role string) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Role == role {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Find returns the first node with the given role, or nil.
func (n *Node) Find(role string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Role == role {
			found = c
			return false
		}
		return true
	})
	return found
}

// Texts concatenates the text of every text and link node below n.
func (n *Node) Texts() []string {
	var out []string
	n.Walk(func(c *Node) bool {
		if (c.Kind == KindText || c.Kind == KindLink) && c.Text != "" {
			out = append(out, c.Text)
		}
		return true
	})
	return out
}

// WithoutInteractive returns a deep copy of n with every interactive node
// removed.
func (n *Node) WithoutInteractive() *Node {
	if n == nil || n.Interactive {
		return nil
	}
	cp := *n
	cp.Style = maps.Clone(n.Style)
	cp.Children = nil
	for _, c := range n.Children {
		if kept := c.WithoutInteractive(); kept != nil {
			cp.Children = append(cp.Children, kept)
		}
	}
	return &cp
}

// FontRequirement is the font a template is designed for.
type FontRequirement struct {
	Family  string `json:"family"`
	Weights []int  `json:"weights"`
}

// Document is a complete LayoutTree plus the page metadata the renderers
// need.
type Document struct {
	Title      string
	Author     string
	Template   resume.TemplateID
	Size       resume.DocumentSize
	Font       FontRequirement
	FontSizePt float64
	ThemeColor string
	Final      bool
	Page       *Node
}

// Sections lists the section kinds in document order, per column role.
// Nodes outside any column are reported under "main".
func (d *Document) Sections() map[string][]resume.SectionKind {
	out := map[string][]resume.SectionKind{}
	var visit func(n *Node, column string)
	visit = func(n *Node, column string) {
		if n == nil {
			return
		}
		if n.Role == RoleMainColumn || n.Role == RoleSidebar {
			column = n.Role
		}
		if n.Role == RoleSection && n.Section.Valid() {
			out[column] = append(out[column], n.Section)
			return
		}
		for _, c := range n.Children {
			visit(c, column)
		}
	}
	visit(d.Page, RoleMainColumn)
	return out
}

// SectionOrder lists every rendered section kind in document order.
func (d *Document) SectionOrder() []resume.SectionKind {
	var out []resume.SectionKind
	d.Page.Walk(func(n *Node) bool {
		if n.Role == RoleSection && n.Section.Valid() {
			out = append(out, n.Section)
			return false
		}
		return true
	})
	return out
}

const (
	RolePage        = "page"
	RoleMainColumn  = "main"
	RoleSidebar     = "sidebar"
	RoleSection     = "section"
	RoleHeading     = "heading"
	RoleHeadingRule = "heading-rule"
	RoleBody        = "body"
	RoleEntry       = "entry"
	RoleCompany     = "company"
	RoleBulletList  = "bullet-list"
	RoleBulletRow   = "bullet-row"
	RoleBulletGlyph = "bullet-glyph"
	RoleSkillChip   = "skill-chip"
	RoleProfile     = "profile"
	RoleThemeBar    = "theme-bar"
	RoleHover       = "hover-outline"
)
