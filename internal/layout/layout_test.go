package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/resume"
)

func testTheme(final bool) Theme {
	return Theme{Scale: Standard, Color: "#2563eb", FontSize: 11, Final: final}
}

func TestSpaceScale(t *testing.T) {
	assert.Equal(t, "2pt", Standard.Space(1))
	assert.Equal(t, "8pt", Standard.Space(4))
	assert.Equal(t, "16pt", Standard.Space(8))
	assert.Equal(t, "0pt", Standard.Space(0))
	assert.Equal(t, "16pt", Standard.Space(6.5))
	assert.Equal(t, "100%", Standard.Space(Full))
	assert.Equal(t, "6pt", Compact.Space(4))
}

func TestStyleCSSIsSorted(t *testing.T) {
	s := Style{"gap": "2pt", "display": "flex", "color": "red"}
	assert.Equal(t, "color:red;display:flex;gap:2pt;", s.CSS())
	merged := s.Merge(Style{"gap": "4pt"})
	assert.Equal(t, "4pt", merged["gap"])
	assert.Equal(t, "2pt", s["gap"])
}

func TestCompanyLabels(t *testing.T) {
	items := []resume.WorkExperience{
		{Company: "A", JobTitle: "Engineer"},
		{Company: "A", JobTitle: "Senior Engineer"},
		{Company: "B", JobTitle: "Lead"},
		{Company: "A", JobTitle: "Principal"},
	}
	assert.Equal(t, []string{"A", "", "B", "A"}, CompanyLabels(items))
}

func TestCompanyLabelsSkipBlankRecords(t *testing.T) {
	items := []resume.WorkExperience{
		{Company: "A", JobTitle: "Engineer"},
		{},
		{Company: "A", JobTitle: "Senior Engineer"},
	}
	assert.Equal(t, []string{"A", ""}, CompanyLabels(items))

	n := WorkExperience(SectionProps{Theme: testTheme(true), Heading: "WORK"}, items)
	companies := n.FindAll(RoleCompany)
	require.Len(t, companies, 1)
	assert.Equal(t, "A", companies[0].Text)
	assert.Len(t, n.FindAll(RoleEntry), 2)
}

func TestEmptySectionKeepsHeading(t *testing.T) {
	n := WorkExperience(SectionProps{Theme: testTheme(true), Heading: "Work Experience"}, nil)
	require.NotNil(t, n)
	assert.Equal(t, resume.WorkExperiences, n.Section)

	heading := n.Find(RoleHeading)
	require.NotNil(t, heading)
	assert.Equal(t, []string{"WORK EXPERIENCE"}, heading.Texts())

	body := n.Find(RoleBody)
	require.NotNil(t, body)
	assert.Empty(t, body.Children)
}

func TestEmptyHeadingOmitsHeadingBlock(t *testing.T) {
	n := Custom(SectionProps{Theme: testTheme(true), ShowBullets: true}, resume.CustomSection{Descriptions: []string{"x"}})
	assert.Nil(t, n.Find(RoleHeading))
	assert.Nil(t, n.Find(RoleHeadingRule))
	assert.Len(t, n.FindAll(RoleBulletRow), 1)
}

func TestBulletAlignmentWithoutGlyph(t *testing.T) {
	on := BulletList(testTheme(true), []string{"one", " ", "two"}, true)
	off := BulletList(testTheme(true), []string{"one", " ", "two"}, false)

	onGlyphs := on.FindAll(RoleBulletGlyph)
	offGlyphs := off.FindAll(RoleBulletGlyph)
	require.Len(t, onGlyphs, 2)
	require.Len(t, offGlyphs, 2)
	for i := range onGlyphs {
		assert.Equal(t, "•", onGlyphs[i].Text)
		assert.Equal(t, "", offGlyphs[i].Text)
		assert.Equal(t, onGlyphs[i].Style, offGlyphs[i].Style)
	}
}

func TestLinkModes(t *testing.T) {
	final := Link(testTheme(true), "example.com/jane", "site")
	assert.Equal(t, "https://example.com/jane", final.Href)
	assert.False(t, final.External)

	preview := Link(testTheme(false), "example.com/jane", "site")
	assert.Equal(t, "https://example.com/jane", preview.Href)
	assert.True(t, preview.External)

	assert.Equal(t, "mailto:a@b.c", AbsoluteURL("mailto:a@b.c"))
}

func TestFeaturedSkillClampsRating(t *testing.T) {
	cases := map[int]int{-2: 0, 0: 0, 3: 3, 5: 5, 9: 5}
	for rating, filled := range cases {
		n := FeaturedSkill(testTheme(true), "Go", rating)
		assert.Len(t, n.FindAll("dot-filled"), filled, "rating %d", rating)
		assert.Len(t, n.FindAll("dot-empty"), resume.MaxSkillRating-filled, "rating %d", rating)
	}
}

func TestPreviewAddsOnlyInteractiveNodes(t *testing.T) {
	rec := resume.Record{Projects: []resume.Project{{Name: "kit", Descriptions: []string{"built it"}}}}
	s := resume.DefaultSettings()
	preview := RenderSection(resume.Projects, testTheme(false), rec, s)
	final := RenderSection(resume.Projects, testTheme(true), rec, s)

	require.NotNil(t, preview.Find(RoleHover))
	assert.Nil(t, final.Find(RoleHover))
	assert.Equal(t, final.Texts(), preview.WithoutInteractive().Texts())
}

func TestRenderSectionCoversEveryKind(t *testing.T) {
	for _, k := range resume.Kinds {
		n := RenderSection(k, testTheme(true), resume.Record{}, resume.DefaultSettings())
		require.NotNil(t, n, k.String())
		assert.Equal(t, k, n.Section)
	}
	assert.Nil(t, RenderSection(0, testTheme(true), resume.Record{}, resume.DefaultSettings()))
}

func TestProfileContacts(t *testing.T) {
	n := Profile(testTheme(true), resume.Profile{
		Name:  "Jane",
		Email: "jane@example.com",
		Phone: "(555) 010-2000",
		URL:   "linkedin.com/in/jane",
	})
	var hrefs []string
	n.Walk(func(c *Node) bool {
		if c.Kind == KindLink {
			hrefs = append(hrefs, c.Href)
		}
		return true
	})
	assert.Equal(t, []string{"mailto:jane@example.com", "tel:5550102000", "https://linkedin.com/in/jane"}, hrefs)
}
