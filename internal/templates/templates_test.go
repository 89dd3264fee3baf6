package templates

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/layout"
	"resumekit/internal/resume"
)

func sampleRecord() resume.Record {
	return resume.Record{
		Profile: resume.Profile{Name: "Jane Q. Public", Email: "jane@example.com", URL: "example.com"},
		WorkExperiences: []resume.WorkExperience{
			{Company: "A", JobTitle: "Engineer", Date: "2020", Descriptions: []string{"built"}},
			{Company: "A", JobTitle: "Senior Engineer", Date: "2022"},
			{Company: "B", JobTitle: "Lead", Date: "2023"},
			{Company: "A", JobTitle: "Principal", Date: "2024"},
		},
		Educations: []resume.Education{{School: "State", StudyType: "BS", Area: "CS", GPA: "3.9"}},
		Projects:   []resume.Project{{Name: "kit", Descriptions: []string{"renders"}}},
		Skills: resume.SkillsSection{
			Featured:     []resume.FeaturedSkill{{Skill: "Go", Rating: 4}},
			Descriptions: []string{"Tools: git"},
		},
		Custom: resume.CustomSection{Descriptions: []string{"Volunteer"}},
	}
}

func allVisible() resume.Settings {
	s := resume.DefaultSettings()
	for _, k := range resume.Kinds {
		s.FormToShow[k] = true
	}
	return s
}

func TestRenderIsDeterministic(t *testing.T) {
	for _, v := range All() {
		a := v.Render(sampleRecord(), allVisible(), true)
		b := v.Render(sampleRecord(), allVisible(), true)
		assert.True(t, reflect.DeepEqual(a, b), "template %s", v.ID)
	}
}

func TestVisibilityFilter(t *testing.T) {
	for _, v := range All() {
		for _, hidden := range resume.Kinds {
			s := allVisible()
			s.FormToShow[hidden] = false

			doc := v.Render(sampleRecord(), s, true)
			got := doc.SectionOrder()
			assert.NotContains(t, got, hidden, "template %s", v.ID)
			assert.Len(t, got, len(resume.Kinds)-1, "template %s", v.ID)
		}
	}
}

func TestMissingVisibilityEntryHides(t *testing.T) {
	s := resume.DefaultSettings()
	s.FormToShow = map[resume.SectionKind]bool{resume.Projects: true}
	doc := Resolve(resume.TemplateClassic).Render(sampleRecord(), s, true)
	assert.Equal(t, []resume.SectionKind{resume.Projects}, doc.SectionOrder())
}

func TestClassicFollowsFormsOrder(t *testing.T) {
	s := allVisible()
	s.FormsOrder = []resume.SectionKind{resume.Skills, resume.Custom, resume.WorkExperiences}
	doc := Resolve(resume.TemplateClassic).Render(sampleRecord(), s, true)
	assert.Equal(t, []resume.SectionKind{
		resume.Skills, resume.Custom, resume.WorkExperiences, resume.Educations, resume.Projects,
	}, doc.SectionOrder())
}

func TestSidebarPartitionIgnoresOrderForColumns(t *testing.T) {
	s := allVisible()
	s.FormsOrder = []resume.SectionKind{resume.Custom, resume.Projects, resume.Skills, resume.Educations, resume.WorkExperiences}

	for _, id := range []resume.TemplateID{resume.TemplateSidebarRight, resume.TemplateSidebarLeft} {
		cols := Resolve(id).Render(sampleRecord(), s, true).Sections()
		assert.Equal(t, []resume.SectionKind{resume.Projects, resume.Educations, resume.WorkExperiences}, cols[layout.RoleMainColumn], "template %s", id)
		assert.Equal(t, []resume.SectionKind{resume.Custom, resume.Skills}, cols[layout.RoleSidebar], "template %s", id)
	}

	s.FormToShow[resume.Custom] = false
	cols := Resolve(resume.TemplateSidebarRight).Render(sampleRecord(), s, true).Sections()
	assert.Equal(t, []resume.SectionKind{resume.Skills}, cols[layout.RoleSidebar])
}

func TestWebColumnPartition(t *testing.T) {
	s := allVisible()
	web := Resolve(resume.TemplateWeb)

	cols := web.Render(sampleRecord(), s, true).Sections()
	assert.Equal(t, s.VisibleKinds(), cols[layout.RoleMainColumn])
	assert.Empty(t, cols[layout.RoleSidebar])

	s.Columns = &resume.ColumnPartition{
		Main:    []resume.SectionKind{resume.WorkExperiences},
		Sidebar: []resume.SectionKind{resume.Skills, resume.Educations},
	}
	cols = web.Render(sampleRecord(), s, true).Sections()
	assert.Equal(t, []resume.SectionKind{resume.WorkExperiences, resume.Projects, resume.Custom}, cols[layout.RoleMainColumn])
	assert.Equal(t, []resume.SectionKind{resume.Educations, resume.Skills}, cols[layout.RoleSidebar])
}

func TestThemeBarOnlyWithThemeColor(t *testing.T) {
	classic := Resolve(resume.TemplateClassic)
	s := allVisible()
	assert.Nil(t, classic.Render(sampleRecord(), s, true).Page.Find(layout.RoleThemeBar))

	s.ThemeColor = "#38bdf8"
	doc := classic.Render(sampleRecord(), s, true)
	bar := doc.Page.Find(layout.RoleThemeBar)
	require.NotNil(t, bar)
	assert.Equal(t, "#38bdf8", bar.Style["background-color"])
	assert.Equal(t, "#38bdf8", doc.ThemeColor)
}

func TestDefaultThemePerVariant(t *testing.T) {
	want := map[resume.TemplateID]string{
		resume.TemplateClassic:      "#171717",
		resume.TemplateSidebarRight: "#2563eb",
		resume.TemplateSidebarLeft:  "#0f766e",
		resume.TemplateSinglePage:   "#171717",
		resume.TemplateWeb:          "#1f2937",
	}
	for id, color := range want {
		doc := Resolve(id).Render(sampleRecord(), allVisible(), true)
		assert.Equal(t, color, doc.ThemeColor, "template %s", id)
	}
}

func TestSinglePageUsesCompactScale(t *testing.T) {
	doc := Resolve(resume.TemplateSinglePage).Render(sampleRecord(), allVisible(), true)
	require.NotNil(t, doc.Page.Find(layout.RoleThemeBar))
	assert.InDelta(t, 11*layout.Compact.BodyRatio, doc.FontSizePt, 0.001)
}

func TestCompanyCollapsingInTemplates(t *testing.T) {
	for _, v := range All() {
		doc := v.Render(sampleRecord(), allVisible(), true)
		var labels []string
		for _, n := range doc.Page.FindAll(layout.RoleCompany) {
			labels = append(labels, n.Text)
		}
		assert.Equal(t, []string{"A", "B", "A"}, labels, "template %s", v.ID)
	}
}

func TestPreviewMatchesFinalWithoutAffordances(t *testing.T) {
	for _, v := range All() {
		preview := v.Render(sampleRecord(), allVisible(), false)
		final := v.Render(sampleRecord(), allVisible(), true)

		assert.NotEmpty(t, preview.Page.FindAll(layout.RoleHover), "template %s", v.ID)
		assert.Empty(t, final.Page.FindAll(layout.RoleHover), "template %s", v.ID)
		assert.Equal(t, final.Page.Texts(), preview.Page.WithoutInteractive().Texts(), "template %s", v.ID)
		assert.Equal(t, final.SectionOrder(), preview.SectionOrder(), "template %s", v.ID)
	}
}

func TestLookupAndResolve(t *testing.T) {
	v, ok := Lookup("b")
	require.True(t, ok)
	assert.Equal(t, resume.TemplateSidebarRight, v.ID)

	_, ok = Lookup("Z")
	assert.False(t, ok)
	assert.Equal(t, resume.TemplateClassic, Resolve("Z").ID)
	assert.Equal(t, resume.TemplateClassic, Resolve("").ID)

	ids := make([]resume.TemplateID, 0, 5)
	for _, v := range All() {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []resume.TemplateID{"A", "B", "C", "D", "E"}, ids)
}

func TestEverySizeAndFont(t *testing.T) {
	for _, v := range All() {
		for _, size := range []resume.DocumentSize{resume.A4, resume.Letter} {
			s := allVisible()
			s.DocumentSize = size
			doc := v.Render(sampleRecord(), s, true)
			assert.Equal(t, size, doc.Size)
			assert.NotEmpty(t, doc.Font.Family)
			assert.NotEmpty(t, doc.Font.Weights)
		}
	}
}
