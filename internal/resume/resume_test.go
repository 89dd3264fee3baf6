package resume

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsNormalizeFormsOrder(t *testing.T) {
	s := DefaultSettings()
	s.FormsOrder = []SectionKind{Skills, Skills, 0, 42, WorkExperiences}

	got := s.Normalize().FormsOrder
	assert.Equal(t, []SectionKind{Skills, WorkExperiences, Educations, Projects, Custom}, got)
	// the receiver is untouched
	assert.Equal(t, []SectionKind{Skills, Skills, 0, 42, WorkExperiences}, s.FormsOrder)
}

func TestSettingsVisibleKinds(t *testing.T) {
	s := DefaultSettings()
	s.FormsOrder = []SectionKind{Custom, Skills, Projects, Educations, WorkExperiences}
	s.FormToShow = map[SectionKind]bool{Skills: true, Educations: true, Custom: false}

	assert.Equal(t, []SectionKind{Skills, Educations}, s.VisibleKinds())
	assert.Equal(t, []SectionKind{Educations}, s.VisibleOf([]SectionKind{WorkExperiences, Educations}))
}

func TestSettingsBulletsDefaultOn(t *testing.T) {
	s := Settings{ShowBulletPoints: map[SectionKind]bool{Skills: false}}
	assert.False(t, s.Bullets(Skills))
	assert.True(t, s.Bullets(Projects))
}

func TestDocumentSizeNormalize(t *testing.T) {
	cases := map[DocumentSize]DocumentSize{
		"A4":     A4,
		"a4":     A4,
		"Letter": Letter,
		"":       Letter,
		"B5":     Letter,
	}
	for in, want := range cases {
		assert.Equal(t, want, in.Normalize(), "input %q", in)
	}
}

func TestSettingsJSONUsesWireNames(t *testing.T) {
	raw := `{
		"fontFamily": "Lato",
		"fontSize": 12,
		"documentSize": "A4",
		"formsOrder": ["skills", "workExperiences"],
		"formToShow": {"skills": true},
		"formToHeading": {"skills": "TOOLS"},
		"showBulletPoints": {"skills": false},
		"selectedTemplate": "B"
	}`
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, []SectionKind{Skills, WorkExperiences}, s.FormsOrder)
	assert.True(t, s.Visible(Skills))
	assert.False(t, s.Visible(WorkExperiences))
	assert.Equal(t, "TOOLS", s.Heading(Skills))
	assert.Equal(t, TemplateSidebarRight, s.SelectedTemplate)

	var bad Settings
	err := json.Unmarshal([]byte(`{"formsOrder":["hobbies"]}`), &bad)
	require.ErrorIs(t, err, ErrUnknownSectionKind)
}

func TestSnapshotCloneDoesNotAlias(t *testing.T) {
	snap := Snapshot{
		Resume: Record{
			WorkExperiences: []WorkExperience{{Company: "A", Descriptions: []string{"x"}}},
		},
		Settings: DefaultSettings(),
	}
	c := snap.Clone()
	c.Resume.WorkExperiences[0].Descriptions[0] = "changed"
	c.Settings.FormToShow[Custom] = true

	assert.Equal(t, "x", snap.Resume.WorkExperiences[0].Descriptions[0])
	assert.False(t, snap.Settings.FormToShow[Custom])
}

func TestSnapshotFingerprint(t *testing.T) {
	a := Snapshot{Resume: Record{Profile: Profile{Name: "Jane"}}, Settings: DefaultSettings()}
	b := a.Clone()
	require.Equal(t, a.Fingerprint(), b.Fingerprint())

	// an unnormalized but equivalent order hashes the same
	b.Settings.FormsOrder = []SectionKind{WorkExperiences}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Settings.SelectedTemplate = TemplateSidebarLeft
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := a.Clone()
	c.Resume.Profile.Name = "John"
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestFingerprintIgnoresNilVersusEmpty(t *testing.T) {
	a := Snapshot{
		Resume: Record{
			Profile:         Profile{Name: "Jane"},
			WorkExperiences: []WorkExperience{{Company: "Acme"}},
		},
		Settings: Settings{FormToShow: map[SectionKind]bool{WorkExperiences: true}},
	}
	b := a.Clone()
	b.Resume.WorkExperiences[0].Descriptions = []string{}
	b.Resume.Educations = []Education{}
	b.Resume.Projects = []Project{}
	b.Resume.Skills.Featured = []FeaturedSkill{}
	b.Resume.Custom.Descriptions = []string{}
	b.Settings.FormToHeading = map[SectionKind]string{}
	b.Settings.ShowBulletPoints = map[SectionKind]bool{}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), a.Clone().Fingerprint())
	assert.Nil(t, a.Clone().Resume.Educations)
}

func TestFingerprintWithInvalidKinds(t *testing.T) {
	a := Snapshot{Resume: Record{Profile: Profile{Name: "Jane"}}, Settings: DefaultSettings()}
	b := a.Clone()
	b.Settings.FormToShow[SectionKind(42)] = true
	b.Settings.FormToHeading[SectionKind(0)] = "BROKEN"
	b.Settings.Columns = &ColumnPartition{Main: []SectionKind{99}}
	require.NotPanics(t, func() { b.Fingerprint() })

	c := b.Clone()
	c.Resume.Profile.Summary = "different content"
	assert.NotEqual(t, b.Fingerprint(), c.Fingerprint())

	n := b.Settings.Normalize()
	assert.NotContains(t, n.FormToShow, SectionKind(42))
	assert.NotContains(t, n.FormToHeading, SectionKind(0))
	assert.Empty(t, n.Columns.Main)
	// the receiver keeps its entries
	assert.Contains(t, b.Settings.FormToShow, SectionKind(42))
}

func TestSnapshotTemplateDefaultsToClassic(t *testing.T) {
	assert.Equal(t, TemplateClassic, Snapshot{}.Template())
	assert.Equal(t, TemplateWeb, Snapshot{Settings: Settings{SelectedTemplate: "E"}}.Template())
}

func TestFileStem(t *testing.T) {
	cases := map[string]string{
		"Jane Q. Public!":  "Jane_Q_Public",
		"  ":               "resume",
		"":                 "resume",
		"李雷":                "resume",
		"--Ada--Lovelace--": "Ada_Lovelace",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileStem(in), "input %q", in)
	}
}

func TestRecordWarnings(t *testing.T) {
	r := Record{Skills: SkillsSection{Featured: []FeaturedSkill{{Skill: "Go", Rating: 9}, {Skill: "C", Rating: 3}}}}
	w := r.Warnings()
	require.Len(t, w, 2)
	assert.Contains(t, w[0], "profile name")
	assert.Contains(t, w[1], "featured skill 0")
}

func TestBlankEntries(t *testing.T) {
	assert.True(t, WorkExperience{Descriptions: []string{" ", ""}}.Blank())
	assert.False(t, WorkExperience{Date: "2020"}.Blank())
	assert.True(t, Education{}.Blank())
	assert.False(t, Project{Descriptions: []string{"shipped"}}.Blank())
}
