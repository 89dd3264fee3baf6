package resume

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"slices"
	"strings"
)

// Snapshot is the immutable input of one render pass.
type Snapshot struct {
	Resume   Record   `json:"resume"`
	Settings Settings `json:"settings"`
}

// Template returns the selected variant, defaulting to the classic one.
func (s Snapshot) Template() TemplateID {
	id := TemplateID(strings.TrimSpace(string(s.Settings.SelectedTemplate)))
	if id == "" {
		return TemplateClassic
	}
	return id
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Resume:   s.Resume.Clone(),
		Settings: s.Settings.Clone(),
	}
}

// Fingerprint hashes the canonical JSON form of the snapshot.
// encoding/json sorts map keys, so equal snapshots hash equally.
func (s Snapshot) Fingerprint() string {
	data, err := json.Marshal(s.canonical())
	if err != nil {
		// canonical drops every value encoding/json rejects.
		panic("resume: marshal canonical snapshot: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonical normalizes the settings, resolves the template and folds empty
// slices and maps into nil, so that inputs rendering the same document
// encode the same way.
func (s Snapshot) canonical() Snapshot {
	c := Snapshot{
		Resume:   s.Resume.Clone(),
		Settings: s.Settings.Normalize(),
	}
	c.Settings.SelectedTemplate = s.Template()

	r := &c.Resume
	r.WorkExperiences = nilIfEmpty(r.WorkExperiences)
	for i := range r.WorkExperiences {
		r.WorkExperiences[i].Descriptions = nilIfEmpty(r.WorkExperiences[i].Descriptions)
	}
	r.Educations = nilIfEmpty(r.Educations)
	for i := range r.Educations {
		r.Educations[i].Descriptions = nilIfEmpty(r.Educations[i].Descriptions)
	}
	r.Projects = nilIfEmpty(r.Projects)
	for i := range r.Projects {
		r.Projects[i].Descriptions = nilIfEmpty(r.Projects[i].Descriptions)
	}
	r.Skills.Featured = nilIfEmpty(r.Skills.Featured)
	r.Skills.Descriptions = nilIfEmpty(r.Skills.Descriptions)
	r.Custom.Descriptions = nilIfEmpty(r.Custom.Descriptions)

	st := &c.Settings
	st.FormToShow = nilIfEmptyMap(st.FormToShow)
	st.FormToHeading = nilIfEmptyMap(st.FormToHeading)
	st.ShowBulletPoints = nilIfEmptyMap(st.ShowBulletPoints)
	if st.Columns != nil {
		st.Columns.Main = nilIfEmpty(st.Columns.Main)
		st.Columns.Sidebar = nilIfEmpty(st.Columns.Sidebar)
	}
	return c
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

func nilIfEmptyMap[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	return m
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// FileStem sanitizes the profile name for use in a download file name:
// every run of characters outside [A-Za-z0-9] becomes one underscore and
// underscores at both ends are trimmed. An empty result falls back to
// "resume".
func FileStem(name string) string {
	stem := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if stem == "" {
		return "resume"
	}
	return stem
}

// Validate reports input problems of the snapshot. They are warnings only:
// every snapshot renders.
func (s Snapshot) Validate() []string {
	warnings := s.Resume.Warnings()
	if s.Settings.Columns != nil {
		for _, k := range append(slices.Clone(s.Settings.Columns.Main), s.Settings.Columns.Sidebar...) {
			if !k.Valid() {
				warnings = append(warnings, "column partition holds an unknown section, ignored")
				break
			}
		}
	}
	return warnings
}
