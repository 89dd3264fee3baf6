package resume

import (
	"slices"
	"strconv"
	"strings"
)

// Record 是一次渲染使用的简历内容快照，字段名与前端状态保持一致。
type Record struct {
	Profile         Profile          `json:"profile"`
	WorkExperiences []WorkExperience `json:"workExperiences"`
	Educations      []Education      `json:"educations"`
	Projects        []Project        `json:"projects"`
	Skills          SkillsSection    `json:"skills"`
	Custom          CustomSection    `json:"custom"`
}

type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	URL      string `json:"url"`
	Summary  string `json:"summary"`
	Location string `json:"location"`
}

type WorkExperience struct {
	Company      string   `json:"company"`
	JobTitle     string   `json:"jobTitle"`
	Date         string   `json:"date"`
	Descriptions []string `json:"descriptions"`
}

// Blank reports whether the entry carries no content at all. Blank entries
// are skipped by the renderers.
func (w WorkExperience) Blank() bool {
	return isBlank(w.Company) && isBlank(w.JobTitle) && isBlank(w.Date) && allBlank(w.Descriptions)
}

type Education struct {
	School       string   `json:"school"`
	StudyType    string   `json:"studyType"`
	Area         string   `json:"area"`
	GPA          string   `json:"gpa"`
	Date         string   `json:"date"`
	Descriptions []string `json:"descriptions"`
}

func (e Education) Blank() bool {
	return isBlank(e.School) && isBlank(e.StudyType) && isBlank(e.Area) &&
		isBlank(e.GPA) && isBlank(e.Date) && allBlank(e.Descriptions)
}

type Project struct {
	Name         string   `json:"project"`
	Date         string   `json:"date"`
	Descriptions []string `json:"descriptions"`
}

func (p Project) Blank() bool {
	return isBlank(p.Name) && isBlank(p.Date) && allBlank(p.Descriptions)
}

// FeaturedSkill carries a 0–5 self rating.
type FeaturedSkill struct {
	Skill  string `json:"skill"`
	Rating int    `json:"rating"`
}

// SkillsSection holds the free-form skill list and the rated featured skills.
type SkillsSection struct {
	Featured     []FeaturedSkill `json:"featuredSkills"`
	Descriptions []string        `json:"descriptions"`
}

// CustomSection holds the free-form section; its heading lives in Settings.FormToHeading.
type CustomSection struct {
	Descriptions []string `json:"descriptions"`
}

// Clone returns a deep copy so callers can never alias the caller's slices.
// Nil slices stay nil.
func (r Record) Clone() Record {
	out := r
	out.WorkExperiences = slices.Clone(r.WorkExperiences)
	for i := range out.WorkExperiences {
		out.WorkExperiences[i].Descriptions = slices.Clone(out.WorkExperiences[i].Descriptions)
	}
	out.Educations = slices.Clone(r.Educations)
	for i := range out.Educations {
		out.Educations[i].Descriptions = slices.Clone(out.Educations[i].Descriptions)
	}
	out.Projects = slices.Clone(r.Projects)
	for i := range out.Projects {
		out.Projects[i].Descriptions = slices.Clone(out.Projects[i].Descriptions)
	}
	out.Skills.Featured = slices.Clone(r.Skills.Featured)
	out.Skills.Descriptions = slices.Clone(r.Skills.Descriptions)
	out.Custom.Descriptions = slices.Clone(r.Custom.Descriptions)
	return out
}

// Warnings lists input problems that are resolved locally with a safe
// default; none of them may fail a render.
func (r Record) Warnings() []string {
	var warnings []string
	if isBlank(r.Profile.Name) {
		warnings = append(warnings, "profile name is empty, generic file name used")
	}
	for i, s := range r.Skills.Featured {
		if s.Rating < 0 || s.Rating > MaxSkillRating {
			warnings = append(warnings, "featured skill "+strconv.Itoa(i)+" rating out of range, clamped")
		}
	}
	return warnings
}

// MaxSkillRating is the number of rating dots on a featured skill.
const MaxSkillRating = 5

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func allBlank(items []string) bool {
	for _, item := range items {
		if !isBlank(item) {
			return false
		}
	}
	return true
}
