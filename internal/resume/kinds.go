package resume

import (
	"errors"
	"fmt"
)

// SectionKind 标识简历中的一个固定分区。取值集合封闭，新增分区需要修改这里和所有 switch。
type SectionKind uint8

const (
	WorkExperiences SectionKind = iota + 1
	Educations
	Projects
	Skills
	Custom
)

// Kinds lists every section kind in canonical order.
var Kinds = [...]SectionKind{WorkExperiences, Educations, Projects, Skills, Custom}

var ErrUnknownSectionKind = errors.New("unknown section kind")

func (k SectionKind) String() string {
	switch k {
	case WorkExperiences:
		return "workExperiences"
	case Educations:
		return "educations"
	case Projects:
		return "projects"
	case Skills:
		return "skills"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("SectionKind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k SectionKind) Valid() bool {
	return k >= WorkExperiences && k <= Custom
}

// ParseSectionKind maps the wire identifier back to a kind.
func ParseSectionKind(s string) (SectionKind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSectionKind, s)
}

func (k SectionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSectionKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *SectionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseSectionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
