package exporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Open "resume schema" shape (basics/work/education/skills/languages/
// projects). Lists are always present, never null, so consumers can range
// without nil checks.
type resumeSchema struct {
	Basics    resumeBasics     `json:"basics"`
	Work      []resumeWork     `json:"work"`
	Education []resumeStudy    `json:"education"`
	Skills    []resumeSkill    `json:"skills"`
	Languages []resumeLanguage `json:"languages"`
	Projects  []resumeProject  `json:"projects"`
}

type resumeBasics struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	URL      string `json:"url,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Location string `json:"location,omitempty"`
}

type resumeWork struct {
	Name      string `json:"name"`
	Position  string `json:"position"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

type resumeStudy struct {
	Institution string `json:"institution"`
	StudyType   string `json:"studyType,omitempty"`
	Area        string `json:"area,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

type resumeSkill struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

type resumeLanguage struct {
	Language string `json:"language"`
	Fluency  string `json:"fluency,omitempty"`
}

type resumeProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Internal "portable" shape: the full projection under format/version tags,
// for lossless transfer between instances.
type portableExport struct {
	Format  string            `json:"format"`
	Version string            `json:"version"`
	Resume  ResumeExportModel `json:"resume"`
}

const (
	portableFormatTag = "resume-export"
	portableVersion   = "1"
)

// isoDate formats a date for the resume schema; empty for the zero time.
func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// generateJSON maps the projection into the selected schema variant.
// The zero schema name selects the open resume schema.
func generateJSON(model *ResumeExportModel, schema string) ([]byte, error) {
	if schema == "" {
		schema = SchemaResume
	}
	switch strings.ToLower(schema) {
	case SchemaResume:
		return json.MarshalIndent(buildResumeSchema(model), "", "  ")
	case SchemaPortable:
		return json.MarshalIndent(portableExport{
			Format:  portableFormatTag,
			Version: portableVersion,
			Resume:  *model,
		}, "", "  ")
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, schema)
}

func buildResumeSchema(model *ResumeExportModel) *resumeSchema {
	out := &resumeSchema{
		Basics: resumeBasics{
			Name:     model.User.FullName,
			Label:    model.User.Headline,
			Email:    model.User.Email,
			Phone:    model.User.Phone,
			URL:      model.User.Website,
			Summary:  flattenHTML(model.User.Summary),
			Location: model.User.Location,
		},
		Work:      []resumeWork{},
		Education: []resumeStudy{},
		Skills:    []resumeSkill{},
		Languages: []resumeLanguage{},
		Projects:  []resumeProject{},
	}

	for _, exp := range model.Experiences {
		// A current position keeps an empty endDate; schema consumers read
		// a missing endDate as "to present".
		out.Work = append(out.Work, resumeWork{
			Name:      exp.Company,
			Position:  exp.Position,
			StartDate: isoDate(exp.Start),
			EndDate:   isoDate(exp.End),
			Summary:   flattenHTML(exp.Description),
		})
	}

	for _, edu := range model.Education {
		out.Education = append(out.Education, resumeStudy{
			Institution: edu.School,
			StudyType:   edu.Degree,
			Area:        edu.Field,
			StartDate:   isoDate(edu.Start),
			EndDate:     isoDate(edu.End),
		})
	}

	for _, s := range model.Skills {
		out.Skills = append(out.Skills, resumeSkill{Name: s.Name, Level: s.Level})
	}

	for _, l := range model.Languages {
		out.Languages = append(out.Languages, resumeLanguage{Language: l.Name, Fluency: l.Level})
	}

	for _, p := range model.Projects {
		out.Projects = append(out.Projects, resumeProject{
			Name:        p.Name,
			Description: flattenHTML(p.Description),
			URL:         p.URL,
			Keywords:    p.Technologies,
		})
	}

	return out
}
