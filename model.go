package exporter

import (
	"context"
	"time"
)

// ResumeExportModel is the read-only, fully hydrated projection of a resume
// and its related collections. It is supplied by an external persistence
// collaborator through a ProjectionSource; the export pipeline never mutates
// it and never issues its own queries beyond requesting this projection.
type ResumeExportModel struct {
	Title          string
	User           User
	Experiences    []Experience
	Education      []Education
	Skills         []Skill
	Projects       []Project
	Languages      []Language
	Certifications []Certification
	Contributions  []Contribution
}

// User holds the contact and headline data shown at the top of a resume.
type User struct {
	FullName string
	Email    string
	Phone    string
	Location string
	Headline string
	Summary  string
	Website  string
}

// Experience is one employment entry. A zero End with IsCurrent set renders
// as "Present".
type Experience struct {
	Position    string
	Company     string
	Location    string
	Start       time.Time
	End         time.Time
	IsCurrent   bool
	Description string
}

// Education is one study entry.
type Education struct {
	School string
	Degree string
	Field  string
	Start  time.Time
	End    time.Time
}

// Skill is a named skill with an optional proficiency level.
type Skill struct {
	Name  string
	Level string
}

// Project is a personal or professional project entry.
type Project struct {
	Name         string
	Description  string
	URL          string
	Technologies []string
}

// Language pairs a language name with a fluency level, rendered as
// "Name (Level)".
type Language struct {
	Name  string
	Level string
}

// Certification is an earned certificate.
type Certification struct {
	Name   string
	Issuer string
	Date   time.Time
}

// Contribution is an open-source contribution entry.
type Contribution struct {
	Name        string
	URL         string
	Description string
}

// ProjectionSource supplies resume projections. Implementations must return
// *NotFoundError (Kind "user" or "resume") when the identifier resolves to
// nothing, and must treat the returned model as a read-only snapshot.
type ProjectionSource interface {
	ResumeForUser(ctx context.Context, userID string) (*ResumeExportModel, error)
}
