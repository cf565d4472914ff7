// Package sqlitesource provides a read-only ProjectionSource over the
// resume application's SQLite database. It hydrates the full export
// projection in one pass and never writes.
package sqlitesource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	exporter "github.com/alnah/go-resume-exporter"
)

// dateLayout is how the application stores dates.
const dateLayout = "2006-01-02"

// Source reads resume projections from SQLite.
type Source struct {
	db *sql.DB
}

// Compile-time interface check.
var _ exporter.ProjectionSource = (*Source)(nil)

// Open opens the database read-only. The caller owns the returned Source
// and must Close it.
func Open(path string) (*Source, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening projection db: %w", err)
	}
	return &Source{db: db}, nil
}

// NewFromDB wraps an existing handle; used by tests with in-memory
// databases.
func NewFromDB(db *sql.DB) *Source {
	return &Source{db: db}
}

// Close releases the database handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// ResumeForUser hydrates the full export projection for one user.
// Returns *exporter.NotFoundError distinguishing a missing user from a
// user without a resume.
func (s *Source) ResumeForUser(ctx context.Context, userID string) (*exporter.ResumeExportModel, error) {
	model := &exporter.ResumeExportModel{}

	err := s.db.QueryRowContext(ctx, `
		SELECT full_name, COALESCE(email,''), COALESCE(phone,''),
		       COALESCE(location,''), COALESCE(headline,''),
		       COALESCE(summary,''), COALESCE(website,'')
		FROM users WHERE id = ?`, userID).Scan(
		&model.User.FullName, &model.User.Email, &model.User.Phone,
		&model.User.Location, &model.User.Headline,
		&model.User.Summary, &model.User.Website)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &exporter.NotFoundError{Kind: "user", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}

	var resumeID int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(title,'') FROM resumes WHERE user_id = ?
		ORDER BY id LIMIT 1`, userID).Scan(&resumeID, &model.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &exporter.NotFoundError{Kind: "resume", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("loading resume for user %s: %w", userID, err)
	}

	for _, load := range []func(context.Context, int64, *exporter.ResumeExportModel) error{
		s.loadExperiences,
		s.loadEducation,
		s.loadSkills,
		s.loadProjects,
		s.loadLanguages,
		s.loadCertifications,
		s.loadContributions,
	} {
		if err := load(ctx, resumeID, model); err != nil {
			return nil, err
		}
	}

	return model, nil
}

func (s *Source) loadExperiences(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, company, COALESCE(location,''),
		       COALESCE(start_date,''), COALESCE(end_date,''),
		       is_current, COALESCE(description,'')
		FROM experiences WHERE resume_id = ? ORDER BY sort, id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading experiences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e exporter.Experience
		var start, end string
		if err := rows.Scan(&e.Position, &e.Company, &e.Location,
			&start, &end, &e.IsCurrent, &e.Description); err != nil {
			return fmt.Errorf("scanning experience: %w", err)
		}
		e.Start = parseDate(start)
		e.End = parseDate(end)
		model.Experiences = append(model.Experiences, e)
	}
	return rows.Err()
}

func (s *Source) loadEducation(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT school, COALESCE(degree,''), COALESCE(field,''),
		       COALESCE(start_date,''), COALESCE(end_date,'')
		FROM education WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading education: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e exporter.Education
		var start, end string
		if err := rows.Scan(&e.School, &e.Degree, &e.Field, &start, &end); err != nil {
			return fmt.Errorf("scanning education: %w", err)
		}
		e.Start = parseDate(start)
		e.End = parseDate(end)
		model.Education = append(model.Education, e)
	}
	return rows.Err()
}

func (s *Source) loadSkills(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COALESCE(level,'') FROM skills
		WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sk exporter.Skill
		if err := rows.Scan(&sk.Name, &sk.Level); err != nil {
			return fmt.Errorf("scanning skill: %w", err)
		}
		model.Skills = append(model.Skills, sk)
	}
	return rows.Err()
}

func (s *Source) loadProjects(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COALESCE(description,''), COALESCE(url,''),
		       COALESCE(technologies,'')
		FROM projects WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p exporter.Project
		var tech string
		if err := rows.Scan(&p.Name, &p.Description, &p.URL, &tech); err != nil {
			return fmt.Errorf("scanning project: %w", err)
		}
		p.Technologies = splitList(tech)
		model.Projects = append(model.Projects, p)
	}
	return rows.Err()
}

func (s *Source) loadLanguages(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COALESCE(level,'') FROM languages
		WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading languages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l exporter.Language
		if err := rows.Scan(&l.Name, &l.Level); err != nil {
			return fmt.Errorf("scanning language: %w", err)
		}
		model.Languages = append(model.Languages, l)
	}
	return rows.Err()
}

func (s *Source) loadCertifications(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COALESCE(issuer,''), COALESCE(issued_on,'')
		FROM certifications WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading certifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c exporter.Certification
		var issued string
		if err := rows.Scan(&c.Name, &c.Issuer, &issued); err != nil {
			return fmt.Errorf("scanning certification: %w", err)
		}
		c.Date = parseDate(issued)
		model.Certifications = append(model.Certifications, c)
	}
	return rows.Err()
}

func (s *Source) loadContributions(ctx context.Context, resumeID int64, model *exporter.ResumeExportModel) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COALESCE(url,''), COALESCE(description,'')
		FROM contributions WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return fmt.Errorf("loading contributions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c exporter.Contribution
		if err := rows.Scan(&c.Name, &c.URL, &c.Description); err != nil {
			return fmt.Errorf("scanning contribution: %w", err)
		}
		model.Contributions = append(model.Contributions, c)
	}
	return rows.Err()
}

// splitList splits a comma-separated column into trimmed entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDate reads an application date; empty or malformed values become the
// zero time so a bad row degrades to a missing date rather than an error.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
