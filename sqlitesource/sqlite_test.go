package sqlitesource

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	exporter "github.com/alnah/go-resume-exporter"
)

const testSchema = `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	full_name TEXT NOT NULL,
	email TEXT, phone TEXT, location TEXT,
	headline TEXT, summary TEXT, website TEXT
);
CREATE TABLE resumes (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT
);
CREATE TABLE experiences (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	position TEXT NOT NULL, company TEXT NOT NULL, location TEXT,
	start_date TEXT, end_date TEXT, is_current INTEGER NOT NULL DEFAULT 0,
	description TEXT, sort INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE education (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	school TEXT NOT NULL, degree TEXT, field TEXT,
	start_date TEXT, end_date TEXT
);
CREATE TABLE skills (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	name TEXT NOT NULL, level TEXT
);
CREATE TABLE projects (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	name TEXT NOT NULL, description TEXT, url TEXT, technologies TEXT
);
CREATE TABLE languages (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	name TEXT NOT NULL, level TEXT
);
CREATE TABLE certifications (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	name TEXT NOT NULL, issuer TEXT, issued_on TEXT
);
CREATE TABLE contributions (
	id INTEGER PRIMARY KEY,
	resume_id INTEGER NOT NULL,
	name TEXT NOT NULL, url TEXT, description TEXT
);
`

func newTestSource(t *testing.T) *Source {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// One connection only: each in-memory connection is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return NewFromDB(db)
}

func seedResume(t *testing.T, src *Source) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users VALUES ('u1', 'Ada Lovelace', 'ada@example.com', NULL, 'London', 'Analyst', 'First programmer', 'https://ada.example.com')`,
		`INSERT INTO users (id, full_name) VALUES ('u2', 'No Resume Yet')`,
		`INSERT INTO resumes VALUES (1, 'u1', 'Main resume')`,
		`INSERT INTO experiences (resume_id, position, company, start_date, end_date, is_current, description, sort)
		 VALUES (1, 'Junior Analyst', 'Self-employed', '2018-01-01', '2020-02-01', 0, 'early work', 2)`,
		`INSERT INTO experiences (resume_id, position, company, start_date, is_current, sort)
		 VALUES (1, 'Principal Analyst', 'Babbage & Co', '2020-03-01', 1, 1)`,
		`INSERT INTO education (resume_id, school, degree, field, start_date, end_date)
		 VALUES (1, 'Home tutoring', 'BSc', 'Mathematics', '2014-09-01', '2018-06-01')`,
		`INSERT INTO skills (resume_id, name, level) VALUES (1, 'Go', 'expert')`,
		`INSERT INTO skills (resume_id, name) VALUES (1, 'Mathematics')`,
		`INSERT INTO projects (resume_id, name, description, url, technologies)
		 VALUES (1, 'Notes', 'Annotated translation', 'https://example.com/notes', 'pen, paper, ')`,
		`INSERT INTO languages (resume_id, name, level) VALUES (1, 'English', 'native')`,
		`INSERT INTO certifications (resume_id, name, issuer, issued_on)
		 VALUES (1, 'Certified Analyst', 'Royal Society', '2021-05-01')`,
		`INSERT INTO contributions (resume_id, name, url, description)
		 VALUES (1, 'engine-sim', 'https://github.com/example/engine-sim', 'Fixed the carry mechanism')`,
	}
	for _, stmt := range stmts {
		if _, err := src.db.Exec(stmt); err != nil {
			t.Fatalf("seeding %q: %v", stmt, err)
		}
	}
}

func TestResumeForUser(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)
	seedResume(t, src)

	model, err := src.ResumeForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ResumeForUser failed: %v", err)
	}

	if model.Title != "Main resume" {
		t.Errorf("Title = %q, want %q", model.Title, "Main resume")
	}
	if model.User.FullName != "Ada Lovelace" || model.User.Phone != "" {
		t.Errorf("User = %+v, want name set and null phone as empty string", model.User)
	}

	if len(model.Experiences) != 2 {
		t.Fatalf("len(Experiences) = %d, want 2", len(model.Experiences))
	}
	// Sort column orders entries, not insertion order.
	first := model.Experiences[0]
	if first.Position != "Principal Analyst" {
		t.Errorf("Experiences[0].Position = %q, want sort order honored", first.Position)
	}
	if !first.IsCurrent {
		t.Error("Experiences[0].IsCurrent = false, want true")
	}
	wantStart := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !first.Start.Equal(wantStart) {
		t.Errorf("Experiences[0].Start = %v, want %v", first.Start, wantStart)
	}
	if !first.End.IsZero() {
		t.Errorf("Experiences[0].End = %v, want zero for current position", first.End)
	}

	if len(model.Education) != 1 || model.Education[0].Field != "Mathematics" {
		t.Errorf("Education = %+v, want the seeded entry", model.Education)
	}
	if len(model.Skills) != 2 || model.Skills[1].Level != "" {
		t.Errorf("Skills = %+v, want level null as empty string", model.Skills)
	}

	if len(model.Projects) != 1 {
		t.Fatalf("len(Projects) = %d, want 1", len(model.Projects))
	}
	tech := model.Projects[0].Technologies
	if len(tech) != 2 || tech[0] != "pen" || tech[1] != "paper" {
		t.Errorf("Technologies = %v, want trimmed comma-separated entries", tech)
	}

	if len(model.Certifications) != 1 || model.Certifications[0].Date.IsZero() {
		t.Errorf("Certifications = %+v, want issued date parsed", model.Certifications)
	}
	if len(model.Contributions) != 1 || model.Contributions[0].Name != "engine-sim" {
		t.Errorf("Contributions = %+v, want the seeded entry", model.Contributions)
	}
}

func TestResumeForUserNotFound(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)
	seedResume(t, src)

	_, err := src.ResumeForUser(context.Background(), "ghost")
	var nf *exporter.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "user" {
		t.Errorf("unknown user error = %v, want user not-found", err)
	}

	_, err = src.ResumeForUser(context.Background(), "u2")
	if !errors.As(err, &nf) || nf.Kind != "resume" {
		t.Errorf("user without resume error = %v, want resume not-found", err)
	}
}

func TestParseDateDegradesQuietly(t *testing.T) {
	t.Parallel()

	if got := parseDate(""); !got.IsZero() {
		t.Errorf("parseDate(empty) = %v, want zero", got)
	}
	if got := parseDate("not-a-date"); !got.IsZero() {
		t.Errorf("parseDate(malformed) = %v, want zero", got)
	}
	want := time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)
	if got := parseDate("2021-05-01"); !got.Equal(want) {
		t.Errorf("parseDate = %v, want %v", got, want)
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
