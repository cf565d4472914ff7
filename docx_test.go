package exporter

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

func sampleModel() *ResumeExportModel {
	return &ResumeExportModel{
		Title: "Main resume",
		User: User{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "+44 20 0000 0000",
			Location: "London",
			Headline: "Analyst & Engineer",
			Summary:  "<p>Works on <b>analytical engines</b>.</p>",
			Website:  "https://ada.example.com",
		},
		Experiences: []Experience{
			{
				Position:    "Principal Analyst",
				Company:     "Babbage & Co",
				Start:       time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
				IsCurrent:   true,
				Description: "<ul><li>Wrote the first program</li></ul>",
			},
			{
				Position: "Junior Analyst",
				Company:  "Self-employed",
				Start:    time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
				End:      time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		Education: []Education{
			{School: "Home tutoring", Degree: "BSc", Field: "Mathematics",
				Start: time.Date(2014, time.September, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2018, time.June, 1, 0, 0, 0, 0, time.UTC)},
		},
		Skills:    []Skill{{Name: "Go", Level: "expert"}, {Name: "Mathematics"}},
		Projects:  []Project{{Name: "Notes on the Engine", Description: "Annotated translation", URL: "https://example.com/notes", Technologies: []string{"pen", "paper"}}},
		Languages: []Language{{Name: "English", Level: "native"}, {Name: "French", Level: "fluent"}},
		Certifications: []Certification{
			{Name: "Certified Analyst", Issuer: "Royal Society", Date: time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)},
		},
		Contributions: []Contribution{
			{Name: "engine-sim", URL: "https://github.com/example/engine-sim", Description: "Fixed the carry mechanism"},
		},
	}
}

// readDocxPart unzips a generated document and returns one part's content.
func readDocxPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("generated docx is not a zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return string(content)
	}
	t.Fatalf("part %s missing from docx package", name)
	return ""
}

func TestGenerateDOCX(t *testing.T) {
	t.Parallel()

	data, err := generateDOCX(sampleModel())
	if err != nil {
		t.Fatalf("generateDOCX failed: %v", err)
	}

	for _, part := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/styles.xml", "word/_rels/document.xml.rels"} {
		readDocxPart(t, data, part)
	}

	doc := readDocxPart(t, data, "word/document.xml")

	for _, want := range []string{
		"Ada Lovelace",
		"Analyst &amp; Engineer", // xml-escaped headline
		"ada@example.com | +44 20 0000 0000 | London | https://ada.example.com",
		"Works on analytical engines.", // summary html flattened
		"Principal Analyst — Babbage &amp; Co",
		"Mar 2020 – Present",
		"Jan 2018 – Feb 2020",
		"BSc in Mathematics",
		"Go" + bulletSeparator + "Mathematics",
		"English (native)" + bulletSeparator + "French (fluent)",
		"Certified Analyst — Royal Society (May 2021)",
		"Open Source",
		"engine-sim",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}

	if strings.Contains(doc, "<b>") {
		t.Error("raw html leaked into document.xml")
	}
}

func TestGenerateDOCXEmptyModel(t *testing.T) {
	t.Parallel()

	data, err := generateDOCX(&ResumeExportModel{})
	if err != nil {
		t.Fatalf("generateDOCX on empty model failed: %v", err)
	}

	doc := readDocxPart(t, data, "word/document.xml")
	for _, heading := range []string{"Summary", "Experience", "Education", "Skills", "Projects", "Languages", "Certifications", "Open Source"} {
		if strings.Contains(doc, heading) {
			t.Errorf("empty model emitted %q section", heading)
		}
	}
	if !strings.Contains(doc, "<w:body>") {
		t.Error("document body missing")
	}
}

func TestXMLEscape(t *testing.T) {
	t.Parallel()

	got := xmlEscape(`<a href="x">R&D 'lab'</a>`)
	want := `&lt;a href=&quot;x&quot;&gt;R&amp;D &apos;lab&apos;&lt;/a&gt;`
	if got != want {
		t.Errorf("xmlEscape = %q, want %q", got, want)
	}
}

func TestContactLine(t *testing.T) {
	t.Parallel()

	if got := contactLine(User{}); got != "" {
		t.Errorf("contactLine(empty) = %q, want empty", got)
	}
	if got := contactLine(User{Email: "a@b.c", Location: "Lyon"}); got != "a@b.c | Lyon" {
		t.Errorf("contactLine = %q, want fields joined with pipes", got)
	}
}
