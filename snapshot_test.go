package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExtractSnapshot(t *testing.T) {
	t.Parallel()

	surf := &fakeSurface{evalFunc: func(_ context.Context, js string) (json.RawMessage, error) {
		if !strings.Contains(js, `"#resume-export"`) {
			t.Errorf("snapshot script missing quoted selector: %s", js)
		}
		return json.RawMessage(`{
			"links": ["http://localhost:3000/a.css"],
			"styles": ["body { margin: 0; }"],
			"markup": "<div id=\"resume-export\">hi</div>",
			"vars": {"--bg": "#fff"}
		}`), nil
	}}

	snap, err := extractSnapshot(context.Background(), surf, "#resume-export")
	if err != nil {
		t.Fatalf("extractSnapshot failed: %v", err)
	}
	if len(snap.Links) != 1 || snap.Links[0] != "http://localhost:3000/a.css" {
		t.Errorf("Links = %v, want captured stylesheet link", snap.Links)
	}
	if snap.Vars["--bg"] != "#fff" {
		t.Errorf("Vars = %v, want captured custom property", snap.Vars)
	}
}

func TestExtractSnapshotMissingElement(t *testing.T) {
	t.Parallel()

	surf := &fakeSurface{evalFunc: func(context.Context, string) (json.RawMessage, error) {
		return json.RawMessage(`{"links":[],"styles":[],"markup":"","vars":{}}`), nil
	}}

	_, err := extractSnapshot(context.Background(), surf, "#resume-export")
	if !errors.Is(err, ErrElementNotFound) {
		t.Errorf("extractSnapshot = %v, want ErrElementNotFound", err)
	}
}

func TestBuildCleanDocument(t *testing.T) {
	t.Parallel()

	snap := &StyleSnapshot{
		Links:  []string{`http://localhost:3000/app.css?v="1"`},
		Styles: []string{".x { color: red; }"},
		Markup: `<div id="resume-export">content</div>`,
		Vars:   map[string]string{"--b": "2px", "--a": "1px"},
	}

	doc := buildCleanDocument(snap, "pt-BR")

	if !strings.HasPrefix(doc, "<!DOCTYPE html>") {
		t.Error("document missing doctype")
	}
	if !strings.Contains(doc, `<html lang="pt-BR">`) {
		t.Error("document missing lang attribute")
	}
	if !strings.Contains(doc, "&#34;1&#34;") {
		t.Error("link href not html-escaped")
	}
	if !strings.Contains(doc, ".x { color: red; }") {
		t.Error("inline style block dropped")
	}
	if !strings.Contains(doc, snap.Markup) {
		t.Error("captured markup dropped")
	}
	if !strings.Contains(doc, "focus") {
		t.Error("interactive-strip css dropped")
	}

	// Custom properties emit in sorted order for stable output.
	if strings.Index(doc, "--a: 1px") > strings.Index(doc, "--b: 2px") {
		t.Error("custom properties not sorted")
	}
}

func TestBuildCleanDocumentNoLang(t *testing.T) {
	t.Parallel()

	doc := buildCleanDocument(&StyleSnapshot{Markup: "<div>x</div>"}, "")
	if !strings.Contains(doc, "<html>") {
		t.Error("document should omit lang attribute when language is empty")
	}
}
