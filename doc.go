// Package exporter renders resumes into shareable documents: pixel-exact
// PDFs and banner images through headless Chrome, and DOCX, LaTeX and JSON
// documents assembled directly from resume data.
//
// # Quick Start
//
// Create an Exporter around a projection source, export, and close when done:
//
//	exp, err := exporter.New(source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	art, err := exp.Export(ctx, exporter.Request{
//	    Format: exporter.FormatPDF,
//	    UserID: "u-42",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("resume.pdf", art.Data, 0644)
//
// # Architecture
//
// Browser-backed formats (PDF, banner PNG) flow through three layers:
//
//  1. SessionManager owns the single Chrome process: lazy launch, crash
//     detection, transparent relaunch.
//  2. Governor bounds how many render surfaces (isolated pages) may be open
//     at once and enforces the request deadline across waiting and every
//     engine call.
//  3. Pipeline navigates to the front-end export view, waits for the page's
//     readiness markers, re-renders a stripped-down document, and captures
//     the artifact.
//
// DOCX, LaTeX and JSON generation never touch the browser; they transform
// the read-only resume projection supplied by a ProjectionSource.
//
// All externally supplied URLs (notably the banner logo) are checked against
// a host allow-list before the browser is ever asked to navigate.
package exporter
