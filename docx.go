package exporter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// bulletSeparator joins inline list sections (skills, languages).
const bulletSeparator = " • "

// Static OOXML package parts. The document itself is assembled in
// generateDOCX; everything else is boilerplate the Word format requires.
const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

	docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:styleId="Title">
<w:name w:val="Title"/><w:rPr><w:b/><w:sz w:val="48"/></w:rPr>
</w:style>
<w:style w:type="paragraph" w:styleId="Heading1">
<w:name w:val="heading 1"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr>
</w:style>
</w:styles>`
)

// docxBuilder accumulates WordprocessingML paragraphs.
type docxBuilder struct {
	body strings.Builder
}

func (b *docxBuilder) styled(style, text string) {
	b.body.WriteString(`<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
	b.body.WriteString(`<w:r><w:t xml:space="preserve">` + xmlEscape(text) + `</w:t></w:r></w:p>`)
}

func (b *docxBuilder) heading(text string) { b.styled("Heading1", text) }
func (b *docxBuilder) title(text string)   { b.styled("Title", text) }

func (b *docxBuilder) para(text string) {
	b.body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + xmlEscape(text) + `</w:t></w:r></w:p>`)
}

// boldLead writes a paragraph with a bold lead run followed by a plain one.
func (b *docxBuilder) boldLead(lead, rest string) {
	b.body.WriteString(`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + xmlEscape(lead) + `</w:t></w:r>`)
	if rest != "" {
		b.body.WriteString(`<w:r><w:t xml:space="preserve">` + xmlEscape(rest) + `</w:t></w:r>`)
	}
	b.body.WriteString(`</w:p>`)
}

func (b *docxBuilder) document() string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + b.body.String() + `</w:body>
</w:document>`
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string { return xmlEscaper.Replace(s) }

// generateDOCX assembles a Word document from the projection, section by
// section. Sections with no source data are omitted entirely; an all-empty
// resume still yields a valid document with just the header.
func generateDOCX(model *ResumeExportModel) ([]byte, error) {
	var b docxBuilder

	if model.User.FullName != "" {
		b.title(model.User.FullName)
	}
	if model.User.Headline != "" {
		b.para(model.User.Headline)
	}
	if contact := contactLine(model.User); contact != "" {
		b.para(contact)
	}

	if model.User.Summary != "" {
		b.heading("Summary")
		b.para(flattenHTML(model.User.Summary))
	}

	if len(model.Experiences) > 0 {
		b.heading("Experience")
		for _, exp := range model.Experiences {
			b.boldLead(exp.Position+" — "+exp.Company, "")
			if dates := dateRange(exp.Start, exp.End, exp.IsCurrent); dates != "" {
				b.para(dates)
			}
			if exp.Description != "" {
				b.para(flattenHTML(exp.Description))
			}
		}
	}

	if len(model.Education) > 0 {
		b.heading("Education")
		for _, edu := range model.Education {
			degree := edu.Degree
			if edu.Field != "" {
				degree += " in " + edu.Field
			}
			b.boldLead(degree, "")
			b.para(edu.School)
			if dates := dateRange(edu.Start, edu.End, false); dates != "" {
				b.para(dates)
			}
		}
	}

	if len(model.Skills) > 0 {
		b.heading("Skills")
		names := make([]string, len(model.Skills))
		for i, s := range model.Skills {
			names[i] = s.Name
		}
		b.para(strings.Join(names, bulletSeparator))
	}

	if len(model.Projects) > 0 {
		b.heading("Projects")
		for _, prj := range model.Projects {
			b.boldLead(prj.Name, "")
			if prj.Description != "" {
				b.para(flattenHTML(prj.Description))
			}
			if len(prj.Technologies) > 0 {
				b.para(strings.Join(prj.Technologies, ", "))
			}
		}
	}

	if len(model.Languages) > 0 {
		b.heading("Languages")
		entries := make([]string, len(model.Languages))
		for i, l := range model.Languages {
			entries[i] = formatLanguage(l)
		}
		b.para(strings.Join(entries, bulletSeparator))
	}

	if len(model.Certifications) > 0 {
		b.heading("Certifications")
		for _, c := range model.Certifications {
			line := c.Name
			if c.Issuer != "" {
				line += " — " + c.Issuer
			}
			if d := monthYear(c.Date); d != "" {
				line += " (" + d + ")"
			}
			b.para(line)
		}
	}

	if len(model.Contributions) > 0 {
		b.heading("Open Source")
		for _, c := range model.Contributions {
			b.boldLead(c.Name, "")
			if c.Description != "" {
				b.para(flattenHTML(c.Description))
			}
			if c.URL != "" {
				b.para(c.URL)
			}
		}
	}

	return packDOCX(b.document())
}

// packDOCX writes the OOXML package zip around the document part.
func packDOCX(documentXML string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name, content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/styles.xml", docxStyles},
		{"word/document.xml", documentXML},
	}

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing docx: %w", err)
	}
	return buf.Bytes(), nil
}

// contactLine joins the non-empty contact fields.
func contactLine(u User) string {
	var parts []string
	for _, v := range []string{u.Email, u.Phone, u.Location, u.Website} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}

// formatLanguage renders "Name (Level)", or just the name without a level.
func formatLanguage(l Language) string {
	if l.Level == "" {
		return l.Name
	}
	return l.Name + " (" + l.Level + ")"
}
