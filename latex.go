package exporter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// escapeLaTeX neutralizes the ten LaTeX-special characters in user-supplied
// text. Applied uniformly to every interpolated string regardless of
// template, before it ever reaches a template.
func escapeLaTeX(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\textbackslash{}`)
		case '&', '%', '$', '#', '_', '{', '}':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '~':
			sb.WriteString(`\textasciitilde{}`)
		case '^':
			sb.WriteString(`\textasciicircum{}`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// latexView carries pre-escaped strings into the templates. Escaping happens
// once while building the view so templates stay interpolation-only.
type latexView struct {
	Name           string
	Headline       string
	Contact        string
	Summary        string
	Experiences    []latexEntry
	Education      []latexEntry
	Skills         string
	Projects       []latexEntry
	Languages      string
	Certifications []string
	Contributions  []latexEntry
}

// latexEntry is one dated entry in any list section.
type latexEntry struct {
	Title    string
	Subtitle string
	Dates    string
	Body     string
}

const simpleTemplate = `\documentclass[11pt,a4paper]{article}
\usepackage[utf8]{inputenc}
\usepackage[margin=2cm]{geometry}
\setlength{\parindent}{0pt}
\begin{document}

{\huge\bfseries {{.Name}}}
{{if .Headline}}

{{.Headline}}
{{end}}{{if .Contact}}
{{.Contact}}
{{end}}{{if .Summary}}
\section*{Summary}
{{.Summary}}
{{end}}{{if .Experiences}}
\section*{Experience}
{{range .Experiences}}\textbf{ {{- .Title -}} }{{if .Subtitle}} --- {{.Subtitle}}{{end}}{{if .Dates}} \hfill {{.Dates}}{{end}}
{{if .Body}}
{{.Body}}
{{end}}
{{end}}{{end}}{{if .Education}}
\section*{Education}
{{range .Education}}\textbf{ {{- .Title -}} }{{if .Subtitle}} --- {{.Subtitle}}{{end}}{{if .Dates}} \hfill {{.Dates}}{{end}}

{{end}}{{end}}{{if .Skills}}
\section*{Skills}
{{.Skills}}
{{end}}{{if .Projects}}
\section*{Projects}
{{range .Projects}}\textbf{ {{- .Title -}} }
{{if .Body}}
{{.Body}}
{{end}}
{{end}}{{end}}{{if .Languages}}
\section*{Languages}
{{.Languages}}
{{end}}{{if .Certifications}}
\section*{Certifications}
\begin{itemize}
{{range .Certifications}}\item {{.}}
{{end}}\end{itemize}
{{end}}{{if .Contributions}}
\section*{Open Source}
{{range .Contributions}}\textbf{ {{- .Title -}} }
{{if .Body}}
{{.Body}}
{{end}}
{{end}}{{end}}
\end{document}
`

const moderncvTemplate = `\documentclass[11pt,a4paper]{moderncv}
\moderncvstyle{classic}
\moderncvcolor{blue}
\usepackage[utf8]{inputenc}
\usepackage[scale=0.8]{geometry}
\name{ {{- .Name -}} }{}
{{if .Headline}}\title{ {{- .Headline -}} }
{{end}}\begin{document}
\makecvtitle
{{if .Summary}}
\section{Summary}
\cvitem{}{ {{- .Summary -}} }
{{end}}{{if .Experiences}}
\section{Experience}
{{range .Experiences}}\cventry{ {{- .Dates -}} }{ {{- .Title -}} }{ {{- .Subtitle -}} }{}{}{ {{- .Body -}} }
{{end}}{{end}}{{if .Education}}
\section{Education}
{{range .Education}}\cventry{ {{- .Dates -}} }{ {{- .Title -}} }{ {{- .Subtitle -}} }{}{}{}
{{end}}{{end}}{{if .Skills}}
\section{Skills}
\cvitem{}{ {{- .Skills -}} }
{{end}}{{if .Projects}}
\section{Projects}
{{range .Projects}}\cvitem{ {{- .Title -}} }{ {{- .Body -}} }
{{end}}{{end}}{{if .Languages}}
\section{Languages}
\cvitem{}{ {{- .Languages -}} }
{{end}}{{if .Certifications}}
\section{Certifications}
{{range .Certifications}}\cvitem{}{ {{- . -}} }
{{end}}{{end}}{{if .Contributions}}
\section{Open Source}
{{range .Contributions}}\cvitem{ {{- .Title -}} }{ {{- .Body -}} }
{{end}}{{end}}
\end{document}
`

var latexTemplates = map[string]*template.Template{
	TemplateSimple:   template.Must(template.New(TemplateSimple).Parse(simpleTemplate)),
	TemplateModernCV: template.Must(template.New(TemplateModernCV).Parse(moderncvTemplate)),
}

// generateLaTeX renders the projection through the selected template.
// Empty sections are omitted; the zero template name selects "simple".
func generateLaTeX(model *ResumeExportModel, templateName string) ([]byte, error) {
	if templateName == "" {
		templateName = TemplateSimple
	}
	tmpl, ok := latexTemplates[strings.ToLower(templateName)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateName)
	}

	view := buildLaTeXView(model)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("rendering latex: %w", err)
	}
	return buf.Bytes(), nil
}

func buildLaTeXView(model *ResumeExportModel) *latexView {
	v := &latexView{
		Name:     escapeLaTeX(model.User.FullName),
		Headline: escapeLaTeX(model.User.Headline),
		Contact:  escapeLaTeX(contactLine(model.User)),
		Summary:  escapeLaTeX(flattenHTML(model.User.Summary)),
	}

	for _, exp := range model.Experiences {
		v.Experiences = append(v.Experiences, latexEntry{
			Title:    escapeLaTeX(exp.Position),
			Subtitle: escapeLaTeX(exp.Company),
			Dates:    escapeLaTeX(dateRange(exp.Start, exp.End, exp.IsCurrent)),
			Body:     escapeLaTeX(flattenHTML(exp.Description)),
		})
	}

	for _, edu := range model.Education {
		degree := edu.Degree
		if edu.Field != "" {
			degree += " in " + edu.Field
		}
		v.Education = append(v.Education, latexEntry{
			Title:    escapeLaTeX(degree),
			Subtitle: escapeLaTeX(edu.School),
			Dates:    escapeLaTeX(dateRange(edu.Start, edu.End, false)),
		})
	}

	if len(model.Skills) > 0 {
		names := make([]string, len(model.Skills))
		for i, s := range model.Skills {
			names[i] = escapeLaTeX(s.Name)
		}
		v.Skills = strings.Join(names, ` \textbullet{} `)
	}

	for _, prj := range model.Projects {
		body := flattenHTML(prj.Description)
		if len(prj.Technologies) > 0 {
			if body != "" {
				body += " "
			}
			body += "(" + strings.Join(prj.Technologies, ", ") + ")"
		}
		v.Projects = append(v.Projects, latexEntry{
			Title: escapeLaTeX(prj.Name),
			Body:  escapeLaTeX(body),
		})
	}

	if len(model.Languages) > 0 {
		entries := make([]string, len(model.Languages))
		for i, l := range model.Languages {
			entries[i] = escapeLaTeX(formatLanguage(l))
		}
		v.Languages = strings.Join(entries, ` \textbullet{} `)
	}

	for _, c := range model.Certifications {
		line := c.Name
		if c.Issuer != "" {
			line += " — " + c.Issuer
		}
		if d := monthYear(c.Date); d != "" {
			line += " (" + d + ")"
		}
		v.Certifications = append(v.Certifications, escapeLaTeX(line))
	}

	for _, c := range model.Contributions {
		body := flattenHTML(c.Description)
		if c.URL != "" {
			if body != "" {
				body += " "
			}
			body += c.URL
		}
		v.Contributions = append(v.Contributions, latexEntry{
			Title: escapeLaTeX(c.Name),
			Body:  escapeLaTeX(body),
		})
	}

	return v
}
