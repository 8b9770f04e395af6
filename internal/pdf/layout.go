package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/leancoach/coach-backend/model"
)

// Page is the view model of one A3 sheet
type Page struct {
	Title      string
	Status     string
	Department string
	Author     string
	Date       time.Time
	Columns    int
	Sections   []PageSection
}

// PageSection is one rendered region of the sheet
type PageSection struct {
	Type      model.SectionType
	Title     string
	Span      int
	Columns   int
	FullWidth bool
	Truncated bool
	Body      template.HTML
}

// NewPage truncates every section to its budget and renders its markup.
// Sections come out in catalog order whatever order they were stored in.
func NewPage(doc *model.A3Document, sections []model.A3Section, department, author string) (Page, error) {
	content := make(map[model.SectionType]string, len(sections))
	for _, s := range sections {
		content[s.SectionType] = s.Content
	}

	page := Page{
		Title:      doc.Title,
		Status:     statusLabel(doc.Status),
		Department: department,
		Author:     author,
		Date:       doc.UpdatedAt,
		Columns:    model.GridColumns,
		Sections:   make([]PageSection, 0, len(model.SectionCatalog)),
	}

	for _, spec := range model.SectionCatalog {
		raw := content[spec.Type]
		cut := Truncate(raw, spec.CharBudget)
		body, err := RenderMarkdown(cut)
		if err != nil {
			return Page{}, fmt.Errorf("render %s: %w", spec.Type, err)
		}
		page.Sections = append(page.Sections, PageSection{
			Type:      spec.Type,
			Title:     spec.Title,
			Span:      spec.Span,
			Columns:   spec.Columns,
			FullWidth: spec.FullWidth(),
			Truncated: cut != raw,
			Body:      body,
		})
	}
	return page, nil
}

func statusLabel(s model.A3Status) string {
	switch s {
	case model.StatusDraft:
		return "Draft"
	case model.StatusInProgress:
		return "In progress"
	case model.StatusCompleted:
		return "Completed"
	case model.StatusArchived:
		return "Archived"
	}
	return string(s)
}

// RenderHTML lays the page out for printing on A3 landscape
func RenderHTML(p Page) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var pageTemplate = template.Must(template.New("a3").Funcs(template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
	@page { size: 420mm 297mm; margin: 0; }
	* { box-sizing: border-box; }
	html, body { margin: 0; padding: 0; }
	body {
		width: 420mm;
		height: 297mm;
		padding: 10mm;
		font-family: Arial, Helvetica, sans-serif;
		font-size: 9pt;
		line-height: 1.35;
		color: #1a1a1a;
		display: flex;
		flex-direction: column;
		overflow: hidden;
	}
	header {
		display: flex;
		justify-content: space-between;
		align-items: baseline;
		border-bottom: 2px solid #1f4e79;
		padding-bottom: 3mm;
		margin-bottom: 4mm;
	}
	header h1 { margin: 0; font-size: 18pt; color: #1f4e79; }
	header .meta { font-size: 9pt; color: #555; }
	header .meta span { margin-left: 6mm; }
	.grid {
		flex: 1;
		display: grid;
		grid-template-columns: repeat({{.Columns}}, 1fr);
		grid-auto-rows: 1fr;
		gap: 4mm;
		min-height: 0;
	}
	.grid .full { grid-column: 1 / -1; grid-row: auto; }
	section {
		border: 1px solid #9fb3c8;
		border-radius: 2mm;
		padding: 3mm;
		overflow: hidden;
		min-height: 0;
	}
	section h2 {
		margin: 0 0 2mm 0;
		font-size: 10.5pt;
		color: #1f4e79;
		border-bottom: 1px solid #d5dee8;
		padding-bottom: 1mm;
	}
	section .body { column-gap: 4mm; column-fill: auto; overflow-wrap: anywhere; }
	section .body p, section .body ul, section .body ol { margin: 0 0 1.5mm 0; }
	section .body table { border-collapse: collapse; width: 100%; }
	section .body td, section .body th { border: 1px solid #ccc; padding: 0.5mm 1mm; }
</style>
</head>
<body>
<header>
	<h1>{{.Title}}</h1>
	<div class="meta">
		<span>Status: {{.Status}}</span>
		{{- if .Department}}<span>Department: {{.Department}}</span>{{end}}
		{{- if .Author}}<span>Owner: {{.Author}}</span>{{end}}
		{{- with date .Date}}<span>Date: {{.}}</span>{{end}}
	</div>
</header>
<main class="grid">
{{- range .Sections}}
	<section id="{{.Type}}" class="{{if .FullWidth}}full{{end}}"{{if not .FullWidth}} style="grid-column: span {{.Span}};"{{end}}>
		<h2>{{.Title}}</h2>
		<div class="body" style="column-count: {{.Columns}};">{{.Body}}</div>
	</section>
{{- end}}
</main>
</body>
</html>
`))
