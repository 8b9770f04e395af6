package pdf

import (
	"context"

	"github.com/leancoach/coach-backend/model"
)

// Exporter builds the A3 sheet of a document and prints it
type Exporter struct {
	Renderer Renderer
}

// Export truncates, lays out and renders doc. department and author are display names.
func (e *Exporter) Export(ctx context.Context, doc *model.A3Document, sections []model.A3Section, department, author string) ([]byte, error) {
	page, err := NewPage(doc, sections, department, author)
	if err != nil {
		return nil, err
	}
	html, err := RenderHTML(page)
	if err != nil {
		return nil, err
	}
	return e.Renderer.Render(ctx, html)
}
