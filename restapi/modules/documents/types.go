package documents

// Content limits
const (
	MaxTitleLength   = 200
	MaxSectionLength = 20000
)

// CreateDocumentRequest starts a new draft. The department defaults to the author's.
type CreateDocumentRequest struct {
	Title         string `json:"title"`
	DepartmentKey string `json:"department_key"`
}

// UpdateDocumentRequest renames a document
type UpdateDocumentRequest struct {
	Title string `json:"title"`
}

// StatusRequest moves a document along its lifecycle
type StatusRequest struct {
	Status string `json:"status"`
}

// SectionRequest replaces one section's content
type SectionRequest struct {
	Content string `json:"content"`
}
