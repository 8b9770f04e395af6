// Package documents implements the resolvers for A3 document queries.
package documents

import (
	"context"
	"errors"
	"time"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/access"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
)

// ErrUnauthenticated is returned when the query carries no user
var ErrUnauthenticated = errors.New("authentication required")

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func documentMap(doc *model.A3Document) map[string]interface{} {
	return map[string]interface{}{
		"key":            doc.Key,
		"title":          doc.Title,
		"status":         string(doc.Status),
		"department_key": doc.DepartmentKey,
		"author_key":     doc.AuthorKey,
		"created_at":     formatTime(doc.CreatedAt),
		"updated_at":     formatTime(doc.UpdatedAt),
	}
}

// ResolveDocuments lists the documents visible to the caller, newest first
func ResolveDocuments(ctx context.Context, st store.Store, department, status string, limit int) ([]map[string]interface{}, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	filter := store.DocumentFilter{DepartmentKey: department, Limit: limit}
	if status != "" {
		s, err := model.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = s
	}

	docs, err := st.ListDocuments(ctx, filter.VisibleTo(user))
	if err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0, len(docs))
	for i := range docs {
		results = append(results, documentMap(&docs[i]))
	}
	return results, nil
}

// ResolveDocument returns one document with its sections and comment count.
// Documents the caller cannot read resolve to null.
func ResolveDocument(ctx context.Context, st store.Store, key string) (map[string]interface{}, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	doc, err := access.LoadDocument(ctx, user, st, key, access.Read, false)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sections, err := st.ListSections(ctx, doc.Key)
	if err != nil {
		return nil, err
	}
	comments, err := st.ListComments(ctx, doc.Key, "")
	if err != nil {
		return nil, err
	}

	sectionRows := make([]map[string]interface{}, 0, len(sections))
	for _, s := range sections {
		title := ""
		if spec, ok := model.LookupSection(s.SectionType); ok {
			title = spec.Title
		}
		sectionRows = append(sectionRows, map[string]interface{}{
			"section_type": string(s.SectionType),
			"title":        title,
			"content":      s.Content,
			"updated_by":   s.UpdatedBy,
			"updated_at":   formatTime(s.UpdatedAt),
		})
	}

	result := documentMap(doc)
	result["sections"] = sectionRows
	result["comment_count"] = len(comments)
	return result, nil
}
