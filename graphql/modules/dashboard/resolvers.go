// Package dashboard implements the resolvers for dashboard metrics.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
)

// RecentActivityLimit is the size of the activity feed
const RecentActivityLimit = 10

// activityScanLimit bounds how many entries are checked for visibility
const activityScanLimit = 100

// ErrUnauthenticated is returned when the query carries no user
var ErrUnauthenticated = errors.New("authentication required")

// ResolveDashboard computes status counts, the total and the recent activity
// over the documents the caller may read
func ResolveDashboard(ctx context.Context, st store.Store, department string) (map[string]interface{}, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	counts, err := countByStatus(ctx, st, user, department)
	if err != nil {
		return nil, err
	}

	total := 0
	byStatus := make(map[string]interface{}, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		byStatus[string(s)] = counts[s]
		total += counts[s]
	}

	recent, err := recentActivity(ctx, st, user, department)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_documents": total,
		"by_status":       byStatus,
		"recent_activity": recent,
	}, nil
}

func countByStatus(ctx context.Context, st store.Store, user *model.User, department string) (map[model.A3Status]int, error) {
	if _, all := user.VisibleDepartments(); all {
		return st.CountDocumentsByStatus(ctx, user.OrgKey, department)
	}

	// Restricted users only count what they can read
	filter := store.DocumentFilter{DepartmentKey: department, Limit: store.MaxListLimit}
	counts := make(map[model.A3Status]int, len(model.AllStatuses))
	for {
		docs, err := st.ListDocuments(ctx, filter.VisibleTo(user))
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			counts[d.Status]++
		}
		if len(docs) < filter.Limit {
			return counts, nil
		}
		filter.Offset += len(docs)
	}
}

func recentActivity(ctx context.Context, st store.Store, user *model.User, department string) ([]map[string]interface{}, error) {
	_, all := user.VisibleDepartments()
	limit := RecentActivityLimit
	if !all || department != "" {
		limit = activityScanLimit
	}

	entries, err := st.ListActivity(ctx, store.ActivityFilter{OrgKey: user.OrgKey, Limit: limit})
	if err != nil {
		return nil, err
	}

	docs := map[string]*model.A3Document{}
	visible := func(key string) bool {
		if key == "" {
			return all && department == ""
		}
		doc, seen := docs[key]
		if !seen {
			if d, err := st.GetDocument(ctx, user.OrgKey, key); err == nil && !d.IsDeleted() {
				doc = d
			}
			docs[key] = doc
		}
		if doc == nil || !user.CanReadDocument(doc) {
			return false
		}
		return department == "" || doc.DepartmentKey == department
	}

	out := make([]map[string]interface{}, 0, RecentActivityLimit)
	for _, e := range entries {
		if len(out) == RecentActivityLimit {
			break
		}
		if !visible(e.DocumentKey) {
			continue
		}
		out = append(out, map[string]interface{}{
			"key":          e.Key,
			"document_key": e.DocumentKey,
			"user_key":     e.UserKey,
			"action":       e.Action,
			"created_at":   e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}
