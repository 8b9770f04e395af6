// Package access loads tenant-scoped records on behalf of the current user and
// records audit activity for REST handlers.
package access

import (
	"context"

	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"go.uber.org/zap"
)

// Need is the kind of access a handler requires on a document
type Need int

// Access levels
const (
	Read Need = iota
	Write
)

// LoadDocument fetches a document the user may access.
// Missing, cross-tenant, invisible and (unless includeDeleted) deleted documents
// are all reported as store.ErrNotFound. A readable document the user may not
// edit yields model.ErrPermissionDenied for Write.
func LoadDocument(ctx context.Context, user *model.User, st store.Store, key string, need Need, includeDeleted bool) (*model.A3Document, error) {
	doc, err := st.GetDocument(ctx, user.OrgKey, key)
	if err != nil {
		return nil, err
	}
	if !user.CanReadDocument(doc) {
		return nil, store.ErrNotFound
	}
	if doc.IsDeleted() && !includeDeleted {
		return nil, store.ErrNotFound
	}
	if need == Write && !user.CanWriteDocument(doc) {
		return nil, model.ErrPermissionDenied
	}
	return doc, nil
}

// LoadEditable is LoadDocument for Write that also rejects archived documents
func LoadEditable(ctx context.Context, user *model.User, st store.Store, key string) (*model.A3Document, error) {
	doc, err := LoadDocument(ctx, user, st, key, Write, false)
	if err != nil {
		return nil, err
	}
	if doc.Status == model.StatusArchived {
		return nil, model.ErrArchived
	}
	return doc, nil
}

// Record appends an activity entry. Failures are logged, never returned.
func Record(ctx context.Context, rec activity.Recorder, user *model.User, documentKey, action string, details map[string]string) {
	if rec == nil {
		return
	}
	entry := model.NewActivity(user.OrgKey, documentKey, user.Key, action, details)
	if err := rec.Record(ctx, entry); err != nil {
		zap.L().Warn("failed to record activity",
			zap.String("action", action),
			zap.String("document", documentKey),
			zap.Error(err))
	}
}
