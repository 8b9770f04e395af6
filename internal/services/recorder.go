// Package services provides internal service implementations for the coach backend.
package services

import (
	"context"

	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"go.uber.org/zap"
)

// StoreRecorder implements activity.Recorder by appending straight to the store
type StoreRecorder struct {
	Store store.Store
}

// Record appends the entry
func (r *StoreRecorder) Record(ctx context.Context, entry model.ActivityLog) error {
	if entry.Key == "" {
		entry.Key = store.NewKey()
	}
	return r.Store.AppendActivity(ctx, &entry)
}

// ActivityPublisher is the producer side used by KafkaRecorder
type ActivityPublisher interface {
	PublishActivityRecorded(ctx context.Context, entry model.ActivityLog) error
}

// KafkaRecorder implements activity.Recorder by publishing to the activity topic.
// Entries that cannot be published are appended to Fallback so the log never loses them.
type KafkaRecorder struct {
	Publisher ActivityPublisher
	Fallback  store.Store
	Logger    *zap.Logger
}

// Record publishes the entry, falling back to the store on failure
func (r *KafkaRecorder) Record(ctx context.Context, entry model.ActivityLog) error {
	// The key is fixed before publishing; the consumer and the fallback write the same row
	if entry.Key == "" {
		entry.Key = store.NewKey()
	}

	err := r.Publisher.PublishActivityRecorded(ctx, entry)
	if err == nil {
		return nil
	}

	if r.Logger != nil {
		r.Logger.Warn("Failed to publish activity event, writing to store",
			zap.String("action", entry.Action),
			zap.String("org", entry.OrgKey),
			zap.Error(err))
	}
	if r.Fallback == nil {
		return err
	}
	return r.Fallback.AppendActivity(ctx, &entry)
}

// Ensure compile-time interface checks
var (
	_ activity.Recorder      = (*StoreRecorder)(nil)
	_ activity.Recorder      = (*KafkaRecorder)(nil)
	_ ActivityPublisher      = (*activity.ActivityProducer)(nil)
	_ activity.ActivityStore = (store.Store)(nil)
)
