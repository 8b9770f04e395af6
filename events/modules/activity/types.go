// Package activity defines types for Kafka event processing of activity log entries.
package activity

import (
	"context"
	"time"

	"github.com/leancoach/coach-backend/model"
)

// Event contract constants
const (
	EventTypeActivityRecorded = "activity.recorded"
	SchemaVersion             = "v1"
)

// ActivityRecordedEvent represents one audit entry published to Kafka.
type ActivityRecordedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	Activity model.ActivityLog `json:"activity"`
}

// Recorder appends activity entries, either directly or through the event pipeline.
type Recorder interface {
	Record(ctx context.Context, entry model.ActivityLog) error
}

// ActivityStore defines the persistence the event handler needs.
type ActivityStore interface {
	AppendActivity(ctx context.Context, entry *model.ActivityLog) error
}
