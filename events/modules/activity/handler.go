// Package activity handles Kafka event processing for activity log entries.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leancoach/coach-backend/model"
)

// ErrInvalidEvent is returned for events that can never be processed
var ErrInvalidEvent = errors.New("invalid activity event")

// DecodeActivityRecorded parses and validates an activity event payload
func DecodeActivityRecorded(msg []byte) (*ActivityRecordedEvent, error) {
	var event ActivityRecordedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal ActivityRecordedEvent: %v", ErrInvalidEvent, err)
	}

	if event.EventType != EventTypeActivityRecorded {
		return nil, fmt.Errorf("%w: unexpected event type %q", ErrInvalidEvent, event.EventType)
	}
	if event.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %q", ErrInvalidEvent, event.SchemaVersion)
	}
	if event.EventID == "" || event.Activity.OrgKey == "" || event.Activity.UserKey == "" || event.Activity.Action == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidEvent)
	}
	return &event, nil
}

// HandleActivityRecorded processes one activity event from Kafka.
// Redelivered events are stored once.
func HandleActivityRecorded(ctx context.Context, msg []byte, st ActivityStore) (*model.ActivityLog, error) {
	event, err := DecodeActivityRecorded(msg)
	if err != nil {
		return nil, err
	}

	entry := event.Activity
	entry.Key = event.EventID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = event.EventTime
	}

	if err := st.AppendActivity(ctx, &entry); err != nil {
		return nil, fmt.Errorf("internal service error: %w", err)
	}
	return &entry, nil
}
