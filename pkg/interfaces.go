package shared

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/campusreports/report-server/pkg/types"
)

// --- Persistence Interfaces ---

type Database interface {
	GetReport(ctx context.Context, id string) (*types.Report, error)
	UpdateReport(ctx context.Context, id string, data map[string]interface{}) error

	// ListApprovedActivities returns the report's activities in approved
	// state, contributions attached. Order is not guaranteed; callers
	// impose their own sort.
	ListApprovedActivities(ctx context.Context, reportID string) ([]*types.ActivityRecord, error)

	// FindTutorName resolves the display name of the tutor assigned to a
	// report. Empty string when no tutor is assigned.
	FindTutorName(ctx context.Context, reportID string) (string, error)
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

// BlobAttrs are the object attributes set on write. Metadata carries the
// per-artifact download token.
type BlobAttrs struct {
	ContentType string
	Metadata    map[string]string
}

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte, attrs *BlobAttrs) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
