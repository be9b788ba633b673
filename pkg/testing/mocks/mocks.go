package mocks

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/campusreports/report-server/pkg"
	"github.com/campusreports/report-server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	GetReportFunc              func(ctx context.Context, id string) (*types.Report, error)
	UpdateReportFunc           func(ctx context.Context, id string, data map[string]interface{}) error
	ListApprovedActivitiesFunc func(ctx context.Context, reportID string) ([]*types.ActivityRecord, error)
	FindTutorNameFunc          func(ctx context.Context, reportID string) (string, error)
}

func (m *MockDatabase) GetReport(ctx context.Context, id string) (*types.Report, error) {
	if m.GetReportFunc != nil {
		return m.GetReportFunc(ctx, id)
	}
	return nil, types.ErrReportNotFound
}
func (m *MockDatabase) UpdateReport(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateReportFunc != nil {
		return m.UpdateReportFunc(ctx, id, data)
	}
	return nil
}
func (m *MockDatabase) ListApprovedActivities(ctx context.Context, reportID string) ([]*types.ActivityRecord, error) {
	if m.ListApprovedActivitiesFunc != nil {
		return m.ListApprovedActivitiesFunc(ctx, reportID)
	}
	return nil, nil
}
func (m *MockDatabase) FindTutorName(ctx context.Context, reportID string) (string, error) {
	if m.FindTutorNameFunc != nil {
		return m.FindTutorNameFunc(ctx, reportID)
	}
	return "", nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte, attrs *shared.BlobAttrs) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte, attrs *shared.BlobAttrs) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data, attrs)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}
