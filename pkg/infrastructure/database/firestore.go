package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	storage "github.com/campusreports/report-server/pkg/storage/firestore"
	"github.com/campusreports/report-server/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore.
// It wraps our typed storage client.
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client // internal typed wrapper
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client),
	}
}

func (a *FirestoreAdapter) GetReport(ctx context.Context, id string) (*types.Report, error) {
	doc := a.storage.Reports().Doc(id)
	report, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, types.ErrReportNotFound
		}
		return nil, err
	}
	if report.ReportID == "" {
		report.ReportID = doc.ID()
	}
	return report, nil
}

func (a *FirestoreAdapter) UpdateReport(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Reports().Doc(id).Update(ctx, data)
}

func (a *FirestoreAdapter) ListApprovedActivities(ctx context.Context, reportID string) ([]*types.ActivityRecord, error) {
	activities, ids, err := a.storage.Activities(reportID).
		Where("state", "==", string(types.StateApproved)).
		Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities for %s: %w", reportID, err)
	}

	for i, activity := range activities {
		if activity.ActivityID == "" {
			activity.ActivityID = ids[i]
		}
		activity.ReportID = reportID

		contributions, _, err := a.storage.Contributions(reportID, ids[i]).Documents(ctx)
		if err != nil {
			return nil, fmt.Errorf("list contributions for %s/%s: %w", reportID, ids[i], err)
		}
		activity.Contributions = contributions
	}
	return activities, nil
}

func (a *FirestoreAdapter) FindTutorName(ctx context.Context, reportID string) (string, error) {
	users, _, err := a.storage.Users().
		Where("tutor_report_id", "==", reportID).
		Where("role", "==", "tutor").
		Limit(1).
		Documents(ctx)
	if err != nil {
		return "", fmt.Errorf("tutor lookup for %s: %w", reportID, err)
	}
	if len(users) == 0 {
		return "", nil
	}
	return users[0].Name, nil
}
