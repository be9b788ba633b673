package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/campusreports/report-server/pkg"
	"github.com/campusreports/report-server/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) Reports() *Collection[types.Report] {
	return &Collection[types.Report]{
		Ref:           c.fs.Collection(shared.CollectionReports),
		ToFirestore:   ReportToFirestore,
		FromFirestore: FirestoreToReport,
	}
}

func (c *Client) Users() *Collection[types.UserRecord] {
	return &Collection[types.UserRecord]{
		Ref:           c.fs.Collection(shared.CollectionUsers),
		ToFirestore:   UserToFirestore,
		FromFirestore: FirestoreToUser,
	}
}

// Activities are sub-collections of Reports: reports/{id}/activities/{activityId}
func (c *Client) Activities(reportID string) *Collection[types.ActivityRecord] {
	return &Collection[types.ActivityRecord]{
		Ref:           c.fs.Collection(shared.CollectionReports).Doc(reportID).Collection(shared.CollectionActivities),
		ToFirestore:   ActivityToFirestore,
		FromFirestore: FirestoreToActivity,
	}
}

// Contributions are sub-collections of Activities:
// reports/{id}/activities/{activityId}/contributions/{contributionId}
func (c *Client) Contributions(reportID, activityID string) *Collection[types.ContributionRecord] {
	return &Collection[types.ContributionRecord]{
		Ref: c.fs.Collection(shared.CollectionReports).Doc(reportID).
			Collection(shared.CollectionActivities).Doc(activityID).
			Collection(shared.CollectionContributions),
		ToFirestore:   ContributionToFirestore,
		FromFirestore: FirestoreToContribution,
	}
}
