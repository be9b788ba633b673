// Package types holds the domain records stored in Firestore and the
// artifact metadata produced by the report pipeline.
package types

import "time"

// ApprovalState is the review state of an activity record.
type ApprovalState string

const (
	StatePending  ApprovalState = "pending"
	StateApproved ApprovalState = "approved"
	StateRejected ApprovalState = "rejected"
)

// Report is the top-level aggregate: one periodic academic-activity
// report owned by a program cohort. Activities live in a sub-collection.
type Report struct {
	ReportID string
	// Term is the human label of the academic period (e.g. "2025-2").
	Term    string
	Program string
	Cycle   string
	// Cohorts are the parallel group labels; joined with "-" for display.
	Cohorts []string

	// Artifact reference, last-write-wins. Updated by the publisher.
	ArtifactURL         string
	ArtifactKey         string
	ArtifactContentType string
	ArtifactGeneratedAt time.Time
}

// ActivityRecord is one logged activity under a report. Read-only to
// the pipeline; created by upstream data entry.
type ActivityRecord struct {
	ReportID   string
	ActivityID string
	Category   string
	Subject    string
	Date       time.Time
	State      ApprovalState

	Contributions []*ContributionRecord
}

// ContributionRecord is a per-subject narrative entry attached to an
// activity. Multiple contributions for the same subject concatenate.
type ContributionRecord struct {
	Subject     string
	Problems    string
	Actions     string
	Responsible string
	Results     string
}

// UserRecord is the slice of the users collection the pipeline needs:
// tutor lookup by report assignment.
type UserRecord struct {
	UserID        string
	Name          string
	Role          string
	TutorReportID string
}

// ReportArtifact is the final persisted output of one pipeline run.
type ReportArtifact struct {
	ReportID    string
	StorageKey  string
	PublicURL   string
	AccessToken string
	ContentType string
	CreatedAt   time.Time
}
