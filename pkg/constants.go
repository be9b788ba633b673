package shared

const (
	ProjectID = "campusreports-project" // Can be overridden by env var in main if needed

	TopicReportGenerated = "topic-report-generated"

	CollectionReports       = "reports"
	CollectionUsers         = "users"
	CollectionActivities    = "activities"    // sub-collection of reports
	CollectionContributions = "contributions" // sub-collection of activities

	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePDF  = "application/pdf"
)
