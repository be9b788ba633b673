package firestore

import (
	"time"

	"github.com/campusreports/report-server/pkg/types"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// Helper to safely get a string slice from map (Firestore stores arrays
// as []interface{})
func getStringSlice(m map[string]interface{}, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// --- Report Converters ---

func ReportToFirestore(r *types.Report) map[string]interface{} {
	m := map[string]interface{}{
		"report_id": r.ReportID,
		"term":      r.Term,
		"program":   r.Program,
		"cycle":     r.Cycle,
		"cohorts":   r.Cohorts,
	}
	if r.ArtifactURL != "" {
		m["artifact_url"] = r.ArtifactURL
		m["artifact_key"] = r.ArtifactKey
		m["artifact_content_type"] = r.ArtifactContentType
		m["artifact_generated_at"] = r.ArtifactGeneratedAt
	}
	return m
}

func FirestoreToReport(m map[string]interface{}) *types.Report {
	return &types.Report{
		ReportID:            getString(m, "report_id"),
		Term:                getString(m, "term"),
		Program:             getString(m, "program"),
		Cycle:               getString(m, "cycle"),
		Cohorts:             getStringSlice(m, "cohorts"),
		ArtifactURL:         getString(m, "artifact_url"),
		ArtifactKey:         getString(m, "artifact_key"),
		ArtifactContentType: getString(m, "artifact_content_type"),
		ArtifactGeneratedAt: getTime(m, "artifact_generated_at"),
	}
}

// --- ActivityRecord Converters ---

func ActivityToFirestore(a *types.ActivityRecord) map[string]interface{} {
	return map[string]interface{}{
		"report_id":   a.ReportID,
		"activity_id": a.ActivityID,
		"category":    a.Category,
		"subject":     a.Subject,
		"date":        a.Date,
		"state":       string(a.State),
	}
}

func FirestoreToActivity(m map[string]interface{}) *types.ActivityRecord {
	return &types.ActivityRecord{
		ReportID:   getString(m, "report_id"),
		ActivityID: getString(m, "activity_id"),
		Category:   getString(m, "category"),
		Subject:    getString(m, "subject"),
		Date:       getTime(m, "date"),
		State:      types.ApprovalState(getString(m, "state")),
	}
}

// --- ContributionRecord Converters ---

func ContributionToFirestore(c *types.ContributionRecord) map[string]interface{} {
	return map[string]interface{}{
		"subject":     c.Subject,
		"problems":    c.Problems,
		"actions":     c.Actions,
		"responsible": c.Responsible,
		"results":     c.Results,
	}
}

func FirestoreToContribution(m map[string]interface{}) *types.ContributionRecord {
	return &types.ContributionRecord{
		Subject:     getString(m, "subject"),
		Problems:    getString(m, "problems"),
		Actions:     getString(m, "actions"),
		Responsible: getString(m, "responsible"),
		Results:     getString(m, "results"),
	}
}

// --- UserRecord Converters ---

func UserToFirestore(u *types.UserRecord) map[string]interface{} {
	return map[string]interface{}{
		"user_id":         u.UserID,
		"name":            u.Name,
		"role":            u.Role,
		"tutor_report_id": u.TutorReportID,
	}
}

func FirestoreToUser(m map[string]interface{}) *types.UserRecord {
	return &types.UserRecord{
		UserID:        getString(m, "user_id"),
		Name:          getString(m, "name"),
		Role:          getString(m, "role"),
		TutorReportID: getString(m, "tutor_report_id"),
	}
}
