// Package fieldmap flattens a report's approved activities and their
// contributions into the key set consumed by the template renderer.
package fieldmap

import (
	"sort"
	"strings"

	"github.com/campusreports/report-server/pkg/types"
)

// SubjectSection is one repeating-section entry of the rendered
// document: a subject label plus its four narrative fields.
type SubjectSection struct {
	Subject     string
	Problems    string
	Actions     string
	Responsible string
	Results     string
}

// FieldMap is the flat structure handed to the renderer. Every scalar
// the template references is present, empty string included; the
// renderer fails hard on anything unresolved.
type FieldMap struct {
	Scalars  map[string]string
	Subjects []SubjectSection
}

// RequestFields are the caller-supplied narrative scalars. Missing
// optional values map to empty strings, never omitted keys.
type RequestFields struct {
	Tutor            string
	Conclusions      string
	Recommendations  string
	PresentationDate string
}

// Build aggregates the report's approved activities into a FieldMap.
//
// Only approved activities contribute; a report with none is a
// validation failure, not an empty document. Activities are sorted by
// date then activity id before grouping so output is reproducible
// regardless of retrieval order.
//
// When subjectOrder is non-empty (the program declares a fixed subject
// list), one section is emitted per expected subject in that order,
// with empty narrative fields when nothing matches. Otherwise one
// section is emitted per activity in the stable order above.
func Build(report *types.Report, activities []*types.ActivityRecord, subjectOrder []string, req RequestFields) (*FieldMap, error) {
	if report == nil || report.ReportID == "" {
		return nil, &types.ValidationError{Msg: "reportId is required"}
	}

	approved := make([]*types.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if a.State == types.StateApproved {
			approved = append(approved, a)
		}
	}
	if len(approved) == 0 {
		return nil, &types.ValidationError{Msg: "report " + report.ReportID + " has no approved activities"}
	}

	sort.SliceStable(approved, func(i, j int) bool {
		if !approved[i].Date.Equal(approved[j].Date) {
			return approved[i].Date.Before(approved[j].Date)
		}
		return approved[i].ActivityID < approved[j].ActivityID
	})

	var sections []SubjectSection
	if len(subjectOrder) > 0 {
		sections = sectionsBySubjectOrder(approved, subjectOrder)
	} else {
		sections = sectionsByActivity(approved)
	}

	fm := &FieldMap{
		Scalars:  buildScalars(report, req),
		Subjects: sections,
	}
	return fm, nil
}

// sectionsBySubjectOrder emits one section per expected subject in the
// declared order. Contributions from any approved activity that name
// the subject are concatenated in stable activity order.
func sectionsBySubjectOrder(approved []*types.ActivityRecord, subjectOrder []string) []SubjectSection {
	sections := make([]SubjectSection, 0, len(subjectOrder))
	for _, subject := range subjectOrder {
		section := SubjectSection{Subject: subject}
		var problems, actions, responsible, results []string
		for _, activity := range approved {
			for _, c := range activity.Contributions {
				if c.Subject != subject {
					continue
				}
				problems = appendNonEmpty(problems, c.Problems)
				actions = appendNonEmpty(actions, c.Actions)
				responsible = appendNonEmpty(responsible, c.Responsible)
				results = appendNonEmpty(results, c.Results)
			}
		}
		section.Problems = strings.Join(problems, "\n")
		section.Actions = strings.Join(actions, "\n")
		section.Responsible = strings.Join(responsible, "\n")
		section.Results = strings.Join(results, "\n")
		sections = append(sections, section)
	}
	return sections
}

// sectionsByActivity flattens (category, activity) pairs into one
// section per activity. When an activity aggregates contributions from
// more than one subject, each line is prefixed with its subject label.
func sectionsByActivity(approved []*types.ActivityRecord) []SubjectSection {
	// Group by category, preserving first-seen category order and the
	// stable activity order inside each group.
	categoryOrder := []string{}
	grouped := map[string][]*types.ActivityRecord{}
	for _, activity := range approved {
		if _, seen := grouped[activity.Category]; !seen {
			categoryOrder = append(categoryOrder, activity.Category)
		}
		grouped[activity.Category] = append(grouped[activity.Category], activity)
	}

	var sections []SubjectSection
	for _, category := range categoryOrder {
		for _, activity := range grouped[category] {
			label := activity.Subject
			if label == "" {
				label = category
			}
			section := SubjectSection{Subject: label}

			multiSubject := distinctSubjects(activity.Contributions) > 1
			var problems, actions, responsible, results []string
			for _, c := range activity.Contributions {
				prefix := ""
				if multiSubject {
					prefix = c.Subject + ": "
				}
				problems = appendPrefixed(problems, prefix, c.Problems)
				actions = appendPrefixed(actions, prefix, c.Actions)
				responsible = appendPrefixed(responsible, prefix, c.Responsible)
				results = appendPrefixed(results, prefix, c.Results)
			}
			section.Problems = strings.Join(problems, "\n")
			section.Actions = strings.Join(actions, "\n")
			section.Responsible = strings.Join(responsible, "\n")
			section.Results = strings.Join(results, "\n")
			sections = append(sections, section)
		}
	}
	return sections
}

func buildScalars(report *types.Report, req RequestFields) map[string]string {
	return map[string]string{
		"report_id":         report.ReportID,
		"term":              report.Term,
		"program":           report.Program,
		"cycle":             report.Cycle,
		"cohorts":           strings.Join(report.Cohorts, "-"),
		"tutor":             req.Tutor,
		"conclusions":       req.Conclusions,
		"recommendations":   req.Recommendations,
		"presentation_date": req.PresentationDate,
	}
}

func distinctSubjects(contributions []*types.ContributionRecord) int {
	seen := map[string]struct{}{}
	for _, c := range contributions {
		seen[c.Subject] = struct{}{}
	}
	return len(seen)
}

func appendNonEmpty(dst []string, text string) []string {
	if text == "" {
		return dst
	}
	return append(dst, text)
}

func appendPrefixed(dst []string, prefix, text string) []string {
	if text == "" {
		return dst
	}
	return append(dst, prefix+text)
}
