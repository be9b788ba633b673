// Package render turns a FieldMap into document bytes. The templating
// engine is consumed as a black box behind the Renderer interface.
package render

import (
	"fmt"

	"github.com/campusreports/report-server/pkg/domain/fieldmap"
	"github.com/campusreports/report-server/pkg/types"
)

// Renderer produces document bytes from a field map. Rendering is a
// pure function of (template, fields): implementations must not mutate
// the FieldMap and must not emit partial output on failure.
type Renderer interface {
	Render(fields *fieldmap.FieldMap) ([]byte, error)
}

// Layout declares the numbered placeholder names the template uses for
// its repeating subject sections. Declaring them here, next to the
// subject schema that fills them, replaces the legacy behavior of
// concatenating positional key strings all over the mapper.
type Layout struct {
	// SubjectSlots is the number of subject sections the template holds.
	// Fewer mapped sections pad with empty strings; more is a render
	// failure, not silent truncation.
	SubjectSlots int

	// printf patterns taking the 1-based slot index
	SubjectKey     string
	ProblemsKey    string
	ActionsKey     string
	ResponsibleKey string
	ResultsKey     string
}

// DefaultLayout matches the production report template.
func DefaultLayout() Layout {
	return Layout{
		SubjectSlots:   6,
		SubjectKey:     "subject_%d",
		ProblemsKey:    "problems_%d",
		ActionsKey:     "actions_%d",
		ResponsibleKey: "responsible_%d",
		ResultsKey:     "results_%d",
	}
}

// Flatten expands the field map into the flat placeholder set the
// template expects: all scalars verbatim plus every subject slot, empty
// slots included so no placeholder is left unresolved.
func (l Layout) Flatten(fields *fieldmap.FieldMap) (map[string]string, error) {
	if len(fields.Subjects) > l.SubjectSlots {
		return nil, &types.RenderError{
			Diag: fmt.Sprintf("template has %d subject slots, field map has %d sections", l.SubjectSlots, len(fields.Subjects)),
		}
	}

	out := make(map[string]string, len(fields.Scalars)+l.SubjectSlots*5)
	for k, v := range fields.Scalars {
		out[k] = v
	}
	for i := 0; i < l.SubjectSlots; i++ {
		var section fieldmap.SubjectSection
		if i < len(fields.Subjects) {
			section = fields.Subjects[i]
		}
		slot := i + 1
		out[fmt.Sprintf(l.SubjectKey, slot)] = section.Subject
		out[fmt.Sprintf(l.ProblemsKey, slot)] = section.Problems
		out[fmt.Sprintf(l.ActionsKey, slot)] = section.Actions
		out[fmt.Sprintf(l.ResponsibleKey, slot)] = section.Responsible
		out[fmt.Sprintf(l.ResultsKey, slot)] = section.Results
	}
	return out, nil
}
