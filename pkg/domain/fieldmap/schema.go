package fieldmap

import (
	"encoding/json"
	"fmt"
)

// SubjectSchema declares, per program cycle, the fixed ordered list of
// subjects the rendered document expects. Reports whose cycle has no
// entry fall back to per-activity sections.
type SubjectSchema map[string][]string

// For resolves the subject order for a report, most specific key first:
// "program/cycle", then bare cycle. Nil when neither is declared.
func (s SubjectSchema) For(program, cycle string) []string {
	if order, ok := s[program+"/"+cycle]; ok {
		return order
	}
	return s[cycle]
}

// ParseSchema decodes a schema from its JSON configuration form,
// e.g. {"5": ["Web Technologies", "Advanced Databases"]}.
func ParseSchema(raw string) (SubjectSchema, error) {
	if raw == "" {
		return nil, nil
	}
	var s SubjectSchema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("subject schema: %w", err)
	}
	return s, nil
}

// DefaultSchema covers the cohorts in production before the schema was
// made configurable.
var DefaultSchema = SubjectSchema{
	"5": {
		"Tecnologías Web",
		"Base de Datos Avanzadas",
		"Comunicaciones y Enrutamiento",
		"Ética y Relaciones Humanas",
		"Interacción Hombre Máquina",
		"Derecho Informático",
	},
}
