package schema

import (
	"fmt"
	"strings"

	"github.com/sadopc/supadmin/internal/backend"
)

// IsPrimaryKeyHeuristic guesses whether a column is the primary key from
// its name and OpenAPI description. A column named "id" or one whose
// description contains "Primary Key" (PostgREST writes "This is a Primary
// Key.") is flagged. The guess is intentionally naive: an "id" column that
// is not the key is a false positive, and a differently named key without
// the PostgREST note is a false negative.
func IsPrimaryKeyHeuristic(name, description string) bool {
	return name == "id" || strings.Contains(description, "Primary Key")
}

// NormalizeType maps an OpenAPI property to a type name:
//   - arrays become "<item type>[]"
//   - objects and untyped (free-form) properties become "jsonb"
//   - everything else passes through, preferring the Postgres format
//     ("bigint", "text") over the JSON type ("integer", "string")
func NormalizeType(p backend.Property) string {
	switch p.Type {
	case "array":
		if strings.HasSuffix(p.Format, "[]") {
			return p.Format
		}
		item := "text"
		if p.Items != nil {
			if t := scalarType(*p.Items); t != "" {
				item = t
			}
		}
		return item + "[]"
	case "object":
		return "jsonb"
	}
	if t := scalarType(p); t != "" {
		return t
	}
	return "jsonb"
}

func scalarType(p backend.Property) string {
	if p.Format != "" {
		return p.Format
	}
	return p.Type
}

// FieldsFromDefinition derives fields from one OpenAPI definition, in
// document order.
func FieldsFromDefinition(def backend.Definition) []TableField {
	required := make(map[string]bool, len(def.Required))
	for _, name := range def.Required {
		required[name] = true
	}

	fields := make([]TableField, 0, len(def.Properties))
	for _, p := range def.Properties {
		f := TableField{
			Name:         p.Name,
			Type:         NormalizeType(p),
			Required:     required[p.Name],
			IsPrimaryKey: IsPrimaryKeyHeuristic(p.Name, p.Description),
			Format:       p.Format,
			Description:  cleanDescription(p.Description),
		}
		if p.Default != nil {
			f.Default = fmt.Sprint(p.Default)
		}
		fields = append(fields, f)
	}
	return fields
}

// cleanDescription strips the machine markers PostgREST appends to column
// comments.
func cleanDescription(s string) string {
	s = strings.ReplaceAll(s, "<pk/>", "")
	s = strings.ReplaceAll(s, "Note:\n", "")
	return strings.TrimSpace(s)
}
