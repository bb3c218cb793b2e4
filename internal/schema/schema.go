// Package schema turns the different ways a backend can describe itself
// (stored procedures, the OpenAPI document, information_schema rows, a
// direct catalog connection) into one field model that drives forms and
// grids.
package schema

import "strings"

// TableInfo describes one user table. It is recomputed on every listing.
type TableInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	RecordCount int64  `json:"recordCount"`
}

// TableField describes one column of a table.
type TableField struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Required     bool   `json:"required"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	Format       string `json:"format,omitempty"`
	Default      string `json:"default,omitempty"`
	Description  string `json:"description,omitempty"`
}

// DefaultKey is the key column assumed when no field is flagged as a
// primary key.
const DefaultKey = "id"

// systemPrefixes are table name prefixes that never show up in listings.
var systemPrefixes = []string{"pg_", "sql_", "_", "supadmin_"}

// IsSystemTable reports whether name belongs to the database or to
// supadmin itself rather than to the user.
func IsSystemTable(name string) bool {
	for _, p := range systemPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// PrimaryKey returns the first primary-key field name, or DefaultKey.
func PrimaryKey(fields []TableField) string {
	for _, f := range fields {
		if f.IsPrimaryKey {
			return f.Name
		}
	}
	return DefaultKey
}

// OrderColumn returns the column rows are sorted by: the primary key when
// one is known, otherwise "id" if the table has it (or its shape is
// unknown). It returns "" when neither applies, leaving backend order.
func OrderColumn(fields []TableField) string {
	if len(fields) == 0 {
		return DefaultKey
	}
	for _, f := range fields {
		if f.IsPrimaryKey {
			return f.Name
		}
	}
	for _, f := range fields {
		if f.Name == DefaultKey {
			return DefaultKey
		}
	}
	return ""
}

// CreatableFields drops primary-key fields, which the backend assigns.
func CreatableFields(fields []TableField) []TableField {
	out := make([]TableField, 0, len(fields))
	for _, f := range fields {
		if !f.IsPrimaryKey {
			out = append(out, f)
		}
	}
	return out
}

// FieldByName returns the field called name.
func FieldByName(fields []TableField, name string) (TableField, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return TableField{}, false
}

// FilterSystem removes system tables in place and returns the result.
func FilterSystem(tables []TableInfo) []TableInfo {
	out := tables[:0]
	for _, t := range tables {
		if !IsSystemTable(t.Name) {
			out = append(out, t)
		}
	}
	return out
}
