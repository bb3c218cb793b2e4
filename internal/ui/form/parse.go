package form

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/export"
	"github.com/sadopc/supadmin/internal/schema"
)

// kind is the input class of a column type.
type kind int

const (
	kindText kind = iota
	kindInteger
	kindNumber
	kindBool
	kindJSON
)

func kindOf(f schema.TableField) kind {
	t := strings.ToLower(f.Type)
	switch {
	case t == "integer" || t == "int" || t == "int2" || t == "int4" || t == "int8" ||
		t == "bigint" || t == "smallint" || t == "serial" || t == "bigserial":
		return kindInteger
	case t == "number" || t == "numeric" || t == "real" || t == "float4" || t == "float8" ||
		strings.HasPrefix(t, "double") || strings.HasPrefix(t, "decimal"):
		return kindNumber
	case t == "boolean" || t == "bool":
		return kindBool
	case t == "json" || t == "jsonb" || t == "object" || t == "array" || strings.HasSuffix(t, "[]"):
		return kindJSON
	}
	return kindText
}

// ParseValue converts raw input for f into the value sent to the
// backend. Numbers stay json.Number so large integers survive.
func ParseValue(f schema.TableField, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch kindOf(f) {
	case kindInteger:
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "%s must be an integer", f.Name)
		}
		return json.Number(s), nil
	case kindNumber:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "%s must be a number", f.Name)
		}
		return json.Number(s), nil
	case kindBool:
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y", "1", "oui":
			return true, nil
		case "false", "f", "no", "n", "0", "non":
			return false, nil
		}
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s must be true or false", f.Name)
	case kindJSON:
		return parseJSON(f.Name, s)
	}
	return raw, nil
}

func parseJSON(name, s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, name+" must be valid JSON", err)
	}
	return v, nil
}

// parseObject reads a whole row typed as one JSON object.
func parseObject(s string) (map[string]any, error) {
	v, err := parseJSON("row", s)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput, "row must be a JSON object")
	}
	return obj, nil
}

// formatValue is the text shown in an input for an existing value.
func formatValue(v any) string {
	return export.Value(v)
}
