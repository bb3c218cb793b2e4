package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/sadopc/supadmin/internal/errs"
)

// Document is the subset of the OpenAPI (Swagger 2.0) description that
// PostgREST serves at its root.
type Document struct {
	Swagger     string                `json:"swagger"`
	Definitions map[string]Definition `json:"definitions"`
}

// Definition describes one exposed relation.
type Definition struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Required    []string   `json:"required"`
	Properties  Properties `json:"properties"`
}

// Property describes one column.
type Property struct {
	Name        string    `json:"-"`
	Type        string    `json:"type"`
	Format      string    `json:"format"`
	Description string    `json:"description"`
	Default     any       `json:"default"`
	MaxLength   int       `json:"maxLength"`
	Enum        []any     `json:"enum"`
	Items       *Property `json:"items"`
}

// Properties keeps column order as it appears in the document.
type Properties []Property

// UnmarshalJSON decodes an object of properties in document order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}

	var out Properties
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("properties: unexpected key %v", keyTok)
		}
		var prop Property
		if err := dec.Decode(&prop); err != nil {
			return fmt.Errorf("properties: %s: %w", name, err)
		}
		prop.Name = name
		out = append(out, prop)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalJSON writes the properties back as an ordered object.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(prop)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the property called name.
func (p Properties) Lookup(name string) (Property, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop, true
		}
	}
	return Property{}, false
}

// TableNames returns the sorted definition names.
func (d *Document) TableNames() []string {
	names := make([]string, 0, len(d.Definitions))
	for name := range d.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAPI fetches the backend's API description.
func (c *Client) OpenAPI(ctx context.Context) (*Document, error) {
	resp, err := c.do(ctx, "openapi", request{
		method: http.MethodGet,
		path:   "/",
		header: http.Header{"Accept": {"application/openapi+json"}},
	})
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "openapi: decode document", err)
	}
	return &doc, nil
}
