package reading

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Reserved column names that precede the fields in every log row.
const (
	TimeColumn     = "time"
	SourceIDColumn = "source_id"
)

// Schema is the ordered list of field names shared by every row of a log.
type Schema []string

// NewSchema validates field names: at least one, non-empty, without
// surrounding spaces or control characters, unique and not clashing with the
// reserved columns. A name is a single log cell, so a line break would split
// the row.
func NewSchema(names []string) (Schema, error) {
	if len(names) == 0 {
		return nil, errors.New("schema must contain at least one field")
	}

	seen := make(map[string]struct{}, len(names))
	schema := make(Schema, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("field name cannot be empty")
		}
		if strings.TrimSpace(name) != name {
			return nil, fmt.Errorf("field name %q has surrounding spaces", name)
		}
		if hasControl(name) {
			return nil, fmt.Errorf("field name %q contains control characters", name)
		}
		if name == TimeColumn || name == SourceIDColumn {
			return nil, fmt.Errorf("field name %q is reserved", name)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate field name %q", name)
		}
		seen[name] = struct{}{}
		schema = append(schema, name)
	}

	return schema, nil
}

// ParseSchema parses a comma separated list of field names.
// An empty string gives an empty schema.
func ParseSchema(raw string) (Schema, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	names := strings.Split(raw, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return NewSchema(names)
}

// ValidateSourceID rejects source ids that cannot be stored in one log cell.
func ValidateSourceID(id string) error {
	if hasControl(id) {
		return fmt.Errorf("source id %q contains control characters", id)
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// Equal reports whether both schemas have the same names in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Matches reports whether the reading carries exactly the schema fields in order.
func (s Schema) Matches(r Reading) bool {
	if len(s) != len(r.Fields) {
		return false
	}
	for i, f := range r.Fields {
		if s[i] != f.Name {
			return false
		}
	}
	return true
}

// Index returns the position of the named field or -1.
func (s Schema) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

func (s Schema) String() string {
	return strings.Join(s, ",")
}
