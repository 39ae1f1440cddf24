package reader

import "fmt"

// SchemaError reports a value or column that violates a file's declared
// schema. Schema drift indicates an upstream data problem, so the
// offending file is fatal for its deployment rather than silently coerced.
type SchemaError struct {
	File   string
	Column string
	Value  string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("schema violation in %s: column %q value %q: %v", e.File, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("schema violation in %s: column %q: %v", e.File, e.Column, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
