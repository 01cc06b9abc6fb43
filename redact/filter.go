package redact

import (
	"github.com/Shannon1980/accessguard/permission"
)

// Placeholder is the fixed sentinel written over masked field values.
const Placeholder = "***"

// Record is a single row of application data keyed by field name.
type Record = map[string]any

// Schema maps field names to their sensitive category. Fields absent from
// the schema are untagged and always pass through.
type Schema map[string]string

// Filter masks record fields according to role entitlements in the bound
// permission catalog. Immutable after construction; safe for concurrent use.
type Filter struct {
	schema  Schema
	catalog *permission.Catalog
}

// NewFilter creates a [Filter] over the given field schema and role catalog.
func NewFilter(schema Schema, catalog *permission.Catalog) *Filter {
	cloned := make(Schema, len(schema))
	for field, category := range schema {
		cloned[field] = category
	}
	return &Filter{schema: cloned, catalog: catalog}
}

// Schema returns a copy of the filter's field schema.
func (f *Filter) Schema() Schema {
	out := make(Schema, len(f.schema))
	for field, category := range f.schema {
		out[field] = category
	}
	return out
}

// Apply returns a copy of record with every tagged field masked unless the
// role is granted the field's sensitive category. The source record is never
// modified. Applying the filter twice with the same role yields the same
// result, since a masked value re-masks to the same placeholder.
func (f *Filter) Apply(record Record, role string) Record {
	if record == nil {
		return nil
	}

	perm, known := f.catalog.Lookup(role)

	out := make(Record, len(record))
	for field, value := range record {
		category, tagged := f.schema[field]
		if !tagged {
			out[field] = value
			continue
		}
		// Unknown role: fail closed, mask every tagged field.
		if !known || !perm.HasSensitive(category) {
			out[field] = Placeholder
			continue
		}
		out[field] = value
	}

	return out
}

// ApplyAll filters a slice of records with the same role. The result slice
// and every record in it are fresh copies.
func (f *Filter) ApplyAll(records []Record, role string) []Record {
	if records == nil {
		return nil
	}

	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = f.Apply(r, role)
	}
	return out
}
