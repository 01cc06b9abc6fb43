// Package redact masks sensitive record fields before they reach a caller.
//
// # Model
//
// The surrounding application tags each field of its record schema with at
// most one sensitive category (salary, personal_info, financial_data). The
// [Filter] replaces the value of every tagged field whose category is not
// granted to the caller's role with [Placeholder]. Untagged fields pass
// through unchanged. Redaction is category-based, never field-name-based:
// adding a new salary-like field only requires tagging it in the [Schema].
//
// # Fail-closed policy
//
// A role unknown to the permission catalog receives maximal redaction —
// every tagged field is masked. There is no "show everything" fallback.
//
// # Architecture boundaries
//
// The filter operates on a copy and never mutates the source record, so
// concurrent readers with different roles see independent results from the
// same underlying record.
//
// # What this package must NOT do
//
//   - Mutate input records.
//   - Access Redis or any I/O.
//   - Decide authorization — that happens in permission before redaction.
package redact
