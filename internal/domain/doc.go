// Package domain defines the core business types for the landing page builder.
//
// Types in this package are value objects with no database dependencies and
// no HTTP concerns. They are the shared language between handlers, services,
// repositories and the rotation engine.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Small pure helpers (Clone, Valid) are allowed
//   - Constants and enums belong here
package domain
