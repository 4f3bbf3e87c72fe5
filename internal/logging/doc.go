// Package logging wraps log/slog with the handlers and attribute helpers
// used across the daemon. Components obtain scoped loggers through
// NewComponentLogger and attach structured fields with the typed Attr
// constructors; the console handler renders the component as a message
// prefix instead of a key=value pair.
package logging
