// Package notifications pushes operator alerts over ntfy.
//
// When no topic is configured every notification is a silent no-op, so
// callers never need to guard their notification calls.
package notifications
