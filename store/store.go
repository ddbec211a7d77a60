// Package store wraps the Mongo collections behind small per-document-type
// stores so handlers can be exercised against fakes.
package store

import "errors"

// ErrNotFound is returned when no document matches a lookup.
var ErrNotFound = errors.New("not found")
