// Package repository reads the catalog tables the discovery service is
// built on.  It never writes: the catalog service owns these rows.
//
// The sentinels below let handlers tell a missing row apart from a store
// failure without inspecting driver errors.
package repository

import "errors"

// ErrProductNotFound is returned when no active product has the given id.
var ErrProductNotFound = errors.New("product not found")

// ErrZoneNotFound is returned when no delivery zone has the given id.
var ErrZoneNotFound = errors.New("delivery zone not found")
