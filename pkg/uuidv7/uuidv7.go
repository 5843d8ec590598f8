// Copyright (c) 2026 Wasteland Blues. All rights reserved.

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// # Why UUIDv7?
//
// It is the primary key type for vendors and roads. Because it is
// time-sortable, it keeps the PostgreSQL B-tree indexes clustered, avoiding
// the index fragmentation common with random UUIDv4.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// # Safety
//
// It panics only if the OS random source is unavailable (extremely rare).
// This is acceptable as OS entropy failure is an unrecoverable system-level error.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// Short returns the first segment of a fresh UUIDv7.
//
// It is used as a collision-breaking suffix for slug-based identifiers,
// where a full 36-character UUID would make the ID unreadable.
func Short() string {
	return New()[:8]
}
