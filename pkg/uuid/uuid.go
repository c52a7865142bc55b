// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides time-ordered identifiers for Caseline records.

Accounts and one-time code records both use Version 7 values. They sort by
creation time, which keeps B-tree inserts on the primary key append-only.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// It panics only if the OS random source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}
	return id.String()
}

// Valid reports whether s is a UUID in the canonical 36-character form.
func Valid(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}
