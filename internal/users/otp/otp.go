// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package otp implements the one-time passcode protocol used for account
verification and soft-delete recovery.

# Lifecycle

A code is generated for a user (capped per generation window), delivered out
of band, and consumed at most once by Verify. Consuming a code invalidates
every other unused code of the same user, so at most one code is actionable
at a time. Only the SHA-256 of a code is stored.

Records are never deleted while they still count towards the generation
window; the background purge removes them afterwards.
*/
package otp

import (
	"context"
	"time"
)

// # Domain Entities

// Record is one issued code.
type Record struct {
	ID        string
	UserID    string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
}

// Actionable reports whether the record can still be consumed at now.
func (r *Record) Actionable(now time.Time) bool {
	return !r.IsUsed && r.ExpiresAt.After(now)
}

// # Repository Contracts

// Repository defines the persistence contract for OTP records.
type Repository interface {

	/*
		CountSince returns how many codes were issued to userID at or after since,
		used or not.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - since: time.Time (start of the generation window)

		Returns:
		  - int: Number of records in the window
		  - error: Database retrieval failures
	*/
	CountSince(context context.Context, userID string, since time.Time) (int, error)

	/*
		Create persists a freshly issued code.

		Parameters:
		  - context: context.Context
		  - record: *Record

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, record *Record) error

	/*
		FindActive returns the newest unused, unexpired record of userID whose hash
		matches codeHash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - codeHash: string
		  - now: time.Time

		Returns:
		  - *Record: Matching record, or nil when there is none
		  - error: Database retrieval failures
	*/
	FindActive(context context.Context, userID, codeHash string, now time.Time) (*Record, error)

	/*
		MarkUsed flips isUsed on one record if it is still unused.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - bool: false when another request consumed the record first
		  - error: Persistence failures
	*/
	MarkUsed(context context.Context, id string) (bool, error)

	/*
		InvalidateOthers marks every unused record of userID except keepID as used.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - keepID: string

		Returns:
		  - error: Persistence failures
	*/
	InvalidateOthers(context context.Context, userID, keepID string) error

	/*
		PurgeBefore deletes records created before cutoff.

		Parameters:
		  - context: context.Context
		  - cutoff: time.Time

		Returns:
		  - int64: Number of deleted records
		  - error: Persistence failures
	*/
	PurgeBefore(context context.Context, cutoff time.Time) (int64, error)
}
