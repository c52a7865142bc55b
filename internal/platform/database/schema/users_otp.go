// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserOTPTable represents the 'users.otp' table
type UserOTPTable struct {
	Table     string
	ID        string
	UserID    string
	Code      string
	CreatedAt string
	ExpiresAt string
	IsUsed    string
}

// UserOTP is the schema definition for users.otp
var UserOTP = UserOTPTable{
	Table:     "users.otp",
	ID:        "id",
	UserID:    "userid",
	Code:      "code",
	CreatedAt: "createdat",
	ExpiresAt: "expiresat",
	IsUsed:    "isused",
}

// Columns returns all standard column names
func (t UserOTPTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Code, t.CreatedAt, t.ExpiresAt, t.IsUsed}
}
