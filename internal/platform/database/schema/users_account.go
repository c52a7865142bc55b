// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds the table and column names of the relational store.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table        string
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Role         string
	RefreshToken string
	IsDeleted    string
	DeletedAt    string
	CreatedAt    string
	UpdatedAt    string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:        "users.account",
	ID:           "id",
	FirstName:    "firstname",
	LastName:     "lastname",
	Email:        "email",
	Password:     "passwordhash",
	Role:         "role",
	RefreshToken: "refreshtoken",
	IsDeleted:    "isdeleted",
	DeletedAt:    "deletedat",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.FirstName, t.LastName, t.Email, t.Password, t.Role,
		t.RefreshToken, t.IsDeleted, t.DeletedAt, t.CreatedAt, t.UpdatedAt,
	}
}
