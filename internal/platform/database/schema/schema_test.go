// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestColumns_MatchScanOrder pins the projection order the repositories scan in.
*/
func TestColumns_MatchScanOrder(t *testing.T) {
	assert.Equal(t, []string{
		"id", "firstname", "lastname", "email", "passwordhash", "role",
		"refreshtoken", "isdeleted", "deletedat", "createdat", "updatedat",
	}, UserAccount.Columns())

	assert.Equal(t, []string{"id", "userid", "code", "createdat", "expiresat", "isused"}, UserOTP.Columns())
}
