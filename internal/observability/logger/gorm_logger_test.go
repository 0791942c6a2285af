package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{sql: `SELECT * FROM "pitches" WHERE id = $1`, operation: "SELECT", table: "pitches"},
		{sql: "INSERT INTO `investments` (`id`) VALUES (?)", operation: "INSERT", table: "investments"},
		{sql: `UPDATE users SET account_balance = account_balance - $1`, operation: "UPDATE", table: "users"},
		{sql: `DELETE FROM investment_tiers WHERE pitch_id = $1`, operation: "DELETE", table: "investment_tiers"},
		{sql: ``, operation: "UNKNOWN", table: ""},
	}

	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}
