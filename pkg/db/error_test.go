package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pgx", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "pq", err: &pq.Error{Code: "23505"}, want: true},
		{name: "mysql", err: &mysql.MySQLError{Number: 1062}, want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: balance_entries.user_id"), want: true},
		{name: "other pg code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestIsRetryableErr(t *testing.T) {
	assert.True(t, IsRetryableErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryableErr(&pq.Error{Code: "55P03"}))
	assert.True(t, IsRetryableErr(errors.New("database is locked")))
	assert.False(t, IsRetryableErr(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryableErr(nil))
}

func TestDialect(t *testing.T) {
	for _, kind := range []string{"postgres", "mysql", "sqlite", "sqlite3"} {
		d, err := Dialect(config.Config{DBType: kind, DBName: "pitchfund"})
		require.NoError(t, err, kind)
		assert.NotNil(t, d, kind)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.Config{
		DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable",
	})
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", dsn)
}
