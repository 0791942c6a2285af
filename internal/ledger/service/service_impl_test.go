package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	"github.com/smallbiznis/pitchfund/internal/testutil"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostCreditAndDebit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.User(t, userdomain.RoleInvestor, 0)

	entry, err := env.Ledger.Post(ctx, nil, ledgerdomain.Posting{
		UserID:     user.ID,
		Account:    ledgerdomain.AccountBalance,
		Direction:  ledgerdomain.DirectionCredit,
		Amount:     5_000,
		SourceType: ledgerdomain.SourceTypeDeposit,
		SourceID:   snowflake.ID(11),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), entry.BalanceAfter)

	entry, err = env.Ledger.Post(ctx, nil, ledgerdomain.Posting{
		UserID:     user.ID,
		Account:    ledgerdomain.AccountBalance,
		Direction:  ledgerdomain.DirectionDebit,
		Amount:     1_200,
		SourceType: ledgerdomain.SourceTypeWithdrawal,
		SourceID:   snowflake.ID(12),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3_800), entry.BalanceAfter)
	assert.Equal(t, int64(3_800), env.Reload(t, user.ID).AccountBalance)
}

func TestPostDebitNeverOverdraws(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.User(t, userdomain.RoleInvestor, 1_000)

	_, err := env.Ledger.Post(context.Background(), nil, ledgerdomain.Posting{
		UserID:     user.ID,
		Account:    ledgerdomain.FundingBalance,
		Direction:  ledgerdomain.DirectionDebit,
		Amount:     1,
		SourceType: ledgerdomain.SourceTypeFundingTransfer,
		SourceID:   snowflake.ID(99),
	})
	require.ErrorIs(t, err, userdomain.ErrInsufficientBalance)
	var insufficient *userdomain.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(1), insufficient.Required)
	assert.Equal(t, int64(0), insufficient.Available)

	reloaded := env.Reload(t, user.ID)
	assert.Equal(t, int64(1_000), reloaded.AccountBalance)
	assert.Equal(t, int64(0), reloaded.FundingBalance)
}

func TestPostRejectsDuplicateSource(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.User(t, userdomain.RoleInvestor, 0)
	posting := ledgerdomain.Posting{
		UserID:     user.ID,
		Account:    ledgerdomain.AccountBalance,
		Direction:  ledgerdomain.DirectionCredit,
		Amount:     700,
		SourceType: ledgerdomain.SourceTypeRefund,
		SourceID:   snowflake.ID(42),
	}

	_, err := env.Ledger.Post(ctx, nil, posting)
	require.NoError(t, err)

	err = env.DB.Transaction(func(tx *gorm.DB) error {
		_, err := env.Ledger.Post(ctx, tx, posting)
		return err
	})
	require.ErrorIs(t, err, ledgerdomain.ErrDuplicatePosting)
	assert.Equal(t, int64(700), env.Reload(t, user.ID).AccountBalance)
}

func TestPostUnknownUser(t *testing.T) {
	env := testutil.NewEnv(t)
	_, err := env.Ledger.Post(context.Background(), nil, ledgerdomain.Posting{
		UserID:     snowflake.ID(123456),
		Account:    ledgerdomain.AccountBalance,
		Direction:  ledgerdomain.DirectionCredit,
		Amount:     1,
		SourceType: ledgerdomain.SourceTypeDeposit,
		SourceID:   snowflake.ID(1),
	})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)
}

func TestPostValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	valid := ledgerdomain.Posting{
		UserID:     1,
		Account:    ledgerdomain.AccountBalance,
		Direction:  ledgerdomain.DirectionCredit,
		Amount:     1,
		SourceType: ledgerdomain.SourceTypeDeposit,
		SourceID:   1,
	}

	tests := []struct {
		name   string
		mutate func(*ledgerdomain.Posting)
		want   error
	}{
		{"user", func(p *ledgerdomain.Posting) { p.UserID = 0 }, ledgerdomain.ErrInvalidUser},
		{"account", func(p *ledgerdomain.Posting) { p.Account = "savings" }, ledgerdomain.ErrInvalidAccount},
		{"direction", func(p *ledgerdomain.Posting) { p.Direction = "sideways" }, ledgerdomain.ErrInvalidDirection},
		{"amount", func(p *ledgerdomain.Posting) { p.Amount = 0 }, ledgerdomain.ErrInvalidAmount},
		{"source type", func(p *ledgerdomain.Posting) { p.SourceType = " " }, ledgerdomain.ErrInvalidSourceType},
		{"source id", func(p *ledgerdomain.Posting) { p.SourceID = 0 }, ledgerdomain.ErrInvalidSourceID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := env.Ledger.Post(context.Background(), nil, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListEntriesPaginates(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.User(t, userdomain.RoleInvestor, 0)
	for i := 1; i <= 5; i++ {
		_, err := env.Ledger.Post(ctx, nil, ledgerdomain.Posting{
			UserID:     user.ID,
			Account:    ledgerdomain.AccountBalance,
			Direction:  ledgerdomain.DirectionCredit,
			Amount:     int64(i * 100),
			SourceType: ledgerdomain.SourceTypeDeposit,
			SourceID:   snowflake.ID(1_000 + i),
		})
		require.NoError(t, err)
	}

	first, err := env.Ledger.ListEntries(ctx, ledgerdomain.ListEntriesRequest{
		Pagination: pagination.Pagination{PageSize: 3},
		UserID:     user.ID,
	})
	require.NoError(t, err)
	require.Len(t, first.Entries, 3)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextPageToken)

	second, err := env.Ledger.ListEntries(ctx, ledgerdomain.ListEntriesRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: first.NextPageToken},
		UserID:     user.ID,
	})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.False(t, second.HasMore)

	seen := map[snowflake.ID]bool{}
	for _, e := range append(first.Entries, second.Entries...) {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}

	_, err = env.Ledger.ListEntries(ctx, ledgerdomain.ListEntriesRequest{
		Pagination: pagination.Pagination{PageToken: "%%%"},
		UserID:     user.ID,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidPageToken)
}
