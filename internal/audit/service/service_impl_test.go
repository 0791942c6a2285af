package service_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/pitchfund/internal/actorcontext"
	"github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/testutil"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogRecordsActor(t *testing.T) {
	env := testutil.NewEnv(t)
	target := "42"

	require.NoError(t, env.Audit.AuditLog(context.Background(), nil, domain.ActionPitchPublished, "pitch", &target, map[string]any{"k": "v"}))

	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: 7, Role: "business"})
	require.NoError(t, env.Audit.AuditLog(ctx, nil, domain.ActionPitchClosed, "pitch", &target, nil))

	res, err := env.Audit.List(context.Background(), domain.ListAuditLogRequest{TargetType: "pitch", TargetID: target})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 2)

	byAction := map[string]domain.AuditLog{}
	for _, l := range res.AuditLogs {
		byAction[l.Action] = l
	}
	system := byAction[domain.ActionPitchPublished]
	assert.Equal(t, string(domain.ActorTypeSystem), system.ActorType)
	assert.Nil(t, system.ActorID)
	assert.Equal(t, "v", system.Metadata["k"])

	user := byAction[domain.ActionPitchClosed]
	assert.Equal(t, string(domain.ActorTypeUser), user.ActorType)
	require.NotNil(t, user.ActorID)
	assert.Equal(t, "7", *user.ActorID)

	byActor, err := env.Audit.List(context.Background(), domain.ListAuditLogRequest{ActorID: "7"})
	require.NoError(t, err)
	assert.Len(t, byActor.AuditLogs, 1)
}

func TestAuditLogList(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, env.Audit.AuditLog(ctx, nil, domain.ActionAccountDeposit, "user", nil, nil))
	}

	first, err := env.Audit.List(ctx, domain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 3}})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 3)
	assert.True(t, first.HasMore)

	second, err := env.Audit.List(ctx, domain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 3, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 2)

	_, err = env.Audit.List(ctx, domain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
