package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_CheckLimit(t *testing.T) {
	ctx := context.Background()
	key := "formflow:rate_limit:submit:10.0.0.1"

	t.Run("under limit", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		svc := NewRateLimitService(rdb)

		mock.ExpectTxPipeline()
		mock.ExpectIncr(key).SetVal(3)
		mock.ExpectExpireNX(key, time.Minute).SetVal(false)
		mock.ExpectTxPipelineExec()

		allowed, retry, err := svc.CheckLimit(ctx, "submit:10.0.0.1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Zero(t, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over limit reports retry", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		svc := NewRateLimitService(rdb)

		mock.ExpectTxPipeline()
		mock.ExpectIncr(key).SetVal(6)
		mock.ExpectExpireNX(key, time.Minute).SetVal(false)
		mock.ExpectTxPipelineExec()
		mock.ExpectTTL(key).SetVal(42 * time.Second)

		allowed, retry, err := svc.CheckLimit(ctx, "submit:10.0.0.1", 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 42*time.Second, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		svc := NewRateLimitService(rdb)

		mock.ExpectTxPipeline()
		mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
		mock.ExpectExpireNX(key, time.Minute).SetVal(false)
		mock.ExpectTxPipelineExec()

		_, _, err := svc.CheckLimit(ctx, "submit:10.0.0.1", 5, time.Minute)
		assert.Error(t, err)
	})
}
