package service

import (
	"context"
	"testing"

	"coinledger/internal/model"
	"coinledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTipCreator_Success(t *testing.T) {
	db := newTestDB(t)
	svc := NewTipService(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 100)
	seedBalance(t, db, 2, model.CoinTypeVicoin, 0)

	resp, err := svc.TipCreator(ctx, &TipRequest{
		RequestID: "req-1", TipperID: 1, CreatorID: 2, ContentID: "video-1",
		Amount: 30, CoinType: model.CoinTypeVicoin,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), resp.Amount)
	assert.Equal(t, int64(70), resp.TipperNewBalance)

	assert.Equal(t, int64(70), balanceOf(t, db, 1, model.CoinTypeVicoin))
	assert.Equal(t, int64(30), balanceOf(t, db, 2, model.CoinTypeVicoin))

	// 收款方收到一条余额变动通知
	var count int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("topic = ?", "test.notify").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTipCreator_SelfTipRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewTipService(db, nil, testConfig())

	_, err := svc.TipCreator(context.Background(), &TipRequest{
		RequestID: "req-1", TipperID: 1, CreatorID: 1, ContentID: "v",
		Amount: 10, CoinType: model.CoinTypeVicoin,
	})
	require.ErrorIs(t, err, ErrSelfTipNotAllowed)
}

func TestTipCreator_InvalidAmount(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewTipService(db, nil, cfg)
	ctx := context.Background()

	_, err := svc.TipCreator(ctx, &TipRequest{
		RequestID: "req-1", TipperID: 1, CreatorID: 2, Amount: 0, CoinType: model.CoinTypeVicoin,
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.TipCreator(ctx, &TipRequest{
		RequestID: "req-2", TipperID: 1, CreatorID: 2,
		Amount: cfg.Business.MaxTipAmount + 1, CoinType: model.CoinTypeVicoin,
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.TipCreator(ctx, &TipRequest{
		RequestID: "req-3", TipperID: 1, CreatorID: 2, Amount: 10, CoinType: "gold",
	})
	require.ErrorIs(t, err, ErrInvalidCoinType)
}

func TestTipCreator_CreatorNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewTipService(db, nil, testConfig())

	seedBalance(t, db, 1, model.CoinTypeVicoin, 100)

	// 收款方账户不存在时拒绝，不隐式开户
	_, err := svc.TipCreator(context.Background(), &TipRequest{
		RequestID: "req-1", TipperID: 1, CreatorID: 999, ContentID: "v",
		Amount: 10, CoinType: model.CoinTypeVicoin,
	})
	require.ErrorIs(t, err, ErrCreatorNotFound)
	assert.Equal(t, int64(100), balanceOf(t, db, 1, model.CoinTypeVicoin))
}

func TestTipCreator_InsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewTipService(db, nil, testConfig())

	seedBalance(t, db, 1, model.CoinTypeVicoin, 5)
	seedBalance(t, db, 2, model.CoinTypeVicoin, 0)

	_, err := svc.TipCreator(context.Background(), &TipRequest{
		RequestID: "req-1", TipperID: 1, CreatorID: 2, ContentID: "v",
		Amount: 10, CoinType: model.CoinTypeVicoin,
	})
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)

	// 两边余额都不动
	assert.Equal(t, int64(5), balanceOf(t, db, 1, model.CoinTypeVicoin))
	assert.Equal(t, int64(0), balanceOf(t, db, 2, model.CoinTypeVicoin))
}

func TestTipCreator_RequestIDIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewTipService(db, nil, testConfig())
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 100)
	seedBalance(t, db, 2, model.CoinTypeVicoin, 0)

	req := &TipRequest{
		RequestID: "req-retry", TipperID: 1, CreatorID: 2, ContentID: "v",
		Amount: 30, CoinType: model.CoinTypeVicoin,
	}
	first, err := svc.TipCreator(ctx, req)
	require.NoError(t, err)
	require.Empty(t, first.Message)

	// 同一个 request_id 重试返回先前结果，不重复扣款
	second, err := svc.TipCreator(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, second.Message)
	assert.Equal(t, int64(30), second.Amount)
	assert.Equal(t, int64(70), second.TipperNewBalance)
	assert.Equal(t, int64(70), balanceOf(t, db, 1, model.CoinTypeVicoin))
	assert.Equal(t, int64(30), balanceOf(t, db, 2, model.CoinTypeVicoin))
}
