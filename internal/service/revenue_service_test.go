package service

import (
	"context"
	"testing"

	"coinledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareAdRevenue_Success(t *testing.T) {
	db := newTestDB(t)
	svc := NewRevenueService(db, testConfig())

	// 100 次浏览 × 单价 2 = 200，创作者 55% = 110，平台 90
	result, err := svc.ShareAdRevenue(context.Background(), &ShareRevenueRequest{
		ContentID: "video-1", CreatorID: 1, PromoViewCount: 100,
	})
	require.NoError(t, err)
	assert.True(t, result.Shared)
	assert.Equal(t, int64(110), result.CreatorShare)
	assert.Equal(t, int64(90), result.PlatformShare)

	// 创作者份额入 vicoin 账户，流水类型为分成
	assert.Equal(t, int64(110), balanceOf(t, db, 1, model.CoinTypeVicoin))
	var txn model.CoinTransaction
	require.NoError(t, db.Where("user_id = ?", 1).First(&txn).Error)
	assert.Equal(t, model.TransactionKindEarning, txn.Kind)
}

func TestShareAdRevenue_AttentionMultiplier(t *testing.T) {
	db := newTestDB(t)
	svc := NewRevenueService(db, testConfig())

	// 得分 50 → 乘数 1.5：100×2×1.5 = 300，创作者 165，平台 135
	result, err := svc.ShareAdRevenue(context.Background(), &ShareRevenueRequest{
		ContentID: "video-2", CreatorID: 2, PromoViewCount: 100, AttentionScore: intPtr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(165), result.CreatorShare)
	assert.Equal(t, int64(135), result.PlatformShare)
}

func TestShareAdRevenue_BelowMinimumViews(t *testing.T) {
	db := newTestDB(t)
	svc := NewRevenueService(db, testConfig())

	// 不足门槛是静默拒绝，不是错误
	result, err := svc.ShareAdRevenue(context.Background(), &ShareRevenueRequest{
		ContentID: "video-3", CreatorID: 3, PromoViewCount: 10,
	})
	require.NoError(t, err)
	assert.False(t, result.Shared)
	assert.Equal(t, int64(50), result.MinimumViews)
	assert.Equal(t, int64(0), result.CreatorShare)

	// 不开户、不入账
	var count int64
	require.NoError(t, db.Model(&model.CoinTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestShareAdRevenue_OncePerContent(t *testing.T) {
	db := newTestDB(t)
	svc := NewRevenueService(db, testConfig())
	ctx := context.Background()

	req := &ShareRevenueRequest{ContentID: "video-4", CreatorID: 4, PromoViewCount: 100}
	_, err := svc.ShareAdRevenue(ctx, req)
	require.NoError(t, err)

	// 同一内容二次分成拒绝，余额不变
	_, err = svc.ShareAdRevenue(ctx, req)
	require.ErrorIs(t, err, ErrRevenueAlreadyShared)
	assert.Equal(t, int64(110), balanceOf(t, db, 4, model.CoinTypeVicoin))

	// 同创作者的其他内容照常分成
	_, err = svc.ShareAdRevenue(ctx, &ShareRevenueRequest{
		ContentID: "video-5", CreatorID: 4, PromoViewCount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(220), balanceOf(t, db, 4, model.CoinTypeVicoin))
}

func TestShareAdRevenue_InvalidArgs(t *testing.T) {
	db := newTestDB(t)
	svc := NewRevenueService(db, testConfig())
	ctx := context.Background()

	_, err := svc.ShareAdRevenue(ctx, &ShareRevenueRequest{ContentID: "", CreatorID: 1, PromoViewCount: 100})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.ShareAdRevenue(ctx, &ShareRevenueRequest{ContentID: "v", CreatorID: 1, PromoViewCount: -1})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.ShareAdRevenue(ctx, &ShareRevenueRequest{
		ContentID: "v", CreatorID: 1, PromoViewCount: 100, AttentionScore: intPtr(200),
	})
	require.ErrorIs(t, err, ErrInvalidAttention)
}
