package service

import (
	"context"
	"testing"

	"coinledger/internal/model"
	"coinledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterReferral(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig())
	ctx := context.Background()

	referral, err := svc.RegisterReferral(ctx, 1, 2, "INV1")
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusActive, referral.Status)
	assert.Equal(t, 500, referral.CommissionRate) // 落库时固化当前配置
	assert.True(t, referral.ExpiresAt.After(referral.CreatedAt))

	// 同一个人只能被邀请一次，哪怕邀请人不同
	_, err = svc.RegisterReferral(ctx, 3, 2, "INV3")
	require.ErrorIs(t, err, repository.ErrAlreadyReferred)

	// 自邀拒绝
	_, err = svc.RegisterReferral(ctx, 5, 5, "INV5")
	require.ErrorIs(t, err, ErrSelfReferral)
}

func TestListReferrals(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig())
	ctx := context.Background()

	_, err := svc.RegisterReferral(ctx, 1, 2, "INV1")
	require.NoError(t, err)
	_, err = svc.RegisterReferral(ctx, 1, 3, "INV1")
	require.NoError(t, err)
	_, err = svc.RegisterReferral(ctx, 9, 4, "INV9")
	require.NoError(t, err)

	referrals, err := svc.ListReferrals(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, referrals, 2)
}
