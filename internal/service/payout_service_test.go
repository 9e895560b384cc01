package service

import (
	"context"
	"testing"

	"coinledger/internal/model"
	"coinledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPayout_Success(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 1000)

	resp, err := svc.RequestPayout(ctx, &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "paypal", Details: "user@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), resp.NewBalance)
	assert.Equal(t, model.WithdrawalStatusProcessing, resp.Status)
	assert.NotEmpty(t, resp.WithdrawalNo)

	assert.Equal(t, int64(400), balanceOf(t, db, 1, model.CoinTypeVicoin))

	// 提现单落库为处理中
	var w model.Withdrawal
	require.NoError(t, db.Where("withdrawal_no = ?", resp.WithdrawalNo).First(&w).Error)
	assert.Equal(t, model.WithdrawalStatusProcessing, w.Status)
	assert.Equal(t, int64(600), w.Amount)

	// 通道交接消息在同一个事务里写入 outbox
	var count int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("topic = ?", "test.payout.request").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 扣款流水类型为提现
	var txn model.CoinTransaction
	require.NoError(t, db.Where("reference_id = ?", resp.WithdrawalNo).First(&txn).Error)
	assert.Equal(t, model.TransactionKindWithdrawn, txn.Kind)
	assert.Equal(t, int64(600), txn.Amount)
}

func TestRequestPayout_BelowMinimum(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})

	// 门槛检查先于余额检查，零余额也能拿到清晰的门槛错误
	_, err := svc.RequestPayout(context.Background(), &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 100,
		CoinType: model.CoinTypeVicoin, Method: "paypal",
	})
	var minErr *BelowMinimumError
	require.ErrorAs(t, err, &minErr)
	assert.Equal(t, int64(500), minErr.Minimum)
	assert.Equal(t, int64(100), minErr.Amount)
	assert.Equal(t, model.CoinTypeVicoin, minErr.CoinType)
}

func TestRequestPayout_KYCRequired(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: "pending"})

	seedBalance(t, db, 1, model.CoinTypeVicoin, 1000)

	_, err := svc.RequestPayout(context.Background(), &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "paypal",
	})
	require.ErrorIs(t, err, ErrKycRequired)
	assert.Equal(t, int64(1000), balanceOf(t, db, 1, model.CoinTypeVicoin))
}

func TestRequestPayout_InsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})

	seedBalance(t, db, 1, model.CoinTypeVicoin, 100)

	_, err := svc.RequestPayout(context.Background(), &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "paypal",
	})
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)
	assert.Equal(t, int64(100), balanceOf(t, db, 1, model.CoinTypeVicoin))

	// 失败不留提现单
	var count int64
	require.NoError(t, db.Model(&model.Withdrawal{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRequestPayout_InvalidMethod(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})

	_, err := svc.RequestPayout(context.Background(), &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "cash",
	})
	require.ErrorIs(t, err, ErrInvalidPayoutMethod)
}

func TestRequestPayout_RequestIDIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 1000)

	req := &PayoutRequest{
		RequestID: "req-retry", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "paypal",
	}
	first, err := svc.RequestPayout(ctx, req)
	require.NoError(t, err)

	// 重试返回已有提现单，不再次扣款
	second, err := svc.RequestPayout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.WithdrawalNo, second.WithdrawalNo)
	assert.NotEmpty(t, second.Message)
	assert.Equal(t, int64(400), balanceOf(t, db, 1, model.CoinTypeVicoin))
}

func TestConfirmPayout_Completed(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 1000)
	resp, err := svc.RequestPayout(ctx, &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "bank",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPayout(ctx, resp.WithdrawalNo, "completed"))

	var w model.Withdrawal
	require.NoError(t, db.Where("withdrawal_no = ?", resp.WithdrawalNo).First(&w).Error)
	assert.Equal(t, model.WithdrawalStatusCompleted, w.Status)
	// 完成不改余额，钱在受理时已经扣掉
	assert.Equal(t, int64(400), balanceOf(t, db, 1, model.CoinTypeVicoin))
}

func TestConfirmPayout_FailedRefunds(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 1000)
	resp, err := svc.RequestPayout(ctx, &PayoutRequest{
		RequestID: "req-1", UserID: 1, Amount: 600,
		CoinType: model.CoinTypeVicoin, Method: "crypto",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPayout(ctx, resp.WithdrawalNo, "failed"))

	var w model.Withdrawal
	require.NoError(t, db.Where("withdrawal_no = ?", resp.WithdrawalNo).First(&w).Error)
	assert.Equal(t, model.WithdrawalStatusRefunded, w.Status)
	assert.Equal(t, int64(1000), balanceOf(t, db, 1, model.CoinTypeVicoin))

	// 重复失败回调只退一次
	err = svc.ConfirmPayout(ctx, resp.WithdrawalNo, "failed")
	require.ErrorIs(t, err, repository.ErrWithdrawalStatusInvalid)
	assert.Equal(t, int64(1000), balanceOf(t, db, 1, model.CoinTypeVicoin))
}

func TestConfirmPayout_UnknownWithdrawal(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, nil, testConfig(), stubKYC{status: KYCVerified})

	err := svc.ConfirmPayout(context.Background(), "WDR-nope", "completed")
	require.ErrorIs(t, err, repository.ErrWithdrawalNotFound)
}
