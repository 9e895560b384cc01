package service

import (
	"context"
	"fmt"
	"testing"

	"coinledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAccount_ImplicitOpen(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	// 新用户首次查询即开户，双币余额为零
	account, err := svc.GetAccount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), account.UserID)
	assert.Equal(t, int64(0), account.VicoinBalance)
	assert.Equal(t, int64(0), account.IcoinBalance)

	// 再次查询拿到同一条记录
	again, err := svc.GetAccount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&model.Account{}).Where("user_id = ?", 42).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListTransactions_Pagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := ledger.AtomicAdjust(ctx, 7, model.CoinTypeIcoin, 1,
			model.TransactionKindEarned, "入账", fmt.Sprintf("ref-%d", i))
		require.NoError(t, err)
	}

	first, total, err := svc.ListTransactions(ctx, 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, first, 10)

	second, _, err := svc.ListTransactions(ctx, 7, 2, 10)
	require.NoError(t, err)
	assert.Len(t, second, 5)

	// 非法分页参数回退默认值
	fallback, _, err := svc.ListTransactions(ctx, 7, 0, -1)
	require.NoError(t, err)
	assert.Len(t, fallback, 10)
}
