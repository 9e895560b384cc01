package service

import (
	"context"
	"errors"
	"testing"

	"coinledger/internal/model"
	"coinledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicAdjust_CreditThenDebit(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	balance, err := ledger.AtomicAdjust(ctx, 100, model.CoinTypeIcoin, 100, model.TransactionKindEarned, "入账", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = ledger.AtomicAdjust(ctx, 100, model.CoinTypeIcoin, -40, model.TransactionKindSpent, "支出", "ref-2")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	// 两笔流水，金额恒正，前后余额衔接
	var txns []model.CoinTransaction
	require.NoError(t, db.Where("user_id = ?", 100).Order("id").Find(&txns).Error)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(100), txns[0].Amount)
	assert.Equal(t, int64(0), txns[0].BalanceBefore)
	assert.Equal(t, int64(100), txns[0].BalanceAfter)
	assert.Equal(t, int64(40), txns[1].Amount)
	assert.Equal(t, int64(100), txns[1].BalanceBefore)
	assert.Equal(t, int64(60), txns[1].BalanceAfter)

	// 两个币种互不影响
	assert.Equal(t, int64(0), balanceOf(t, db, 100, model.CoinTypeVicoin))
}

func TestAtomicAdjust_InsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	_, err := ledger.AtomicAdjust(ctx, 101, model.CoinTypeVicoin, -10, model.TransactionKindSpent, "支出", "ref-x")
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)

	// 失败不留任何痕迹
	assert.Equal(t, int64(0), balanceOf(t, db, 101, model.CoinTypeVicoin))
	var count int64
	require.NoError(t, db.Model(&model.CoinTransaction{}).Where("user_id = ?", 101).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAtomicTransfer_Conservation(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	seedBalance(t, db, 1, model.CoinTypeVicoin, 100)
	seedBalance(t, db, 2, model.CoinTypeVicoin, 0)

	result, err := ledger.AtomicTransfer(ctx, 1, 2, model.CoinTypeVicoin, 30, "tip-1", "打赏", "获得打赏")
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.FromNewBalance)
	assert.Equal(t, int64(30), result.ToNewBalance)

	// 总币量守恒
	total := balanceOf(t, db, 1, model.CoinTypeVicoin) + balanceOf(t, db, 2, model.CoinTypeVicoin)
	assert.Equal(t, int64(100), total)

	// 借贷两条腿共享同一个 reference_id
	var txns []model.CoinTransaction
	require.NoError(t, db.Where("reference_id = ?", "tip-1").Find(&txns).Error)
	require.Len(t, txns, 2)
}

func TestAtomicTransfer_InsufficientRollsBackBothLegs(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	// 收款方 user_id 更小，收款腿先执行；
	// 扣款腿失败时必须连带回滚已入账的一条
	seedBalance(t, db, 9, model.CoinTypeVicoin, 5)
	seedBalance(t, db, 3, model.CoinTypeVicoin, 0)

	_, err := ledger.AtomicTransfer(ctx, 9, 3, model.CoinTypeVicoin, 10, "tip-2", "打赏", "获得打赏")
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)

	assert.Equal(t, int64(5), balanceOf(t, db, 9, model.CoinTypeVicoin))
	assert.Equal(t, int64(0), balanceOf(t, db, 3, model.CoinTypeVicoin))

	var count int64
	require.NoError(t, db.Model(&model.CoinTransaction{}).Where("reference_id = ?", "tip-2").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAtomicTransfer_InvalidArgs(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	_, err := ledger.AtomicTransfer(ctx, 1, 2, model.CoinTypeVicoin, 0, "r", "", "")
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = ledger.AtomicTransfer(ctx, 1, 1, model.CoinTypeVicoin, 10, "r", "", "")
	assert.True(t, errors.Is(err, ErrSelfTipNotAllowed))
}
