package service

import (
	"context"
	"errors"

	"coinledger/internal/model"
	"coinledger/internal/repository"
	"coinledger/pkg/idgen"

	"gorm.io/gorm"
)

// ============================================================================
// 账本服务
// ============================================================================
//
// 余额变动的唯一入口。所有上层操作（发奖、打赏、提现、分成）
// 最终都落到 AdjustTx / AtomicTransfer 上：
//   - 条件更新保证余额永不为负
//   - 余额变更与流水写入在同一个事务里提交
//   - 版本号 CAS 冲突时整个事务重试，外部观察不到中间状态
//
// ============================================================================

// casRetryLimit CAS 冲突时的事务重试次数
const casRetryLimit = 3

// runWithCASRetry 乐观锁冲突时重试整个原子单元
func runWithCASRetry(fn func() error) error {
	var err error
	for i := 0; i < casRetryLimit; i++ {
		err = fn()
		if !errors.Is(err, repository.ErrOptimisticLock) {
			return err
		}
	}
	return err
}

type LedgerService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// AdjustTx 在调用方事务里调整余额并记一条流水，返回调整后余额
//
// delta 为负且余额不足时返回 ErrBalanceNotEnough，事务内不产生任何写入。
// 调用方负责把本方法和它自己的写操作（奖励记录、限额预占等）
// 放进同一个 db.Transaction
func (s *LedgerService) AdjustTx(ctx context.Context, tx *gorm.DB, userID int64, coinType string, delta int64, kind, description, referenceID string) (int64, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	before := account.BalanceOf(coinType)
	if delta < 0 && before+delta < 0 {
		return 0, repository.ErrBalanceNotEnough
	}

	if err := s.accountRepo.Adjust(ctx, tx, userID, coinType, delta, account.Version); err != nil {
		return 0, err
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}

	trans := &model.CoinTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UserID:        userID,
		Kind:          kind,
		CoinType:      coinType,
		Amount:        amount,
		Description:   description,
		ReferenceID:   referenceID,
		BalanceBefore: before,
		BalanceAfter:  before + delta,
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return 0, err
	}

	return before + delta, nil
}

// AtomicAdjust 独立事务版本的 AdjustTx
func (s *LedgerService) AtomicAdjust(ctx context.Context, userID int64, coinType string, delta int64, kind, description, referenceID string) (int64, error) {
	var newBalance int64
	err := runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			newBalance, err = s.AdjustTx(ctx, tx, userID, coinType, delta, kind, description, referenceID)
			return err
		})
	})
	return newBalance, err
}

// TransferResult 转账结果
type TransferResult struct {
	FromNewBalance int64
	ToNewBalance   int64
}

// AtomicTransfer 两个账户间的原子转账
//
// 【关键点】两条腿按 user_id 升序执行。MySQL 下两腿各自持有
// 对应账户的行锁，固定加锁顺序使得 A 打赏 B 和 B 打赏 A
// 同时发生也不会互相死锁。任一条腿失败整个事务回滚，
// 两边余额都不变——借贷恒等，总币量守恒
func (s *LedgerService) AtomicTransfer(ctx context.Context, fromID, toID int64, coinType string, amount int64, referenceID, fromDesc, toDesc string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if fromID == toID {
		return nil, ErrSelfTipNotAllowed
	}

	result := &TransferResult{}
	err := runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.TransferTx(ctx, tx, fromID, toID, coinType, amount, referenceID, fromDesc, toDesc)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TransferTx 在调用方事务里执行转账的两条腿
func (s *LedgerService) TransferTx(ctx context.Context, tx *gorm.DB, fromID, toID int64, coinType string, amount int64, referenceID, fromDesc, toDesc string) (*TransferResult, error) {
	type leg struct {
		userID int64
		delta  int64
		kind   string
		desc   string
	}
	legs := []leg{
		{fromID, -amount, model.TransactionKindSpent, fromDesc},
		{toID, amount, model.TransactionKindEarned, toDesc},
	}
	if legs[0].userID > legs[1].userID {
		legs[0], legs[1] = legs[1], legs[0]
	}

	result := &TransferResult{}
	for _, l := range legs {
		newBalance, err := s.AdjustTx(ctx, tx, l.userID, coinType, l.delta, l.kind, l.desc, referenceID)
		if err != nil {
			return nil, err
		}
		if l.userID == fromID {
			result.FromNewBalance = newBalance
		} else {
			result.ToNewBalance = newBalance
		}
	}
	return result, nil
}
