package repository

import (
	"context"
	"errors"
	"fmt"

	"coinledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrOptimisticLock   = errors.New("并发冲突，请重试")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// balanceColumn 币种对应的余额字段名
func balanceColumn(coinType string) string {
	if coinType == model.CoinTypeVicoin {
		return "vicoin_balance"
	}
	return "icoin_balance"
}

func (r *AccountRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	if tx == nil {
		tx = r.db
	}
	var account model.Account
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetOrCreate 查询账户，不存在则懒创建一条零余额账户
// 账户在第一笔影响余额的事件发生时隐式建立
func (r *AccountRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	if tx == nil {
		tx = r.db
	}

	account, err := r.GetByUserID(ctx, tx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	newAccount := &model.Account{UserID: userID}
	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error
	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, tx, userID)
}

// Adjust 按币种调整余额（delta 可正可负）
//
// 【关键点】条件更新 + 版本号构成一次 CAS：
//   - balance >= -delta 保证余额永不为负
//   - version 匹配保证没有并发写插队
//
// RowsAffected == 0 时回查区分"余额不足"和"版本冲突"，
// 版本冲突由上层在新事务里重试
func (r *AccountRepository) Adjust(ctx context.Context, tx *gorm.DB, userID int64, coinType string, delta int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	col := balanceColumn(coinType)
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where(fmt.Sprintf("user_id = ? AND %s + ? >= 0 AND version = ?", col), userID, delta, version).
		Updates(map[string]interface{}{
			col:       gorm.Expr(fmt.Sprintf("%s + ?", col), delta),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.GetByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if account.BalanceOf(coinType)+delta < 0 {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}
