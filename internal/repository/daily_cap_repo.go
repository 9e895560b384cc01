package repository

import (
	"context"
	"fmt"

	"coinledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyLimitError 当日限额已满
// 携带限额与已用量，调用方据此决定退避到第二天
type DailyLimitError struct {
	Resource string // 币种或 promo_views
	Limit    int64
	Used     int64
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("当日限额已满: %s 限额 %d，已用 %d", e.Resource, e.Limit, e.Used)
}

type DailyCapRepository struct {
	db *gorm.DB
}

func NewDailyCapRepository(db *gorm.DB) *DailyCapRepository {
	return &DailyCapRepository{db: db}
}

// getOrCreate 懒创建当日的限额行（按日期开新行即是隐式重置）
func (r *DailyCapRepository) getOrCreate(ctx context.Context, tx *gorm.DB, userID int64, capDate string) (*model.DailyCap, error) {
	row := &model.DailyCap{UserID: userID, CapDate: capDate}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "cap_date"}},
			DoNothing: true,
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}

	var existing model.DailyCap
	err = tx.WithContext(ctx).
		Where("user_id = ? AND cap_date = ?", userID, capDate).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *DailyCapRepository) Get(ctx context.Context, userID int64, capDate string) (*model.DailyCap, error) {
	var row model.DailyCap
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND cap_date = ?", userID, capDate).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.DailyCap{UserID: userID, CapDate: capDate}, nil
		}
		return nil, err
	}
	return &row, nil
}

// ReserveEarning 在调用方事务里预占当日发放额度
//
// remaining = limit - 已发；额度用尽返回 DailyLimitError，
// 否则 granted = min(requested, remaining)，把发放金额夹到剩余额度内。
// 条件更新要求已发数量未被并发改动（CAS），冲突返回 ErrOptimisticLock，
// 随调用方整个事务重试
func (r *DailyCapRepository) ReserveEarning(ctx context.Context, tx *gorm.DB, userID int64, capDate, coinType string, requested, limit int64) (int64, int64, error) {
	row, err := r.getOrCreate(ctx, tx, userID, capDate)
	if err != nil {
		return 0, 0, err
	}

	earned := row.EarnedOf(coinType)
	remaining := limit - earned
	if remaining <= 0 {
		return 0, earned, &DailyLimitError{Resource: coinType, Limit: limit, Used: earned}
	}

	granted := requested
	if granted > remaining {
		granted = remaining
	}

	col := "icoin_earned"
	if coinType == model.CoinTypeVicoin {
		col = "vicoin_earned"
	}

	result := tx.WithContext(ctx).
		Model(&model.DailyCap{}).
		Where(fmt.Sprintf("user_id = ? AND cap_date = ? AND %s = ?", col), userID, capDate, earned).
		Update(col, gorm.Expr(fmt.Sprintf("%s + ?", col), granted))
	if result.Error != nil {
		return 0, 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, 0, ErrOptimisticLock
	}

	return granted, earned + granted, nil
}

// ReservePromoView 预占当日推广浏览计数
// 与金额限额相互独立，无论本次发了多少币，一次推广浏览只记一次
func (r *DailyCapRepository) ReservePromoView(ctx context.Context, tx *gorm.DB, userID int64, capDate string, viewCap int) error {
	row, err := r.getOrCreate(ctx, tx, userID, capDate)
	if err != nil {
		return err
	}

	if row.PromoViewsUsed >= viewCap {
		return &DailyLimitError{Resource: "promo_views", Limit: int64(viewCap), Used: int64(row.PromoViewsUsed)}
	}

	result := tx.WithContext(ctx).
		Model(&model.DailyCap{}).
		Where("user_id = ? AND cap_date = ? AND promo_views_used = ?", userID, capDate, row.PromoViewsUsed).
		Update("promo_views_used", gorm.Expr("promo_views_used + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}
