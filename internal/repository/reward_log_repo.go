package repository

import (
	"context"
	"errors"

	"coinledger/internal/model"

	"gorm.io/gorm"
)

var ErrRewardAlreadyClaimed = errors.New("奖励已领取，请勿重复领取")

type RewardLogRepository struct {
	db *gorm.DB
}

func NewRewardLogRepository(db *gorm.DB) *RewardLogRepository {
	return &RewardLogRepository{db: db}
}

// Create 写入奖励发放记录
//
// 【关键点】这里不做 OnConflict 吞错：唯一索引冲突必须浮出来，
// 由唯一索引在提交点兜底防重放。依赖 gorm 的 TranslateError
// 把 MySQL 1062 统一翻译成 gorm.ErrDuplicatedKey
func (r *RewardLogRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.RewardLog) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRewardAlreadyClaimed
		}
		return err
	}
	return nil
}

// Exists 重放快速预检
// 真正的防线是唯一索引，这里只是省掉一次注定失败的事务
func (r *RewardLogRepository) Exists(ctx context.Context, userID int64, contentID, rewardType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RewardLog{}).
		Where("user_id = ? AND content_id = ? AND reward_type = ?", userID, contentID, rewardType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RewardLogRepository) ListByUserAndDate(ctx context.Context, userID int64, capDate string) ([]*model.RewardLog, error) {
	var logs []*model.RewardLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND DATE(created_at) = ?", userID, capDate).
		Find(&logs).Error
	return logs, err
}
