package repository

import (
	"context"
	"errors"

	"coinledger/internal/model"

	"gorm.io/gorm"
)

var ErrAlreadyReferred = errors.New("该用户已被邀请过")

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Create 建立邀请关系，referred_id 唯一索引保证一个用户只能被邀请一次
func (r *ReferralRepository) Create(ctx context.Context, tx *gorm.DB, referral *model.Referral) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyReferred
		}
		return err
	}
	return nil
}

// GetByReferredID 查某用户的被邀请关系，不存在返回 nil
func (r *ReferralRepository) GetByReferredID(ctx context.Context, tx *gorm.DB, referredID int64) (*model.Referral, error) {
	if tx == nil {
		tx = r.db
	}
	var referral model.Referral
	err := tx.WithContext(ctx).Where("referred_id = ?", referredID).First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

func (r *ReferralRepository) ListByReferrerID(ctx context.Context, referrerID int64) ([]*model.Referral, error) {
	var referrals []*model.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&referrals).Error
	return referrals, err
}
