package service

import (
	"context"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/model"
	"coinledger/internal/repository"

	"gorm.io/gorm"
)

type ReferralService struct {
	db           *gorm.DB
	cfg          *config.Config
	referralRepo *repository.ReferralRepository

	nowFn func() time.Time
}

func NewReferralService(db *gorm.DB, cfg *config.Config) *ReferralService {
	return &ReferralService{
		db:           db,
		cfg:          cfg,
		referralRepo: repository.NewReferralRepository(db),
		nowFn:        time.Now,
	}
}

// RegisterReferral 建立邀请关系
// 一个用户只能被邀请一次，自邀直接拒绝；
// 抽佣比例与有效期取当前配置，落库后不跟随配置变化
func (s *ReferralService) RegisterReferral(ctx context.Context, referrerID, referredID int64, code string) (*model.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	referral := &model.Referral{
		ReferrerID:     referrerID,
		ReferredID:     referredID,
		Code:           code,
		Status:         model.ReferralStatusActive,
		CommissionRate: s.cfg.Business.ReferralRateBps,
		ExpiresAt:      s.nowFn().AddDate(0, 0, s.cfg.Business.ReferralValidDays),
	}

	if err := s.referralRepo.Create(ctx, nil, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// ListReferrals 查询某用户发起的邀请
func (s *ReferralService) ListReferrals(ctx context.Context, referrerID int64) ([]*model.Referral, error) {
	return s.referralRepo.ListByReferrerID(ctx, referrerID)
}
