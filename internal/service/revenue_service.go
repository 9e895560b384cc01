package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"coinledger/internal/config"
	"coinledger/internal/model"
	"coinledger/internal/repository"
	"coinledger/pkg/idgen"

	"gorm.io/gorm"
)

type RevenueService struct {
	db            *gorm.DB
	cfg           *config.Config
	ledger        *LedgerService
	rewardLogRepo *repository.RewardLogRepository
	notifier      *Notifier
}

func NewRevenueService(db *gorm.DB, cfg *config.Config) *RevenueService {
	return &RevenueService{
		db:            db,
		cfg:           cfg,
		ledger:        NewLedgerService(db),
		rewardLogRepo: repository.NewRewardLogRepository(db),
		notifier:      NewNotifier(db, cfg.Kafka.Topic),
	}
}

type ShareRevenueRequest struct {
	ContentID      string
	CreatorID      int64
	PromoViewCount int64
	AttentionScore *int
}

type ShareRevenueResult struct {
	Shared        bool   `json:"shared"`
	CreatorShare  int64  `json:"creator_share"`
	PlatformShare int64  `json:"platform_share"`
	MinimumViews  int64  `json:"minimum_views,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ShareAdRevenue 广告收入分成
//
// 浏览量不足门槛时静默拒绝（非错误）。
// 计费公式与发奖的注意力缩放刻意不同：这里是加法乘数
// 1 + score/100，两边份额都向下取整。
// 每个内容只分成一次：创作者的奖励记录
// (creator, content, ad_revenue_share) 唯一索引在提交点兜底
func (s *RevenueService) ShareAdRevenue(ctx context.Context, req *ShareRevenueRequest) (*ShareRevenueResult, error) {
	if req.PromoViewCount < 0 || req.CreatorID <= 0 || req.ContentID == "" {
		return nil, ErrInvalidAmount
	}
	if req.AttentionScore != nil && (*req.AttentionScore < 0 || *req.AttentionScore > 100) {
		return nil, ErrInvalidAttention
	}

	if req.PromoViewCount < s.cfg.Business.MinPromoViews {
		return &ShareRevenueResult{
			Shared:       false,
			MinimumViews: s.cfg.Business.MinPromoViews,
			Message:      "浏览量未达到分成门槛",
		}, nil
	}

	multiplier := 1.0
	if req.AttentionScore != nil {
		multiplier = 1 + float64(*req.AttentionScore)/100
	}
	totalRevenue := int64(float64(req.PromoViewCount) * float64(s.cfg.Business.PerViewRate) * multiplier)
	creatorShare := totalRevenue * s.cfg.Business.CreatorShareBps / 10000
	platformShare := totalRevenue - creatorShare

	referenceID := idgen.GenerateRewardNo()
	var newBalance int64

	err := runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			entry := &model.RewardLog{
				UserID:         req.CreatorID,
				ContentID:      req.ContentID,
				RewardType:     RewardTypeAdRevenue,
				CoinType:       model.CoinTypeVicoin,
				Amount:         creatorShare,
				AttentionScore: req.AttentionScore,
				ReferenceID:    referenceID,
			}
			if err := s.rewardLogRepo.Create(ctx, tx, entry); err != nil {
				if errors.Is(err, repository.ErrRewardAlreadyClaimed) {
					return ErrRevenueAlreadyShared
				}
				return err
			}

			desc := fmt.Sprintf("广告分成-内容%s-浏览量%d", req.ContentID, req.PromoViewCount)
			var err error
			newBalance, err = s.ledger.AdjustTx(ctx, tx, req.CreatorID, model.CoinTypeVicoin, creatorShare, model.TransactionKindEarning, desc, referenceID)
			if err != nil {
				return err
			}

			return s.notifier.BalanceChanged(ctx, tx, req.CreatorID, "ad_revenue_shared", model.CoinTypeVicoin, creatorShare, newBalance, referenceID)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Revenue] 分成完成: contentID=%s, creator=%d, creatorShare=%d, platformShare=%d",
		req.ContentID, req.CreatorID, creatorShare, platformShare)

	return &ShareRevenueResult{
		Shared:        true,
		CreatorShare:  creatorShare,
		PlatformShare: platformShare,
	}, nil
}
