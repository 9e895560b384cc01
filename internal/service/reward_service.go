package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/infrastructure/lock"
	"coinledger/internal/model"
	"coinledger/internal/repository"
	"coinledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type RewardService struct {
	db            *gorm.DB
	redisClient   *redis.Client
	cfg           *config.Config
	ledger        *LedgerService
	rewardLogRepo *repository.RewardLogRepository
	dailyCapRepo  *repository.DailyCapRepository
	referralRepo  *repository.ReferralRepository
	notifier      *Notifier

	// 随机与时间源可注入，保证发放金额在测试里可复现
	randFn func(min, max int64) int64
	nowFn  func() time.Time
}

func NewRewardService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *RewardService {
	return &RewardService{
		db:            db,
		redisClient:   redisClient,
		cfg:           cfg,
		ledger:        NewLedgerService(db),
		rewardLogRepo: repository.NewRewardLogRepository(db),
		dailyCapRepo:  repository.NewDailyCapRepository(db),
		referralRepo:  repository.NewReferralRepository(db),
		notifier:      NewNotifier(db, cfg.Kafka.Topic),
		randFn: func(min, max int64) int64 {
			return min + rand.Int63n(max-min+1)
		},
		nowFn: time.Now,
	}
}

// SetRandFunc 覆盖随机源（测试用）
func (s *RewardService) SetRandFunc(fn func(min, max int64) int64) { s.randFn = fn }

// SetNowFunc 覆盖时间源（测试用）
func (s *RewardService) SetNowFunc(fn func() time.Time) { s.nowFn = fn }

type IssueRewardRequest struct {
	UserID         int64
	RewardType     string
	ContentID      string
	AttentionScore *int  // 0-100，可空
	Amount         int64 // 可选，仍会被夹到类型表的区间内
}

type IssueRewardResult struct {
	Amount         int64  `json:"amount"`
	CoinType       string `json:"coin_type"`
	NewBalance     int64  `json:"new_balance"`
	DailyRemaining int64  `json:"daily_remaining"`
}

// IssueReward 发放行为奖励
//
// 【关键点】整个流程是一个全或无的原子单元：
// 奖励记录插入（防重放）、日限额预占、余额增加、流水写入
// 在同一个数据库事务里提交。通知走 outbox，尽力而为，
// 失败不回滚前面的任何一步。
//
// 并发的重复请求无论多少个，唯一索引保证恰好一个成功，
// 其余拿到"已领取"
func (s *RewardService) IssueReward(ctx context.Context, req *IssueRewardRequest) (*IssueRewardResult, error) {
	rule, ok := rewardTable[req.RewardType]
	if !ok {
		return nil, ErrInvalidRewardType
	}
	if req.AttentionScore != nil && (*req.AttentionScore < 0 || *req.AttentionScore > 100) {
		return nil, ErrInvalidAttention
	}
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	// 重放快速预检，省掉一次注定失败的事务；真正的防线在事务里
	claimed, err := s.rewardLogRepo.Exists(ctx, req.UserID, req.ContentID, req.RewardType)
	if err != nil {
		return nil, fmt.Errorf("查询奖励记录失败: %w", err)
	}
	if claimed {
		return nil, repository.ErrRewardAlreadyClaimed
	}

	// 同账户操作串行化；测试环境不接 Redis 时由数据库约束兜底
	if s.redisClient != nil {
		rewardLock := lock.NewAccountLock(s.redisClient, req.UserID, idgen.GenerateRewardNo())
		if err := rewardLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, ErrBusy
		}
		defer rewardLock.Unlock(ctx)
	}

	amount := s.resolveAmount(rule, req.Amount)
	amount = s.applyAttention(amount, req.AttentionScore)

	referenceID := idgen.GenerateRewardNo()
	capDate := model.CapDate(s.nowFn())
	limit := s.cfg.Business.DailyLimitOf(rule.CoinType)

	result := &IssueRewardResult{CoinType: rule.CoinType}

	err = runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			// 推广浏览类奖励先占用当日次数，和金额限额相互独立
			if rule.PromoView {
				if err := s.dailyCapRepo.ReservePromoView(ctx, tx, req.UserID, capDate, s.cfg.Business.DailyPromoViewCap); err != nil {
					return err
				}
			}

			granted, usedAfter, err := s.dailyCapRepo.ReserveEarning(ctx, tx, req.UserID, capDate, rule.CoinType, amount, limit)
			if err != nil {
				return err
			}

			entry := &model.RewardLog{
				UserID:         req.UserID,
				ContentID:      req.ContentID,
				RewardType:     req.RewardType,
				CoinType:       rule.CoinType,
				Amount:         granted,
				AttentionScore: req.AttentionScore,
				ReferenceID:    referenceID,
			}
			if err := s.rewardLogRepo.Create(ctx, tx, entry); err != nil {
				return err
			}

			desc := fmt.Sprintf("奖励-%s-%s", req.RewardType, req.ContentID)
			newBalance, err := s.ledger.AdjustTx(ctx, tx, req.UserID, rule.CoinType, granted, model.TransactionKindEarned, desc, referenceID)
			if err != nil {
				return err
			}

			if rule.Referrable {
				if err := s.issueReferralCommission(ctx, tx, req.UserID, granted, referenceID); err != nil {
					return err
				}
			}

			if err := s.notifier.BalanceChanged(ctx, tx, req.UserID, "reward_issued", rule.CoinType, granted, newBalance, referenceID); err != nil {
				return err
			}

			result.Amount = granted
			result.NewBalance = newBalance
			result.DailyRemaining = limit - usedAfter
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reward] 发放成功: userID=%d, type=%s, contentID=%s, amount=%d %s",
		req.UserID, req.RewardType, req.ContentID, result.Amount, result.CoinType)

	return result, nil
}

// resolveAmount 由类型表定金额
// 显式传入的金额只在表定区间内生效，最后再压到单次硬上限以内
func (s *RewardService) resolveAmount(rule rewardRule, requested int64) int64 {
	var amount int64
	switch {
	case requested > 0:
		amount = requested
		if amount < rule.Min {
			amount = rule.Min
		}
		if amount > rule.Max {
			amount = rule.Max
		}
	case rule.Min == rule.Max:
		amount = rule.Min
	default:
		amount = s.randFn(rule.Min, rule.Max)
	}

	if amount > s.cfg.Business.MaxRewardPerCall {
		amount = s.cfg.Business.MaxRewardPerCall
	}
	return amount
}

// applyAttention 注意力得分缩放
// 得分不足 100 时按 max(0.5, score/100) 乘法缩放，向下取整，最低 1
func (s *RewardService) applyAttention(amount int64, score *int) int64 {
	if score == nil || *score >= 100 {
		return amount
	}
	factor := float64(*score) / 100
	if factor < 0.5 {
		factor = 0.5
	}
	scaled := int64(float64(amount) * factor)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// issueReferralCommission 邀请抽佣
// 被邀请人拿到可抽佣奖励时，给邀请人按万分比发 icoin，向下取整，
// 关系过期或失效则静默跳过
func (s *RewardService) issueReferralCommission(ctx context.Context, tx *gorm.DB, earnerID int64, earned int64, referenceID string) error {
	referral, err := s.referralRepo.GetByReferredID(ctx, tx, earnerID)
	if err != nil {
		return err
	}
	if referral == nil || !referral.IsActive(s.nowFn()) {
		return nil
	}

	commission := earned * int64(referral.CommissionRate) / 10000
	if commission <= 0 {
		return nil
	}

	desc := fmt.Sprintf("邀请抽佣-来自用户%d", earnerID)
	newBalance, err := s.ledger.AdjustTx(ctx, tx, referral.ReferrerID, model.CoinTypeIcoin, commission, model.TransactionKindEarned, desc, referenceID)
	if err != nil {
		return err
	}

	return s.notifier.BalanceChanged(ctx, tx, referral.ReferrerID, "referral_commission", model.CoinTypeIcoin, commission, newBalance, referenceID)
}
