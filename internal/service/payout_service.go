package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"coinledger/internal/client"
	"coinledger/internal/config"
	"coinledger/internal/infrastructure/lock"
	"coinledger/internal/model"
	"coinledger/internal/repository"
	"coinledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// KYCVerified 提现要求的认证状态
const KYCVerified = "verified"

type PayoutService struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	ledger         *LedgerService
	withdrawalRepo *repository.WithdrawalRepository
	notifier       *Notifier
	kycChecker     client.KYCChecker
}

func NewPayoutService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, kycChecker client.KYCChecker) *PayoutService {
	return &PayoutService{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		ledger:         NewLedgerService(db),
		withdrawalRepo: repository.NewWithdrawalRepository(db),
		notifier:       NewNotifier(db, cfg.Kafka.Topic),
		kycChecker:     kycChecker,
	}
}

type PayoutRequest struct {
	RequestID string // 幂等ID，客户端生成
	UserID    int64
	Amount    int64
	CoinType  string
	Method    string // paypal / bank / crypto
	Details   string // 收款账户信息
}

type PayoutResponse struct {
	WithdrawalNo string `json:"withdrawal_no"`
	Amount       int64  `json:"amount"`
	CoinType     string `json:"coin_type"`
	NewBalance   int64  `json:"new_balance"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
}

// RequestPayout 发起提现
//
// 【关键点】先验证后提交：方式、门槛、实名认证、余额四道检查
// 全部通过后才在一个事务里完成扣款、提现单落库、通道交接消息，
// 任何一道失败都不会产生半截扣款。
// 核心的职责到"余额已扣、提现单已落库"为止，实际转账由
// 支付通道消费 outbox 消息后异步执行，结果通过回调写回状态
func (s *PayoutService) RequestPayout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error) {
	if !model.IsValidCoinType(req.CoinType) {
		return nil, ErrInvalidCoinType
	}
	if !model.IsValidPayoutMethod(req.Method) {
		return nil, ErrInvalidPayoutMethod
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	minimum := s.cfg.Business.MinPayoutOf(req.CoinType)
	if req.Amount < minimum {
		return nil, &BelowMinimumError{CoinType: req.CoinType, Minimum: minimum, Amount: req.Amount}
	}

	status, err := s.kycChecker.Status(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询认证状态失败: %w", err)
	}
	if status != KYCVerified {
		return nil, ErrKycRequired
	}

	// 幂等回查
	existing, err := s.withdrawalRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询提现单失败: %w", err)
	}
	if existing != nil {
		return &PayoutResponse{
			WithdrawalNo: existing.WithdrawalNo,
			Amount:       existing.Amount,
			CoinType:     existing.CoinType,
			Status:       existing.Status,
			Message:      "提现单已存在",
		}, nil
	}

	if s.redisClient != nil {
		payoutLock := lock.NewAccountLock(s.redisClient, req.UserID, req.RequestID)
		if err := payoutLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, ErrBusy
		}
		defer payoutLock.Unlock(ctx)

		existing, err = s.withdrawalRepo.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &PayoutResponse{
				WithdrawalNo: existing.WithdrawalNo,
				Amount:       existing.Amount,
				CoinType:     existing.CoinType,
				Status:       existing.Status,
				Message:      "提现单已存在",
			}, nil
		}
	}

	withdrawalNo := idgen.GenerateWithdrawalNo()
	withdrawal := &model.Withdrawal{
		WithdrawalNo: withdrawalNo,
		RequestID:    req.RequestID,
		UserID:       req.UserID,
		CoinType:     req.CoinType,
		Amount:       req.Amount,
		Method:       req.Method,
		Details:      req.Details,
		Status:       model.WithdrawalStatusProcessing,
	}

	var newBalance int64
	err = runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			desc := fmt.Sprintf("提现-%s-%s", req.Method, withdrawalNo)
			var err error
			newBalance, err = s.ledger.AdjustTx(ctx, tx, req.UserID, req.CoinType, -req.Amount, model.TransactionKindWithdrawn, desc, withdrawalNo)
			if err != nil {
				return err
			}

			if err := s.withdrawalRepo.Create(ctx, tx, withdrawal); err != nil {
				return fmt.Errorf("创建提现单失败: %w", err)
			}

			if err := s.notifier.PayoutRequested(ctx, tx, withdrawal); err != nil {
				return fmt.Errorf("写入通道消息失败: %w", err)
			}

			return s.notifier.BalanceChanged(ctx, tx, req.UserID, "payout_requested", req.CoinType, req.Amount, newBalance, withdrawalNo)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Payout] 提现受理: withdrawalNo=%s, userID=%d, amount=%d %s, method=%s",
		withdrawalNo, req.UserID, req.Amount, req.CoinType, req.Method)

	return &PayoutResponse{
		WithdrawalNo: withdrawalNo,
		Amount:       req.Amount,
		CoinType:     req.CoinType,
		NewBalance:   newBalance,
		Status:       model.WithdrawalStatusProcessing,
	}, nil
}

// ConfirmPayout 支付通道回调
// outcome 为 completed / failed；失败的提现单把钱退回账户
func (s *PayoutService) ConfirmPayout(ctx context.Context, withdrawalNo, outcome string) error {
	w, err := s.withdrawalRepo.GetByWithdrawalNo(ctx, withdrawalNo)
	if err != nil {
		return err
	}

	switch outcome {
	case "completed":
		return s.withdrawalRepo.UpdateStatus(ctx, nil, withdrawalNo, model.WithdrawalStatusProcessing, model.WithdrawalStatusCompleted)
	case "failed":
		return s.refundWithdrawal(ctx, w)
	default:
		return fmt.Errorf("未知的回调结果: %s", outcome)
	}
}

// refundWithdrawal 通道划转失败，退回余额
// PROCESSING→FAILED 的条件更新保证重复回调只退一次
func (s *PayoutService) refundWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	return runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.withdrawalRepo.UpdateStatus(ctx, tx, w.WithdrawalNo, model.WithdrawalStatusProcessing, model.WithdrawalStatusFailed); err != nil {
				return err
			}

			desc := fmt.Sprintf("提现失败退回-%s", w.WithdrawalNo)
			newBalance, err := s.ledger.AdjustTx(ctx, tx, w.UserID, w.CoinType, w.Amount, model.TransactionKindEarned, desc, w.WithdrawalNo)
			if err != nil {
				return err
			}

			if err := s.withdrawalRepo.UpdateStatus(ctx, tx, w.WithdrawalNo, model.WithdrawalStatusFailed, model.WithdrawalStatusRefunded); err != nil {
				return err
			}

			return s.notifier.BalanceChanged(ctx, tx, w.UserID, "payout_refunded", w.CoinType, w.Amount, newBalance, w.WithdrawalNo)
		})
	})
}

// ExpireStaleWithdrawal 超时未回调的提现单按失败处理并退款
// 由后台任务周期触发
func (s *PayoutService) ExpireStaleWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	return s.refundWithdrawal(ctx, w)
}
