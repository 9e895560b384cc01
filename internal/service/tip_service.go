package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/infrastructure/lock"
	"coinledger/internal/model"
	"coinledger/internal/repository"
	"coinledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type TipService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	ledger          *LedgerService
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	notifier        *Notifier
}

func NewTipService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *TipService {
	return &TipService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		ledger:          NewLedgerService(db),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		notifier:        NewNotifier(db, cfg.Kafka.Topic),
	}
}

type TipRequest struct {
	RequestID string // 幂等ID，客户端生成，重试网络请求时复用
	TipperID  int64
	CreatorID int64
	ContentID string
	Amount    int64
	CoinType  string
}

type TipResponse struct {
	TipNo            string `json:"tip_no"`
	Amount           int64  `json:"amount"`
	CoinType         string `json:"coin_type"`
	TipperNewBalance int64  `json:"new_balance"`
	Message          string `json:"message,omitempty"`
}

// TipCreator 给创作者打赏
//
// 每次调用都是一笔独立的打赏，不按业务键去重；
// 但 request_id 保证同一个客户端请求重试不会重复扣款。
// 借贷两条腿由 AtomicTransfer 原子完成，总币量守恒
func (s *TipService) TipCreator(ctx context.Context, req *TipRequest) (*TipResponse, error) {
	if req.TipperID == req.CreatorID {
		return nil, ErrSelfTipNotAllowed
	}
	if req.Amount <= 0 || req.Amount > s.cfg.Business.MaxTipAmount {
		return nil, ErrInvalidAmount
	}
	if !model.IsValidCoinType(req.CoinType) {
		return nil, ErrInvalidCoinType
	}

	// 幂等回查：同一个 request_id 的扣款流水已存在，直接返回先前结果
	existing, err := s.transactionRepo.GetByUserIDAndReference(ctx, req.TipperID, req.RequestID, model.TransactionKindSpent)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	if existing != nil {
		return &TipResponse{
			TipNo:            req.RequestID,
			Amount:           existing.Amount,
			CoinType:         existing.CoinType,
			TipperNewBalance: existing.BalanceAfter,
			Message:          "打赏已完成，请勿重复提交",
		}, nil
	}

	// 打赏要求创作者账户已存在，不会为不存在的收款方隐式开户
	if _, err := s.accountRepo.GetByUserID(ctx, nil, req.CreatorID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, err
	}

	if s.redisClient != nil {
		tipLock := lock.NewAccountLock(s.redisClient, req.TipperID, req.RequestID)
		if err := tipLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, ErrBusy
		}
		defer tipLock.Unlock(ctx)

		// 拿到锁后再查一次，挡住锁等待期间已完成的同一请求
		existing, err = s.transactionRepo.GetByUserIDAndReference(ctx, req.TipperID, req.RequestID, model.TransactionKindSpent)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &TipResponse{
				TipNo:            req.RequestID,
				Amount:           existing.Amount,
				CoinType:         existing.CoinType,
				TipperNewBalance: existing.BalanceAfter,
				Message:          "打赏已完成，请勿重复提交",
			}, nil
		}
	}

	tipNo := idgen.GenerateTipNo()
	fromDesc := fmt.Sprintf("打赏-内容%s-创作者%d", req.ContentID, req.CreatorID)
	toDesc := fmt.Sprintf("获得打赏-内容%s-来自用户%d", req.ContentID, req.TipperID)

	var result *TransferResult
	err = runWithCASRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.ledger.TransferTx(ctx, tx, req.TipperID, req.CreatorID, req.CoinType, req.Amount, req.RequestID, fromDesc, toDesc)
			if err != nil {
				return err
			}
			return s.notifier.BalanceChanged(ctx, tx, req.CreatorID, "tip_received", req.CoinType, req.Amount, result.ToNewBalance, tipNo)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Tip] 打赏成功: tipNo=%s, tipper=%d, creator=%d, amount=%d %s",
		tipNo, req.TipperID, req.CreatorID, req.Amount, req.CoinType)

	return &TipResponse{
		TipNo:            tipNo,
		Amount:           req.Amount,
		CoinType:         req.CoinType,
		TipperNewBalance: result.FromNewBalance,
	}, nil
}
