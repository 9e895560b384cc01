package job

import (
	"context"
	"log"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/repository"
	"coinledger/internal/service"

	"gorm.io/gorm"
)

// WithdrawalTimeoutJob 提现单超时任务
// 支付通道长时间不回调的 PROCESSING 提现单按失败处理：
// 状态机流转到 FAILED 并把扣掉的余额退回用户
type WithdrawalTimeoutJob struct {
	db             *gorm.DB
	withdrawalRepo *repository.WithdrawalRepository
	payoutService  *service.PayoutService
	cfg            *config.Config
	stopCh         chan struct{}
	interval       time.Duration
	batchSize      int
}

func NewWithdrawalTimeoutJob(db *gorm.DB, payoutService *service.PayoutService, cfg *config.Config) *WithdrawalTimeoutJob {
	return &WithdrawalTimeoutJob{
		db:             db,
		withdrawalRepo: repository.NewWithdrawalRepository(db),
		payoutService:  payoutService,
		cfg:            cfg,
		stopCh:         make(chan struct{}),
		interval:       time.Minute,
		batchSize:      100,
	}
}

func (j *WithdrawalTimeoutJob) Start(ctx context.Context) {
	log.Println("[WithdrawalTimeoutJob] 提现超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[WithdrawalTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[WithdrawalTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.expireStaleWithdrawals(ctx)
		}
	}
}

func (j *WithdrawalTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *WithdrawalTimeoutJob) expireStaleWithdrawals(ctx context.Context) {
	timeout := time.Duration(j.cfg.Business.WithdrawalTimeoutH) * time.Hour
	beforeTime := time.Now().Add(-timeout)

	withdrawals, err := j.withdrawalRepo.GetStaleProcessing(ctx, beforeTime, j.batchSize)
	if err != nil {
		log.Printf("[WithdrawalTimeoutJob] 查询超时提现单失败: %v", err)
		return
	}

	if len(withdrawals) == 0 {
		return
	}

	log.Printf("[WithdrawalTimeoutJob] 发现 %d 个超时提现单", len(withdrawals))

	for _, w := range withdrawals {
		if err := j.payoutService.ExpireStaleWithdrawal(ctx, w); err != nil {
			// 并发的通道回调可能刚好处理了同一单，状态机会挡掉重复退款
			if err == repository.ErrWithdrawalStatusInvalid {
				continue
			}
			log.Printf("[WithdrawalTimeoutJob] 处理超时提现单失败: withdrawalNo=%s, err=%v", w.WithdrawalNo, err)
			continue
		}
		log.Printf("[WithdrawalTimeoutJob] 超时提现单已退款: withdrawalNo=%s, userID=%d, amount=%d",
			w.WithdrawalNo, w.UserID, w.Amount)
	}
}
