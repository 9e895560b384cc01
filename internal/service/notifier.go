package service

import (
	"context"
	"encoding/json"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/model"
	"coinledger/internal/repository"

	"gorm.io/gorm"
)

// Notifier 余额变更通知
//
// 通知消息随账本事务一起写进 outbox（事务性发件箱），
// 真正投递到 Kafka 的动作由 OutboxSender 异步完成。
// 投递环节怎么失败都影响不到已提交的账本变更
type Notifier struct {
	outboxRepo *repository.OutboxRepository
	topics     config.KafkaTopicConfig
}

func NewNotifier(db *gorm.DB, topics config.KafkaTopicConfig) *Notifier {
	return &Notifier{
		outboxRepo: repository.NewOutboxRepository(db),
		topics:     topics,
	}
}

// BalanceChanged 写入一条余额变更通知
func (n *Notifier) BalanceChanged(ctx context.Context, tx *gorm.DB, userID int64, event, coinType string, amount, newBalance int64, referenceID string) error {
	payload := map[string]interface{}{
		"user_id":      userID,
		"event":        event,
		"coin_type":    coinType,
		"amount":       amount,
		"new_balance":  newBalance,
		"reference_id": referenceID,
		"occurred_at":  time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return n.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: referenceID,
		Topic:      n.topics.Notify,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}

// PayoutRequested 把已扣款的提现单交接给支付通道
func (n *Notifier) PayoutRequested(ctx context.Context, tx *gorm.DB, w *model.Withdrawal) error {
	payload := map[string]interface{}{
		"withdrawal_no": w.WithdrawalNo,
		"user_id":       w.UserID,
		"coin_type":     w.CoinType,
		"amount":        w.Amount,
		"method":        w.Method,
		"details":       w.Details,
		"requested_at":  time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return n.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: w.WithdrawalNo,
		Topic:      n.topics.PayoutRequest,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}
