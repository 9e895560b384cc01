package model

import (
	"time"
)

const (
	WithdrawalStatusProcessing = "PROCESSING"
	WithdrawalStatusCompleted  = "COMPLETED"
	WithdrawalStatusFailed     = "FAILED"
	WithdrawalStatusRefunded   = "REFUNDED"
)

// ValidWithdrawalTransitions 提现单状态机
// 扣款成功即进入 PROCESSING，实际转账由外部支付通道异步执行；
// 通道回调或超时任务驱动后续流转
var ValidWithdrawalTransitions = map[string][]string{
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted, WithdrawalStatusFailed},
	WithdrawalStatusFailed:     {WithdrawalStatusRefunded},
}

// CanTransitionTo 校验提现单状态流转是否合法
func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidWithdrawalTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

const (
	PayoutMethodPaypal = "paypal"
	PayoutMethodBank   = "bank"
	PayoutMethodCrypto = "crypto"
)

// IsValidPayoutMethod 校验提现方式
func IsValidPayoutMethod(method string) bool {
	switch method {
	case PayoutMethodPaypal, PayoutMethodBank, PayoutMethodCrypto:
		return true
	}
	return false
}

// Withdrawal 提现单表
// 核心的职责到"余额已扣、提现记录落库"为止，
// 真正的资金划转由外部支付通道消费 outbox 消息后执行
type Withdrawal struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawalNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdrawal_no"`
	RequestID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID，客户端生成
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	CoinType     string    `gorm:"type:varchar(16);not null" json:"coin_type"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Method       string    `gorm:"type:varchar(16);not null" json:"method"`  // paypal / bank / crypto
	Details      string    `gorm:"type:varchar(512)" json:"details"`         // 收款账户信息（透传给支付通道）
	Status       string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawal"
}
