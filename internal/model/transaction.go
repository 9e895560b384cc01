package model

import (
	"time"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionKindEarned    = "EARNED"    // 行为奖励入账
	TransactionKindSpent     = "SPENT"     // 打赏等支出
	TransactionKindWithdrawn = "WITHDRAWN" // 提现扣减
	TransactionKindEarning   = "EARNING"   // 广告分成入账
)

// ============================================================================
// 账户流水实体
// ============================================================================

// CoinTransaction 账户流水表
// 记录账户每一笔虚拟币变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联触发事件（reference_id）—— 便于幂等校验与对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
type CoinTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UserID        int64     `gorm:"index;not null" json:"user_id"`                               // 用户ID
	Kind          string    `gorm:"type:varchar(20);not null" json:"kind"`                       // 交易类型
	CoinType      string    `gorm:"type:varchar(16);not null" json:"coin_type"`                  // 币种
	Amount        int64     `gorm:"not null" json:"amount"`                                      // 金额（恒为正数，方向由 Kind 表达）
	Description   string    `gorm:"type:varchar(256)" json:"description"`                        // 备注
	ReferenceID   string    `gorm:"type:varchar(64);index;not null" json:"reference_id"`         // 触发事件ID（内容ID/打赏单号/提现单号）
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                              // 交易前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                               // 交易后余额
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CoinTransaction) TableName() string {
	return "coin_transaction"
}
