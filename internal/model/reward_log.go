package model

import (
	"time"
)

// RewardLog 奖励发放记录表
//
// 【关键点】(user_id, content_id, reward_type) 三元组全局唯一，
// 这是防重放的根基：同一个用户对同一内容的同一种奖励只能领一次。
// 唯一索引由数据库兜底，并且插入与加余额在同一个事务里提交，
// 并发重复请求最多只有一个能成功
type RewardLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64     `gorm:"not null;uniqueIndex:uk_reward_claim,priority:1" json:"user_id"`
	ContentID      string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_reward_claim,priority:2" json:"content_id"`
	RewardType     string    `gorm:"type:varchar(32);not null;uniqueIndex:uk_reward_claim,priority:3" json:"reward_type"`
	CoinType       string    `gorm:"type:varchar(16);not null" json:"coin_type"`
	Amount         int64     `gorm:"not null" json:"amount"`                // 实际发放金额（已扣日限额后）
	AttentionScore *int      `gorm:"default:null" json:"attention_score"`  // 注意力得分 0-100，可空
	ReferenceID    string    `gorm:"type:varchar(64);index" json:"reference_id"` // 对应流水的 reference_id
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (RewardLog) TableName() string {
	return "reward_log"
}
