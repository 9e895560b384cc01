package model

import (
	"time"
)

// 币种常量
// 系统维护两种相互独立的虚拟币，互不兑换
const (
	CoinTypeVicoin = "vicoin" // 创作者收益币（可提现）
	CoinTypeIcoin  = "icoin"  // 观看激励币（站内消费）
)

// IsValidCoinType 校验币种是否合法
func IsValidCoinType(coinType string) bool {
	return coinType == CoinTypeVicoin || coinType == CoinTypeIcoin
}

// Account 用户账户表
// 记录用户的两种虚拟币余额，是整个激励系统的核心数据
//
// 【重要】余额只允许通过账本服务的原子操作变更，
// 任何绕过流水记录直接改余额的写法都是事故
type Account struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"uniqueIndex;not null" json:"user_id"`       // 用户ID，由身份服务解析而来
	VicoinBalance int64     `gorm:"not null;default:0" json:"vicoin_balance"`  // vicoin 可用余额
	IcoinBalance  int64     `gorm:"not null;default:0" json:"icoin_balance"`   // icoin 可用余额
	Version       int       `gorm:"not null;default:0" json:"version"`         // 乐观锁版本号
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// BalanceOf 按币种取余额
func (a *Account) BalanceOf(coinType string) int64 {
	if coinType == CoinTypeVicoin {
		return a.VicoinBalance
	}
	return a.IcoinBalance
}
