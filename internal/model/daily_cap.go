package model

import (
	"time"
)

// CapDateLayout 日限额日期键格式（UTC 自然日）
const CapDateLayout = "2006-01-02"

// CapDate 计算某时刻所属的限额日期键
func CapDate(t time.Time) string {
	return t.UTC().Format(CapDateLayout)
}

// DailyCap 每日限额计数表
// 每个 (user_id, cap_date) 一行，记录当天已发放的两种币数量
// 与已消耗的推广浏览次数
//
// 【设计思考】为什么不用"定时清零"而是按日期开新行？
// 新的一天查不到行就懒创建一条全零的行，天然完成重置，
// 不存在"忘了清零"这一类 bug，历史数据还保留了下来便于审计
type DailyCap struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64     `gorm:"not null;uniqueIndex:uk_user_date,priority:1" json:"user_id"`
	CapDate        string    `gorm:"type:varchar(10);not null;uniqueIndex:uk_user_date,priority:2" json:"cap_date"`
	IcoinEarned    int64     `gorm:"not null;default:0" json:"icoin_earned"`     // 当日已发 icoin
	VicoinEarned   int64     `gorm:"not null;default:0" json:"vicoin_earned"`    // 当日已发 vicoin
	PromoViewsUsed int       `gorm:"not null;default:0" json:"promo_views_used"` // 当日已计的推广浏览次数
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailyCap) TableName() string {
	return "daily_cap"
}

// EarnedOf 按币种取当日已发数量
func (d *DailyCap) EarnedOf(coinType string) int64 {
	if coinType == CoinTypeVicoin {
		return d.VicoinEarned
	}
	return d.IcoinEarned
}
