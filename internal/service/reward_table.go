package service

import (
	"coinledger/internal/model"
)

// rewardRule 某种奖励类型的静态发放规则
// Min == Max 表示固定金额，否则在 [Min, Max] 内均匀抽取
type rewardRule struct {
	CoinType   string
	Min        int64
	Max        int64
	PromoView  bool // 是否占用每日推广浏览计数
	Referrable bool // 是否给邀请人抽佣
}

// rewardTable 奖励类型表
// 客户端只能报类型，金额与币种由服务端查表决定
var rewardTable = map[string]rewardRule{
	"promo_view":    {CoinType: model.CoinTypeIcoin, Min: 1, Max: 10, PromoView: true},
	"watch_video":   {CoinType: model.CoinTypeIcoin, Min: 1, Max: 5, Referrable: true},
	"daily_login":   {CoinType: model.CoinTypeIcoin, Min: 5, Max: 5},
	"task_complete": {CoinType: model.CoinTypeIcoin, Min: 20, Max: 20, Referrable: true},
	"share_content": {CoinType: model.CoinTypeIcoin, Min: 2, Max: 8},
	"live_host":     {CoinType: model.CoinTypeVicoin, Min: 10, Max: 50, Referrable: true},
}

// RewardTypeAdRevenue 广告分成在奖励记录里的类型名
// 分成的幂等也靠 (creator, content, 该类型) 的唯一索引兜底
const RewardTypeAdRevenue = "ad_revenue_share"
