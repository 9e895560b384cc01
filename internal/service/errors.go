package service

import (
	"errors"
	"fmt"
)

// 业务规则类错误
// 这类失败在余额真正变动之前就被拦下，重试也不会成功，
// 除非别处的状态先发生变化
var (
	ErrInvalidRewardType    = errors.New("未知的奖励类型")
	ErrInvalidCoinType      = errors.New("无效的币种")
	ErrInvalidAmount        = errors.New("金额必须为正整数")
	ErrSelfTipNotAllowed    = errors.New("不能给自己打赏")
	ErrCreatorNotFound      = errors.New("创作者不存在")
	ErrKycRequired          = errors.New("请先完成实名认证")
	ErrInvalidPayoutMethod  = errors.New("不支持的提现方式")
	ErrRevenueAlreadyShared = errors.New("该内容的广告分成已发放")
	ErrSelfReferral         = errors.New("不能邀请自己")
	ErrInvalidAttention     = errors.New("注意力得分必须在 0-100 之间")
	ErrBusy                 = errors.New("系统繁忙，请稍后重试")
)

// BelowMinimumError 提现金额低于该币种门槛
// 带上门槛值，调用方不需要猜"失败"是什么意思
type BelowMinimumError struct {
	CoinType string
	Minimum  int64
	Amount   int64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("提现金额 %d 低于 %s 最低门槛 %d", e.Amount, e.CoinType, e.Minimum)
}
