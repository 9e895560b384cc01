package handler

import (
	"errors"
	"strconv"

	"coinledger/internal/client"
	"coinledger/internal/config"
	"coinledger/internal/repository"
	"coinledger/internal/service"
	"coinledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService  *service.AccountService
	rewardService   *service.RewardService
	tipService      *service.TipService
	payoutService   *service.PayoutService
	revenueService  *service.RevenueService
	referralService *service.ReferralService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	kycClient := client.NewKYCClient(&cfg.KYC)
	return &Handler{
		accountService:  service.NewAccountService(db),
		rewardService:   service.NewRewardService(db, rdb, cfg),
		tipService:      service.NewTipService(db, rdb, cfg),
		payoutService:   service.NewPayoutService(db, rdb, cfg, kycClient),
		revenueService:  service.NewRevenueService(db, cfg),
		referralService: service.NewReferralService(db, cfg),
	}
}

// writeServiceError 业务错误到响应码的统一映射
// 每类拒绝都带上调用方决策所需的细节
func writeServiceError(c *gin.Context, err error) {
	var dailyErr *repository.DailyLimitError
	var minErr *service.BelowMinimumError

	switch {
	case errors.Is(err, repository.ErrRewardAlreadyClaimed):
		response.Error(c, response.CodeAlreadyClaimed, err.Error())
	case errors.Is(err, service.ErrRevenueAlreadyShared):
		response.Error(c, response.CodeAlreadyShared, err.Error())
	case errors.As(err, &dailyErr):
		response.ErrorWithData(c, response.CodeDailyLimitReached, err.Error(), gin.H{
			"resource": dailyErr.Resource,
			"limit":    dailyErr.Limit,
			"used":     dailyErr.Used,
		})
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.Error(c, response.CodeInsufficientCoin, err.Error())
	case errors.Is(err, service.ErrSelfTipNotAllowed):
		response.Error(c, response.CodeSelfTipNotAllowed, err.Error())
	case errors.Is(err, service.ErrCreatorNotFound):
		response.Error(c, response.CodeCreatorNotFound, err.Error())
	case errors.Is(err, service.ErrKycRequired):
		response.Error(c, response.CodeKycRequired, err.Error())
	case errors.As(err, &minErr):
		response.ErrorWithData(c, response.CodeBelowMinimumPayout, err.Error(), gin.H{
			"coin_type": minErr.CoinType,
			"minimum":   minErr.Minimum,
			"amount":    minErr.Amount,
		})
	case errors.Is(err, repository.ErrAlreadyReferred):
		response.Error(c, response.CodeAlreadyReferred, err.Error())
	case errors.Is(err, service.ErrBusy), errors.Is(err, repository.ErrOptimisticLock):
		response.Error(c, response.CodeBusy, service.ErrBusy.Error())
	case errors.Is(err, service.ErrInvalidRewardType),
		errors.Is(err, service.ErrInvalidCoinType),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPayoutMethod),
		errors.Is(err, service.ErrInvalidAttention),
		errors.Is(err, service.ErrSelfReferral):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 账户相关接口
// ============================================================

// GetBalance 查询当前用户余额
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"user_id":        account.UserID,
		"vicoin_balance": account.VicoinBalance,
		"icoin_balance":  account.IcoinBalance,
	})
}

// ListTransactions 查询当前用户流水
// GET /api/v1/account/transactions?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 奖励相关接口
// ============================================================

// IssueRewardRequest 发奖请求
type IssueRewardRequest struct {
	RewardType     string `json:"reward_type" binding:"required"`
	ContentID      string `json:"content_id" binding:"required"`
	AttentionScore *int   `json:"attention_score"`
	Amount         int64  `json:"amount"` // 可选，服务端仍按类型表夹取
}

// IssueReward 发放行为奖励
// POST /api/v1/reward/issue
//
// 【关键点】同一 (用户, 内容, 奖励类型) 只能领一次；
// 并发重复请求恰好一个成功，其余返回"已领取"
func (h *Handler) IssueReward(c *gin.Context) {
	var req IssueRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.rewardService.IssueReward(c.Request.Context(), &service.IssueRewardRequest{
		UserID:         currentUserID(c),
		RewardType:     req.RewardType,
		ContentID:      req.ContentID,
		AttentionScore: req.AttentionScore,
		Amount:         req.Amount,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 打赏相关接口
// ============================================================

// TipRequest 打赏请求
type TipRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID，客户端生成
	CreatorID int64  `json:"creator_id" binding:"required"`
	ContentID string `json:"content_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	CoinType  string `json:"coin_type" binding:"required"`
}

// TipCreator 打赏创作者
// POST /api/v1/tip/send
func (h *Handler) TipCreator(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.tipService.TipCreator(c.Request.Context(), &service.TipRequest{
		RequestID: req.RequestID,
		TipperID:  currentUserID(c),
		CreatorID: req.CreatorID,
		ContentID: req.ContentID,
		Amount:    req.Amount,
		CoinType:  req.CoinType,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 提现相关接口
// ============================================================

// PayoutRequest 提现请求
type PayoutRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	CoinType  string `json:"coin_type" binding:"required"`
	Method    string `json:"method" binding:"required"` // paypal / bank / crypto
	Details   string `json:"payout_details" binding:"required"`
}

// RequestPayout 发起提现
// POST /api/v1/payout/request
//
// 【关键点】方式、门槛、实名认证、余额四道检查与扣款
// 构成一个先验证后提交的原子序列，不会出现半截扣款
func (h *Handler) RequestPayout(c *gin.Context) {
	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.payoutService.RequestPayout(c.Request.Context(), &service.PayoutRequest{
		RequestID: req.RequestID,
		UserID:    currentUserID(c),
		Amount:    req.Amount,
		CoinType:  req.CoinType,
		Method:    req.Method,
		Details:   req.Details,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// PayoutCallbackRequest 支付通道回调
type PayoutCallbackRequest struct {
	WithdrawalNo string `json:"withdrawal_no" binding:"required"`
	Outcome      string `json:"outcome" binding:"required"` // completed / failed
}

// PayoutCallback 接收支付通道的划转结果
// POST /api/v1/payout/callback
func (h *Handler) PayoutCallback(c *gin.Context) {
	var req PayoutCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.payoutService.ConfirmPayout(c.Request.Context(), req.WithdrawalNo, req.Outcome); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "回调已处理"})
}

// ============================================================
// 广告分成接口
// ============================================================

// ShareRevenueRequest 分成请求
type ShareRevenueRequest struct {
	ContentID      string `json:"content_id" binding:"required"`
	CreatorID      int64  `json:"creator_id" binding:"required"`
	PromoViewCount int64  `json:"promo_view_count" binding:"required,gt=0"`
	AttentionScore *int   `json:"attention_score"`
}

// ShareAdRevenue 结算某内容的广告分成
// POST /api/v1/revenue/share
func (h *Handler) ShareAdRevenue(c *gin.Context) {
	var req ShareRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.revenueService.ShareAdRevenue(c.Request.Context(), &service.ShareRevenueRequest{
		ContentID:      req.ContentID,
		CreatorID:      req.CreatorID,
		PromoViewCount: req.PromoViewCount,
		AttentionScore: req.AttentionScore,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if !result.Shared {
		response.ErrorWithData(c, response.CodeBelowMinimumViews, result.Message, gin.H{
			"minimum_views": result.MinimumViews,
		})
		return
	}

	response.Success(c, result)
}

// ============================================================
// 邀请相关接口
// ============================================================

// RegisterReferralRequest 建立邀请关系请求
type RegisterReferralRequest struct {
	ReferredID int64  `json:"referred_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

// RegisterReferral 建立邀请关系
// POST /api/v1/referral/register
func (h *Handler) RegisterReferral(c *gin.Context) {
	var req RegisterReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	referral, err := h.referralService.RegisterReferral(c.Request.Context(), currentUserID(c), req.ReferredID, req.Code)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"referred_id":     referral.ReferredID,
		"commission_rate": referral.CommissionRate,
		"expires_at":      referral.ExpiresAt,
	})
}
