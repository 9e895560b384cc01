package handler

import (
	"coinledger/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	api := r.Group("/api/v1")

	// 支付通道回调走共享密钥鉴权，不带用户凭证
	api.POST("/payout/callback", CallbackAuthMiddleware(&cfg.Auth), h.PayoutCallback)

	// 其余接口要求 Bearer 凭证，操作者从凭证解析
	authed := api.Group("", AuthMiddleware(&cfg.Auth))
	{
		account := authed.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
			account.GET("/transactions", h.ListTransactions)
		}

		authed.POST("/reward/issue", h.IssueReward)
		authed.POST("/tip/send", h.TipCreator)
		authed.POST("/payout/request", h.RequestPayout)
		authed.POST("/revenue/share", h.ShareAdRevenue)
		authed.POST("/referral/register", h.RegisterReferral)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
