package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存库
// 单连接避免内存库在连接池下分裂成多个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.CoinTransaction{},
		&model.RewardLog{},
		&model.DailyCap{},
		&model.Withdrawal{},
		&model.Referral{},
		&model.OutboxMessage{},
	))

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				Notify:        "test.notify",
				PayoutRequest: "test.payout.request",
			},
		},
		Business: config.BusinessConfig{
			DailyIcoinLimit:    100,
			DailyVicoinLimit:   200,
			DailyPromoViewCap:  5,
			MaxRewardPerCall:   1000,
			MaxTipAmount:       10000,
			MinPayoutVicoin:    500,
			MinPayoutIcoin:     1000,
			MinPromoViews:      50,
			PerViewRate:        2,
			CreatorShareBps:    5500,
			ReferralRateBps:    500,
			ReferralValidDays:  90,
			WithdrawalTimeoutH: 48,
			MaxRetryCount:      3,
		},
	}
}

// seedBalance 通过账本入口给账户预置余额，顺带隐式开户
func seedBalance(t *testing.T, db *gorm.DB, userID int64, coinType string, amount int64) {
	t.Helper()
	if amount == 0 {
		_, err := NewAccountService(db).GetAccount(context.Background(), userID)
		require.NoError(t, err)
		return
	}
	_, err := NewLedgerService(db).AtomicAdjust(context.Background(), userID, coinType, amount,
		model.TransactionKindEarned, "测试预置余额", "seed")
	require.NoError(t, err)
}

func balanceOf(t *testing.T, db *gorm.DB, userID int64, coinType string) int64 {
	t.Helper()
	account, err := NewAccountService(db).GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return account.BalanceOf(coinType)
}

// stubKYC 固定返回某个认证状态
type stubKYC struct {
	status string
	err    error
}

func (s stubKYC) Status(ctx context.Context, userID int64) (string, error) {
	return s.status, s.err
}

// fixedTime 测试用固定时间源
var fixedTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }
