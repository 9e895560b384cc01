package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	KYC      KYCConfig      `mapstructure:"kyc"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Notify        string `mapstructure:"notify"`         // 余额变更通知
	PayoutRequest string `mapstructure:"payout_request"` // 提现单交接给支付通道
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	CallbackToken string `mapstructure:"callback_token"` // 支付通道回调鉴权
}

type KYCConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// BusinessConfig 业务参数
// 日限额、推广浏览上限、提现门槛、分成比例等都在这里集中配置
type BusinessConfig struct {
	DailyIcoinLimit    int64 `mapstructure:"daily_icoin_limit"`    // icoin 每日发放上限
	DailyVicoinLimit   int64 `mapstructure:"daily_vicoin_limit"`   // vicoin 每日发放上限
	DailyPromoViewCap  int   `mapstructure:"daily_promo_view_cap"` // 推广浏览每日计数上限
	MaxRewardPerCall   int64 `mapstructure:"max_reward_per_call"`  // 单次发奖硬上限
	MaxTipAmount       int64 `mapstructure:"max_tip_amount"`       // 单笔打赏上限
	MinPayoutVicoin    int64 `mapstructure:"min_payout_vicoin"`    // vicoin 最低提现额
	MinPayoutIcoin     int64 `mapstructure:"min_payout_icoin"`     // icoin 最低提现额
	MinPromoViews      int64 `mapstructure:"min_promo_views"`      // 分成所需最低浏览量
	PerViewRate        int64 `mapstructure:"per_view_rate"`        // 每次推广浏览的计费单价
	CreatorShareBps    int64 `mapstructure:"creator_share_bps"`    // 创作者分成比例，万分制
	ReferralRateBps    int   `mapstructure:"referral_rate_bps"`    // 邀请抽佣比例，万分制
	ReferralValidDays  int   `mapstructure:"referral_valid_days"`  // 邀请关系有效天数
	WithdrawalTimeoutH int   `mapstructure:"withdrawal_timeout_hours"` // 提现单超时小时数
	MaxRetryCount      int   `mapstructure:"max_retry_count"`      // outbox 消息最大重试次数
}

// MinPayoutOf 按币种取最低提现额
func (b *BusinessConfig) MinPayoutOf(coinType string) int64 {
	if coinType == "vicoin" {
		return b.MinPayoutVicoin
	}
	return b.MinPayoutIcoin
}

// DailyLimitOf 按币种取每日发放上限
func (b *BusinessConfig) DailyLimitOf(coinType string) int64 {
	if coinType == "vicoin" {
		return b.DailyVicoinLimit
	}
	return b.DailyIcoinLimit
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
