package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coinledger/internal/config"
)

// KYCChecker 实名认证状态查询
// 认证本身由独立的合规服务负责，核心只读取它的结论
type KYCChecker interface {
	Status(ctx context.Context, userID int64) (string, error)
}

// KYCClient 合规服务的 HTTP 客户端
type KYCClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewKYCClient(cfg *config.KYCConfig) *KYCClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &KYCClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Status 查询用户的认证状态（unverified / pending / verified / rejected）
func (c *KYCClient) Status(ctx context.Context, userID int64) (string, error) {
	url := fmt.Sprintf("%s/api/v1/kyc/status?user_id=%d", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求合规服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("合规服务返回异常状态: %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("解析合规服务响应失败: %w", err)
	}

	return body.Status, nil
}
