// Package reporate 从 Finnhub 经济数据接口读取印度回购利率，
// 作为利率聚合器的一个附加来源（需要 API key，未配置时不注册）。
package reporate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	// economicCode 印度央行回购利率的 Finnhub 指标编码
	economicCode = "INREPO"
)

// Source Finnhub 回购利率来源，实现 interestrate.Source。
type Source struct {
	APIKey  string
	BaseURL string // 为空时用官方地址
}

func (s Source) Name() string { return "RBI Repo Rate" }

type economicResponse struct {
	Data []struct {
		Value *float64 `json:"value"`
	} `json:"data"`
}

// Fetch 取最新一期回购利率。APIKey 为空视为来源不可用。
func (s Source) Fetch(ctx context.Context, client *resty.Client) (string, error) {
	if s.APIKey == "" {
		return "", fmt.Errorf("finnhub api key not configured")
	}
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"code":  economicCode,
			"token": s.APIKey,
		}).
		Get(baseURL + "/economic")
	if err != nil {
		return "", fmt.Errorf("fetch repo rate: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch repo rate: status %d", resp.StatusCode())
	}

	var body economicResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("parse repo rate response: %w", err)
	}
	// Finnhub 按时间倒序返回，取第一个非空值
	for _, point := range body.Data {
		if point.Value != nil {
			return fmt.Sprintf("%.2f%%", *point.Value), nil
		}
	}
	return "", fmt.Errorf("repo rate response has no data points")
}
