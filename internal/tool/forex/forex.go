// Package forex 查询单一来源的汇率换算。
package forex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	applog "bankrm/internal/platform/log"
	"bankrm/internal/tool"
)

// Config FX 工具配置
type Config struct {
	BaseURL        string // 默认 https://api.exchangerate.host
	TimeoutSeconds int
}

// Adapter FX 汇率工具
type Adapter struct {
	baseURL string
	client  *resty.Client
}

// New 创建 FX 工具
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.exchangerate.host"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		baseURL: cfg.BaseURL,
		client:  resty.New().SetTimeout(timeout),
	}
}

func (a *Adapter) Name() string { return tool.NameForex }

type convertResponse struct {
	Result *float64       `json:"result"`
	Info   map[string]any `json:"info"`
}

// Invoke 查询 base -> target 的换算结果。
// 上游失败返回 Error 变体，不向外抛错。
func (a *Adapter) Invoke(ctx context.Context, params tool.Params) tool.Result {
	base := params.Base
	if base == "" {
		base = "USD"
	}
	target := params.Target
	if target == "" {
		target = "INR"
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"from": base, "to": target}).
		Get(a.baseURL + "/convert")
	if err != nil {
		return tool.ErrorResult(fmt.Sprintf("fx lookup failed: %v", err))
	}
	if resp.IsError() {
		return tool.ErrorResult(fmt.Sprintf("fx lookup failed: status %d", resp.StatusCode()))
	}

	var body convertResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return tool.ErrorResult(fmt.Sprintf("fx response parse failed: %v", err))
	}
	if body.Result == nil {
		return tool.ErrorResult(fmt.Sprintf("fx source returned no result for %s/%s", base, target))
	}

	fields := map[string]string{
		"rate": fmt.Sprintf("%g", *body.Result),
	}
	if len(body.Info) > 0 {
		if info, err := json.Marshal(body.Info); err == nil {
			fields["info"] = string(info)
		}
	}

	applog.Info("[Tool/Forex] Rate fetched", "base", base, "target", target, "rate", *body.Result)
	return tool.FieldsResult(fields)
}
