// Package interestrate 聚合多个公开页面的储蓄利率。
// 单个来源失败静默跳过，只要有一个来源成功就返回部分数据。
package interestrate

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"

	applog "bankrm/internal/platform/log"
	"bankrm/internal/tool"
)

// unavailableSentence 所有来源都失败时的固定回复
const unavailableSentence = "I'm unable to fetch live rates right now."

// ratePattern 页面正文中的百分比利率
var ratePattern = regexp.MustCompile(`(\d+\.\d+%)`)

// Source 单个利率来源
type Source interface {
	// Name 来源展示名（如银行名）
	Name() string
	// Fetch 返回该来源的利率文本（如 "3.50%" 或 "3.00% to 7.25%"）
	Fetch(ctx context.Context, client *resty.Client) (string, error)
}

// PageSource 按正则从网页正文提取利率的来源
type PageSource struct {
	BankName string
	URL      string
	// Range 为 true 时取首尾两个匹配组成区间，否则只取第一个
	Range bool
}

func (s PageSource) Name() string { return s.BankName }

func (s PageSource) Fetch(ctx context.Context, client *resty.Client) (string, error) {
	resp, err := client.R().SetContext(ctx).Get(s.URL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: status %d", s.URL, resp.StatusCode())
	}

	matches := ratePattern.FindAllString(resp.String(), -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("no rate pattern in %s response", s.BankName)
	}
	if s.Range && len(matches) > 1 {
		return fmt.Sprintf("%s to %s", matches[0], matches[len(matches)-1]), nil
	}
	return matches[0], nil
}

// DefaultSources 默认来源清单
func DefaultSources() []Source {
	return []Source{
		PageSource{
			BankName: "IDFC FIRST Bank",
			URL:      "https://www.idfcfirstbank.com/personal-banking/accounts/savings-account/interest-rate",
			Range:    true,
		},
		PageSource{
			BankName: "HDFC Bank",
			URL:      "https://www.hdfcbank.com/personal/save/accounts/savings-accounts/savings-account-interest-rate",
		},
		PageSource{
			BankName: "ICICI Bank",
			URL:      "https://www.icicibank.com/personal-banking/accounts/savings-account/interest-rates",
		},
	}
}

// Config 聚合器配置
type Config struct {
	Sources        []Source
	TimeoutSeconds int // 每个来源的网络超时
}

// Adapter 利率聚合工具
type Adapter struct {
	sources []Source
	client  *resty.Client
}

// New 创建利率聚合工具
func New(cfg Config) *Adapter {
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Adapter{
		sources: sources,
		client:  resty.New().SetTimeout(timeout),
	}
}

func (a *Adapter) Name() string { return tool.NameInterestRates }

// Invoke 逐个来源抓取，失败的来源跳过。
// 有成功来源时返回 银行 -> 利率 映射；全部失败返回固定不可用文案。
func (a *Adapter) Invoke(ctx context.Context, _ tool.Params) tool.Result {
	results := make(map[string]string)

	for _, src := range a.sources {
		rate, err := src.Fetch(ctx, a.client)
		if err != nil {
			applog.Warn("[Tool/InterestRate] Source failed, skipping", "source", src.Name(), "error", err)
			continue
		}
		results[src.Name()] = rate
	}

	if len(results) == 0 {
		return tool.TextResult(unavailableSentence)
	}

	applog.Info("[Tool/InterestRate] Rates fetched", "sources_ok", len(results), "sources_total", len(a.sources))
	return tool.MappingResult(results)
}
