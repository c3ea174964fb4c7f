// Package websearch 通用网页搜索（DuckDuckGo HTML 端点）。
package websearch

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	applog "bankrm/internal/platform/log"
	"bankrm/internal/tool"
)

// 结果页抽取（HTML 端点无需 JS）
var (
	reResultLink    = regexp.MustCompile(`(?s)<a[^>]*class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	reResultSnippet = regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</a>`)
	reTags          = regexp.MustCompile(`<[^>]+>`)
)

// Config 搜索工具配置
type Config struct {
	BaseURL        string // 默认 https://html.duckduckgo.com
	TimeoutSeconds int
	MaxResults     int
}

// Adapter 网页搜索工具
type Adapter struct {
	baseURL    string
	maxResults int
	client     *resty.Client
}

// New 创建搜索工具
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		client:     resty.New().SetTimeout(timeout),
	}
}

func (a *Adapter) Name() string { return tool.NameWebSearch }

// Invoke 搜索并拼接前 N 条结果（title + snippet + URL）。
// 上游失败返回 Error 变体。
func (a *Adapter) Invoke(ctx context.Context, params tool.Params) tool.Result {
	if strings.TrimSpace(params.Query) == "" {
		return tool.ErrorResult("web search failed: empty query")
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = a.maxResults
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("q", params.Query).
		Get(a.baseURL + "/html/")
	if err != nil {
		return tool.ErrorResult(fmt.Sprintf("web search failed: %v", err))
	}
	if resp.IsError() {
		return tool.ErrorResult(fmt.Sprintf("web search failed: status %d", resp.StatusCode()))
	}

	items := parseResults(resp.String(), maxResults)
	if len(items) == 0 {
		return tool.ErrorResult("web search failed: no results parsed")
	}

	summaries := make([]string, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, fmt.Sprintf("%s\n%s\nURL: %s", item.Title, item.Snippet, item.URL))
	}

	applog.Info("[Tool/WebSearch] Results fetched", "query", params.Query, "count", len(items))
	return tool.TextResult(strings.Join(summaries, "\n\n"))
}

// parseResults 从结果页抽取前 max 条（标题、摘要、链接）
func parseResults(page string, max int) []tool.SearchItem {
	links := reResultLink.FindAllStringSubmatch(page, max)
	snippets := reResultSnippet.FindAllStringSubmatch(page, max)

	items := make([]tool.SearchItem, 0, len(links))
	for i, m := range links {
		item := tool.SearchItem{
			URL:   html.UnescapeString(m[1]),
			Title: cleanText(m[2]),
		}
		if i < len(snippets) {
			item.Snippet = cleanText(snippets[i][1])
		}
		items = append(items, item)
	}
	return items
}

func cleanText(s string) string {
	s = reTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
