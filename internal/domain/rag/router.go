package rag

import (
	"context"
	"strings"

	applog "bankrm/internal/platform/log"
	"bankrm/internal/tool"
)

// thinAnswerThreshold 合成答案短于该长度（trim 后）视为低置信，
// 即使未触发实时标记也回退到网页搜索。
const thinAnswerThreshold = 20

// 实时数据分类关键词。优先级固定：FX > 利率 > 网页搜索兜底。
var (
	fxKeywords       = []string{"forex", "exchange rate", "convert"}
	interestKeywords = []string{"interest", "rate", "savings", "loan rate"}
)

// RouterConfig 路由配置
type RouterConfig struct {
	TopK     int    // 检索条数，<=0 取检索层默认
	FXBase   string // FX 固定基准货币
	FXTarget string // FX 固定目标货币
}

// Router 查询路由器：先检索 + 合成，再按实时数据信号分派工具。
// 状态机：START -> RETRIEVE_AND_SYNTHESIZE ->
// {DIRECT_ANSWER | CLASSIFY_LIVE_DATA -> DISPATCH_TOOL} -> DONE
type Router struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	tools       *tool.Registry
	topK        int
	fxBase      string
	fxTarget    string
}

// NewRouter 创建路由器
func NewRouter(retriever *Retriever, synthesizer *Synthesizer, tools *tool.Registry, cfg RouterConfig) *Router {
	// 分类不从查询中提取货币对，始终用配置的固定值
	if cfg.FXBase == "" {
		cfg.FXBase = "USD"
	}
	if cfg.FXTarget == "" {
		cfg.FXTarget = "INR"
	}
	return &Router{
		retriever:   retriever,
		synthesizer: synthesizer,
		tools:       tools,
		topK:        cfg.TopK,
		fxBase:      cfg.FXBase,
		fxTarget:    cfg.FXTarget,
	}
}

// Route 处理一条查询，返回路由结果。
// 索引/生成失败向上传播；工具失败被吸收为响应内的文本。
func (rt *Router) Route(ctx context.Context, query string) (*RoutedResponse, error) {
	fragments, err := rt.retriever.Retrieve(ctx, query, rt.topK)
	if err != nil {
		return nil, err
	}

	answer, err := rt.synthesizer.Synthesize(ctx, query, fragments)
	if err != nil {
		return nil, err
	}

	if answer.NeedsRealTime {
		return rt.dispatchLiveData(ctx, query, answer), nil
	}

	if len(strings.TrimSpace(answer.Answer)) < thinAnswerThreshold {
		applog.Info("[Router] Thin answer, falling back to web search",
			"answer_len", len(strings.TrimSpace(answer.Answer)))
		return rt.dispatchTool(ctx, tool.NameWebSearch, SourceWebSearch, tool.Params{
			Query:      query,
			MaxResults: 3,
		}, answer), nil
	}

	return &RoutedResponse{
		Source:    SourceRAG,
		RAGAnswer: answer.Answer,
	}, nil
}

// dispatchLiveData 按类别关键词分派实时数据工具，优先级 FX > 利率 > 搜索
func (rt *Router) dispatchLiveData(ctx context.Context, query string, answer *SynthesizedAnswer) *RoutedResponse {
	q := strings.ToLower(query)

	if containsAny(q, fxKeywords) {
		return rt.dispatchTool(ctx, tool.NameForex, SourceRealTimeForex, tool.Params{
			Base:   rt.fxBase,
			Target: rt.fxTarget,
		}, answer)
	}

	if containsAny(q, interestKeywords) {
		return rt.dispatchTool(ctx, tool.NameInterestRates, SourceRealTimeInterest, tool.Params{}, answer)
	}

	// 实时标记命中但类别未知：通用网页搜索兜底
	return rt.dispatchTool(ctx, tool.NameWebSearch, SourceWebSearch, tool.Params{
		Query:      query,
		MaxResults: 3,
	}, answer)
}

// dispatchTool 调用工具并把结果自然语言化。
// 合成答案保留在响应里作上下文参考，不作为权威内容。
func (rt *Router) dispatchTool(ctx context.Context, name string, source SourceTag, params tool.Params, answer *SynthesizedAnswer) *RoutedResponse {
	result := rt.tools.Invoke(ctx, name, params)
	if result.IsError() {
		applog.Warn("[Router] Tool returned error", "tool", name, "message", result.Message)
	}

	return &RoutedResponse{
		Source:     source,
		ToolResult: Normalize(result),
		RAGAnswer:  answer.Answer,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
