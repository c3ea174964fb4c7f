package rag

import (
	"context"
	"fmt"
	"strings"

	applog "bankrm/internal/platform/log"
	"bankrm/internal/provider"
)

// RealTimeMarker 生成模型在判断问题需要实时数据时输出的标记
const RealTimeMarker = "NEEDS_REAL_TIME_DATA"

// realTimeKeywords 查询侧的实时数据关键词（与生成标记取 OR）
var realTimeKeywords = []string{
	"current", "today", "rate", "interest", "forex", "convert", "price",
}

const systemPrompt = "You are a helpful and precise Bank Relationship Manager. " +
	"Use the following context (if relevant) to answer the question. " +
	"If it looks like the user is asking for real-time data (like current rates, forex, or recent changes), " +
	"say '" + RealTimeMarker + "' in your response."

// fragmentSeparator 上下文块内片段之间的分隔符
const fragmentSeparator = "\n---\n"

// Synthesizer 答案合成器：检索上下文 + 问题 -> 一次生成调用 -> 分类
type Synthesizer struct {
	llm   provider.LLMProvider
	model string
}

// NewSynthesizer 创建合成器
func NewSynthesizer(llm provider.LLMProvider, model string) *Synthesizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Synthesizer{llm: llm, model: model}
}

// Synthesize 合成答案并判定 needs_real_time。
// 无片段时上下文块为空串，生成仅基于问题本身。
// 生成失败向上传播（包装为 ErrGenerationFailed），不本地重试。
func (s *Synthesizer) Synthesize(ctx context.Context, query string, fragments []Fragment) (*SynthesizedAnswer, error) {
	contextBlock := buildContextBlock(fragments)

	req := &provider.CompletionRequest{
		Model: s.model,
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(
				"Context:\n%s\n\nQuestion: %s\n\nAnswer clearly and accurately:",
				contextBlock, query)},
		},
	}

	resp, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	answer := strings.TrimSpace(resp.Content)
	needsRealTime := classifyRealTime(answer, query)

	retrieved := make([]Provenance, len(fragments))
	for i, f := range fragments {
		retrieved[i] = Provenance{Source: f.Source, Row: f.Row}
	}

	applog.Debug("[RAG] Synthesized",
		"needs_real_time", needsRealTime,
		"answer_len", len(answer),
		"fragments", len(fragments),
	)

	return &SynthesizedAnswer{
		Answer:        answer,
		NeedsRealTime: needsRealTime,
		Retrieved:     retrieved,
	}, nil
}

// buildContextBlock 片段正文拼接为上下文块；无片段为空串
func buildContextBlock(fragments []Fragment) string {
	if len(fragments) == 0 {
		return ""
	}
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	return strings.Join(texts, fragmentSeparator)
}

// classifyRealTime 实时数据判定：生成文本包含标记，或小写查询命中关键词
func classifyRealTime(answer, query string) bool {
	if strings.Contains(answer, RealTimeMarker) {
		return true
	}
	q := strings.ToLower(query)
	for _, kw := range realTimeKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
