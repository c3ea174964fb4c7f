package rag

// Fragment 可检索的文本片段及其来源信息。
// 由离线 ETL 产出，构建后不可变，核心只读。
type Fragment struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`        // 原始文件名
	Row    int     `json:"row,omitempty"` // CSV 行号；非表格来源为 0
	Score  float64 `json:"score,omitempty"`
}

// Provenance 片段来源元数据（用于可观测性，不含正文）
type Provenance struct {
	Source string `json:"source"`
	Row    int    `json:"row,omitempty"`
}

// SynthesizedAnswer 检索 + 生成的合成答案
type SynthesizedAnswer struct {
	Answer        string       `json:"answer"`
	NeedsRealTime bool         `json:"needs_real_time"`
	Retrieved     []Provenance `json:"retrieved_docs"`
}

// SourceTag 路由结果来源标签
type SourceTag string

const (
	SourceRAG              SourceTag = "rag"
	SourceRealTimeForex    SourceTag = "real_time_forex"
	SourceRealTimeInterest SourceTag = "real_time_interest"
	SourceWebSearch        SourceTag = "web_search"
)

// RoutedResponse 路由最终响应。每次请求新建，不持久化。
type RoutedResponse struct {
	Source     SourceTag `json:"source"`
	ToolResult string    `json:"tool_result,omitempty"` // 工具结果的自然语言化文本
	RAGAnswer  string    `json:"rag_answer"`
}
