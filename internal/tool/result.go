package tool

// Kind 工具结果变体标签
type Kind int

const (
	// KindNone 无数据
	KindNone Kind = iota
	// KindText 纯文本结果，直接透传
	KindText
	// KindMapping 名称 -> 数值映射（如 银行 -> 利率）
	KindMapping
	// KindValues 扁平字符串序列
	KindValues
	// KindResults 搜索结果条目序列
	KindResults
	// KindFields 无 data 载荷的结构化结果，按 k: v 展平
	KindFields
	// KindError 上游失败，status=error + message
	KindError
)

// SearchItem 单条搜索结果
type SearchItem struct {
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Result 工具调用结果（tagged variant）。
// 每次路由调用恰好产生一个 Result，不缓存、不重试。
type Result struct {
	Kind    Kind              `json:"kind"`
	Text    string            `json:"text,omitempty"`
	Mapping map[string]string `json:"mapping,omitempty"`
	Values  []string          `json:"values,omitempty"`
	Items   []SearchItem      `json:"items,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Message string            `json:"message,omitempty"` // KindError 时的错误描述
}

// None 无数据结果
func None() Result {
	return Result{Kind: KindNone}
}

// TextResult 纯文本结果
func TextResult(text string) Result {
	return Result{Kind: KindText, Text: text}
}

// MappingResult 名称 -> 数值映射结果
func MappingResult(data map[string]string) Result {
	return Result{Kind: KindMapping, Mapping: data}
}

// ValuesResult 扁平序列结果
func ValuesResult(values []string) Result {
	return Result{Kind: KindValues, Values: values}
}

// ResultsList 搜索结果序列
func ResultsList(items []SearchItem) Result {
	return Result{Kind: KindResults, Items: items}
}

// FieldsResult 结构化字段结果
func FieldsResult(fields map[string]string) Result {
	return Result{Kind: KindFields, Fields: fields}
}

// ErrorResult 上游失败结果
func ErrorResult(message string) Result {
	return Result{Kind: KindError, Message: message}
}

// IsError 是否为失败结果
func (r Result) IsError() bool {
	return r.Kind == KindError
}
