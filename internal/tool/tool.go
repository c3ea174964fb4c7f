package tool

import (
	"context"
	"fmt"
	"sync"
)

// Params 工具调用参数。各字段按工具按需取用。
type Params struct {
	Query      string `json:"query,omitempty"`
	Base       string `json:"base,omitempty"`   // FX 基准货币
	Target     string `json:"target,omitempty"` // FX 目标货币
	MaxResults int    `json:"max_results,omitempty"`
}

// Tool 实时数据工具接口
type Tool interface {
	// Name 工具名称（唯一标识）
	Name() string

	// Invoke 执行工具。上游网络/解析错误一律在内部吸收，
	// 以 Error 变体返回，绝不向外抛出。
	Invoke(ctx context.Context, params Params) Result
}

// Registry 工具注册表
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry 创建工具注册表
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register 注册工具
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get 获取工具
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has 检查工具是否存在
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Invoke 执行指定名称的工具。未注册的工具返回 Error 变体。
func (r *Registry) Invoke(ctx context.Context, name string, params Params) Result {
	t, ok := r.Get(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("tool not found: %s", name))
	}
	return t.Invoke(ctx, params)
}
