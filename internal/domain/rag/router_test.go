package rag

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bankrm/internal/db/vectorstore"
	"bankrm/internal/tool"
)

// stubTool 固定结果的工具，记录最近一次参数
type stubTool struct {
	name    string
	result  tool.Result
	invoked bool
	params  tool.Params
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Invoke(_ context.Context, params tool.Params) tool.Result {
	s.invoked = true
	s.params = params
	return s.result
}

type routerFixture struct {
	router   *Router
	llm      *fakeLLM
	fx       *stubTool
	interest *stubTool
	search   *stubTool
}

func newRouterFixture(t *testing.T, answer string) *routerFixture {
	t.Helper()

	cfg := DefaultConfig()
	cfg.IndexPath = filepath.Join(t.TempDir(), "index.bin")
	cfg.EmbeddingDims = 4
	cfg.DefaultTopK = 2

	store, err := vectorstore.New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []vectorstore.Entry{
		{ID: "1", Text: "Savings accounts earn interest monthly.", Source: "notes.md"},
		{ID: "2", Text: "file:account.csv | account_id: 1", Source: "account.csv", Row: 1},
	}
	vectors := [][]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}}
	for _, v := range vectors {
		vectorstore.Normalize(v)
	}
	if err := store.Add(entries, vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Save(cfg.IndexPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	retriever := NewRetriever(cfg, newFakeEmbedder(), nil)
	llm := &fakeLLM{content: answer}

	fx := &stubTool{name: tool.NameForex, result: tool.FieldsResult(map[string]string{"rate": "83.2"})}
	interest := &stubTool{name: tool.NameInterestRates, result: tool.MappingResult(map[string]string{"HDFC Bank": "3.50%"})}
	search := &stubTool{name: tool.NameWebSearch, result: tool.TextResult("search summary")}

	tools := tool.NewRegistry()
	tools.Register(fx)
	tools.Register(interest)
	tools.Register(search)

	router := NewRouter(retriever, NewSynthesizer(llm, "test-model"), tools, RouterConfig{
		TopK:     2,
		FXBase:   "USD",
		FXTarget: "INR",
	})

	return &routerFixture{router: router, llm: llm, fx: fx, interest: interest, search: search}
}

func TestRouteDirectRAGAnswer(t *testing.T) {
	fix := newRouterFixture(t, "Savings accounts give you easy access to your money while earning some return.")

	resp, err := fix.router.Route(context.Background(), "what are the benefits of a savings account")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceRAG {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceRAG)
	}
	if resp.ToolResult != "" {
		t.Fatalf("ToolResult = %q, want empty", resp.ToolResult)
	}
	if fix.fx.invoked || fix.interest.invoked || fix.search.invoked {
		t.Fatal("no tool should run for a confident RAG answer")
	}
}

func TestRouteForexQuery(t *testing.T) {
	fix := newRouterFixture(t, "I cannot know that. NEEDS_REAL_TIME_DATA")

	resp, err := fix.router.Route(context.Background(), "current USD to INR forex rate")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceRealTimeForex {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceRealTimeForex)
	}
	if !fix.fx.invoked {
		t.Fatal("fx tool not invoked")
	}
	if fix.fx.params.Base != "USD" || fix.fx.params.Target != "INR" {
		t.Fatalf("fx params = %+v, want fixed USD/INR", fix.fx.params)
	}
	if resp.ToolResult != "rate: 83.2" {
		t.Fatalf("ToolResult = %q", resp.ToolResult)
	}
	if resp.RAGAnswer == "" {
		t.Fatal("synthesized answer should be kept as reference")
	}
}

func TestRouteForexBeatsInterest(t *testing.T) {
	fix := newRouterFixture(t, "Background answer long enough to not be thin.")

	// 同时命中 FX 与利率关键词，FX 优先
	resp, err := fix.router.Route(context.Background(), "convert my savings rate")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceRealTimeForex {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceRealTimeForex)
	}
	if fix.interest.invoked {
		t.Fatal("interest tool must not run when fx keywords match")
	}
}

func TestRouteInterestQuery(t *testing.T) {
	fix := newRouterFixture(t, "Background answer long enough to not be thin.")

	resp, err := fix.router.Route(context.Background(), "best savings interest rates today")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceRealTimeInterest {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceRealTimeInterest)
	}
	if !fix.interest.invoked {
		t.Fatal("interest tool not invoked")
	}
	if resp.ToolResult != "HDFC Bank offers around 3.50%." {
		t.Fatalf("ToolResult = %q", resp.ToolResult)
	}
}

func TestRouteRealTimeWithoutCategoryFallsToSearch(t *testing.T) {
	fix := newRouterFixture(t, "I cannot answer this. NEEDS_REAL_TIME_DATA")

	resp, err := fix.router.Route(context.Background(), "what happened at the bank this week")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceWebSearch {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceWebSearch)
	}
	if !fix.search.invoked {
		t.Fatal("web search not invoked")
	}
	if fix.search.params.Query != "what happened at the bank this week" {
		t.Fatalf("search query = %q", fix.search.params.Query)
	}
}

func TestRouteThinAnswerFallsToSearch(t *testing.T) {
	fix := newRouterFixture(t, "I don't know.")

	resp, err := fix.router.Route(context.Background(), "tell me about the festival offers")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceWebSearch {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceWebSearch)
	}
	if !fix.search.invoked {
		t.Fatal("web search not invoked for thin answer")
	}
}

func TestRouteInterestAllSourcesDown(t *testing.T) {
	fix := newRouterFixture(t, "Background answer long enough to not be thin.")
	fix.interest.result = tool.TextResult("I'm unable to fetch live rates right now.")

	resp, err := fix.router.Route(context.Background(), "best savings interest rates today")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.Source != SourceRealTimeInterest {
		t.Fatalf("Source = %q, want %q", resp.Source, SourceRealTimeInterest)
	}
	if resp.ToolResult != "I'm unable to fetch live rates right now." {
		t.Fatalf("ToolResult = %q", resp.ToolResult)
	}
}

func TestRouteToolErrorIsAbsorbed(t *testing.T) {
	fix := newRouterFixture(t, "NEEDS_REAL_TIME_DATA")
	fix.fx.result = tool.ErrorResult("fx lookup failed: status 502")

	resp, err := fix.router.Route(context.Background(), "usd inr forex please")
	if err != nil {
		t.Fatalf("tool failures must not become transport errors, got %v", err)
	}
	if resp.Source != SourceRealTimeForex {
		t.Fatalf("Source = %q", resp.Source)
	}
	if resp.ToolResult != "message: fx lookup failed: status 502" {
		t.Fatalf("ToolResult = %q", resp.ToolResult)
	}
}

func TestRouteGenerationFailurePropagates(t *testing.T) {
	fix := newRouterFixture(t, "")
	fix.llm.err = errors.New("upstream unavailable")

	_, err := fix.router.Route(context.Background(), "anything at all")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestRouteIndexUnavailablePropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexPath = filepath.Join(t.TempDir(), "missing.bin")
	cfg.EmbeddingDims = 4

	retriever := NewRetriever(cfg, newFakeEmbedder(), nil)
	router := NewRouter(retriever, NewSynthesizer(&fakeLLM{content: "x"}, "m"), tool.NewRegistry(), RouterConfig{})

	_, err := router.Route(context.Background(), "anything")
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}
