package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bankrm/internal/tool"
)

const resultsPage = `
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.com/one">First <b>Result</b></a>
  <a class="result__snippet" href="https://example.com/one">Snippet about the first result.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.com/two">Second Result</a>
  <a class="result__snippet" href="https://example.com/two">Second snippet here.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.com/three">Third Result</a>
  <a class="result__snippet" href="https://example.com/three">Third snippet here.</a>
</div>
`

func TestParseResults(t *testing.T) {
	items := parseResults(resultsPage, 2)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "First Result" {
		t.Errorf("title = %q, want tags stripped", items[0].Title)
	}
	if items[0].Snippet != "Snippet about the first result." {
		t.Errorf("snippet = %q", items[0].Snippet)
	}
	if items[0].URL != "https://example.com/one" {
		t.Errorf("url = %q", items[0].URL)
	}
	if items[1].Title != "Second Result" {
		t.Errorf("second title = %q", items[1].Title)
	}
}

func TestInvokeFormatsSummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "bank news" {
			t.Errorf("q = %q", got)
		}
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, MaxResults: 2})
	result := a.Invoke(context.Background(), tool.Params{Query: "bank news"})

	if result.Kind != tool.KindText {
		t.Fatalf("Kind = %v, want KindText", result.Kind)
	}
	blocks := strings.Split(result.Text, "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("got %d summary blocks, want 2", len(blocks))
	}
	if !strings.Contains(blocks[0], "First Result") ||
		!strings.Contains(blocks[0], "URL: https://example.com/one") {
		t.Fatalf("block = %q", blocks[0])
	}
}

func TestInvokeEmptyQuery(t *testing.T) {
	result := New(Config{}).Invoke(context.Background(), tool.Params{Query: "  "})
	if !result.IsError() {
		t.Fatal("expected error result for empty query")
	}
}

func TestInvokeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	result := New(Config{BaseURL: srv.URL}).Invoke(context.Background(), tool.Params{Query: "bank news"})
	if !result.IsError() {
		t.Fatal("expected error result for upstream failure")
	}
}

func TestInvokeNoResultsParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing here</body></html>"))
	}))
	defer srv.Close()

	result := New(Config{BaseURL: srv.URL}).Invoke(context.Background(), tool.Params{Query: "bank news"})
	if !result.IsError() {
		t.Fatal("expected error result when nothing parses")
	}
}

func TestAdapterName(t *testing.T) {
	if got := New(Config{}).Name(); got != tool.NameWebSearch {
		t.Fatalf("Name = %q", got)
	}
}
