package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"bankrm/internal/domain/rag"
	applog "bankrm/internal/platform/log"
)

// QueryHandler 查询与索引管理接口
type QueryHandler struct {
	router       *rag.Router
	retriever    *rag.Retriever
	queryTimeout time.Duration
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(router *rag.Router, retriever *rag.Retriever, queryTimeout time.Duration) *QueryHandler {
	if queryTimeout <= 0 {
		queryTimeout = 60 * time.Second
	}
	return &QueryHandler{
		router:       router,
		retriever:    retriever,
		queryTimeout: queryTimeout,
	}
}

type queryRequest struct {
	Q string `json:"q"`
}

// HandleQuery POST /api/v1/query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	query := strings.TrimSpace(req.Q)
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query must not be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	resp, err := h.router.Route(ctx, query)
	if err != nil {
		// 内部细节只进日志，不向客户端透出
		applog.Error("[API] Query failed", "error", err)
		switch {
		case errors.Is(err, rag.ErrIndexUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Knowledge index is not available")
		case errors.Is(err, rag.ErrCredentialMissing):
			writeError(w, http.StatusServiceUnavailable, "Service is not configured")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to process query")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type rebuildRequest struct {
	Force bool `json:"force"`
}

// HandleRebuildIndex POST /api/v1/admin/rebuild_index
func (h *QueryHandler) HandleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if r.Body != nil {
		// body 可选，解析失败按默认处理
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.retriever.Rebuild(r.Context(), req.Force); err != nil {
		applog.Error("[API] Index rebuild failed", "error", err)
		if errors.Is(err, rag.ErrCredentialMissing) {
			writeError(w, http.StatusServiceUnavailable, "Embedding credentials are not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "Index rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"rebuilt": true})
}
