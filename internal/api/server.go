package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bankrm/internal/domain/rag"
	applog "bankrm/internal/platform/log"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	QueryTimeout time.Duration // 单次查询处理超时
	AdminToken   string        // 管理接口共享密钥，为空时不注册管理路由
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		QueryTimeout: 60 * time.Second,
	}
}

// Server HTTP 服务器
type Server struct {
	config    *ServerConfig
	router    *rag.Router
	retriever *rag.Retriever
	httpSrv   *http.Server
}

// NewServer 创建服务器
func NewServer(config *ServerConfig, router *rag.Router, retriever *rag.Retriever) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:    config,
		router:    router,
		retriever: retriever,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 Query API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"index_ready": s.retriever.Ready(),
		})
	})

	handler := NewQueryHandler(s.router, s.retriever, s.config.QueryTimeout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", handler.HandleQuery)

		if strings.TrimSpace(s.config.AdminToken) != "" {
			r.Group(func(r chi.Router) {
				r.Use(adminAuthMiddleware(s.config.AdminToken))
				r.Post("/admin/rebuild_index", handler.HandleRebuildIndex)
			})
			applog.Info("🔐 Admin API enabled")
		}
	})

	return r
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+adminTokenHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
