package api

import (
	"crypto/subtle"
	"net/http"

	applog "bankrm/internal/platform/log"
)

// adminTokenHeader 管理接口的共享密钥请求头
const adminTokenHeader = "X-Admin-Token"

// adminAuthMiddleware 管理接口鉴权中间件。
// 校验 X-Admin-Token 与配置密钥是否一致（恒定时间比较）。
func adminAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(adminTokenHeader)
			if got == "" {
				writeError(w, http.StatusUnauthorized, "Missing "+adminTokenHeader+" header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				applog.Warn("[Auth] Invalid admin token", "remote", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "Invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
