package rag

import "errors"

var (
	// ErrIndexUnavailable 向量索引缺失或损坏，且请求路径禁止重建。
	// 请求级失败，向上传播到 HTTP 边界。
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrCredentialMissing 必需的 API 凭证缺失。首次使用时报错，而非进程启动时。
	ErrCredentialMissing = errors.New("required API credential missing")

	// ErrGenerationFailed 生成模型调用失败或返回不可用输出。不本地重试。
	ErrGenerationFailed = errors.New("generation failed")
)
