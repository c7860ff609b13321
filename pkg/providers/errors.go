package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknownTranslator 注册表中没有任何翻译器
var ErrUnknownTranslator = errors.New("no translator registered")

// ErrEmptyText 待翻译文本为空
var ErrEmptyText = errors.New("source text is empty")

// NetworkError 传输层错误（DNS、连接失败等）
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap 返回原因错误
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPStatusError 非 2xx 响应
type HTTPStatusError struct {
	Code    int
	Message string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Message)
}

// NewHTTPStatusError 根据状态码创建错误，Message 取标准状态文本
func NewHTTPStatusError(code int) *HTTPStatusError {
	return &HTTPStatusError{
		Code:    code,
		Message: http.StatusText(code),
	}
}

// CapabilityUnavailableError 本地能力不存在，非致命，调用方应回退
type CapabilityUnavailableError struct {
	Capability string
}

func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("on-device capability %q unavailable", e.Capability)
}

// ProvisioningError 本地模型下载或初始化失败，非致命，调用方应回退
type ProvisioningError struct {
	Capability string
	Err        error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision on-device %s: %v", e.Capability, e.Err)
}

// Unwrap 返回原因错误
func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// StatusCode 从错误链中提取 HTTP 状态码，没有则返回 0
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// IsFallbackError 判断错误是否应静默回退到远程后端
func IsFallbackError(err error) bool {
	var unavailable *CapabilityUnavailableError
	var provisioning *ProvisioningError
	return errors.As(err, &unavailable) || errors.As(err, &provisioning)
}
