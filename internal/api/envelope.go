package solanaapi

// Response 是所有 JSON 响应的统一外层，Data 与 Error 互斥，空字段不序列化。
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK 构造成功响应。
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data}
}

// Fail 构造失败响应。
func Fail(message string) Response[struct{}] {
	return Response[struct{}]{Success: false, Error: message}
}
