package negotiate

import "errors"

// 协商模块错误定义
var (
	// ErrProtocolMismatch 握手行与本端标识不一致
	ErrProtocolMismatch = errors.New("negotiate: handshake protocol mismatch")

	// ErrNegotiationTimeout 协商读等待超时（视为正常终止）
	ErrNegotiationTimeout = errors.New("negotiate: negotiation timeout")

	// ErrConnectionClosed 协商期间对端关闭连接
	ErrConnectionClosed = errors.New("negotiate: connection closed during negotiation")

	// ErrMessageTooLong 消息超过最大长度
	ErrMessageTooLong = errors.New("negotiate: message too long")

	// ErrInvalidMessage 无效的协商消息
	ErrInvalidMessage = errors.New("negotiate: invalid negotiation message")

	// ErrNoHandlerMatch 没有前缀命中（会话内非致命）
	ErrNoHandlerMatch = errors.New("negotiate: no handler matches protocol")

	// ErrHandlerFailed 处理器执行失败（会话异常终止）
	ErrHandlerFailed = errors.New("negotiate: handler failed")

	// ErrProtocolNotSupported 对端以 na 拒绝了请求的协议
	ErrProtocolNotSupported = errors.New("negotiate: protocol not supported by remote")

	// ErrUnexpectedResponse 对端返回了预期之外的行
	ErrUnexpectedResponse = errors.New("negotiate: unexpected response")

	// ErrEmptyPrefix 注册了空前缀
	ErrEmptyPrefix = errors.New("negotiate: empty protocol prefix")

	// ErrDuplicatePrefix 前缀已注册
	ErrDuplicatePrefix = errors.New("negotiate: prefix already registered")

	// ErrInvalidConfig 配置不合法
	ErrInvalidConfig = errors.New("negotiate: invalid config")
)
