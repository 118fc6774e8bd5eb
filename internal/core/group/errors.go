package group

import "errors"

// 分组模块错误定义
var (
	// ErrInvalidGroupID 分组 ID 不能作为存储子目录名
	ErrInvalidGroupID = errors.New("group: invalid group id")

	// ErrStartFailure 分组 worker 树启动失败
	ErrStartFailure = errors.New("group: worker tree start failure")

	// ErrUnknownGroup 分组未注册（仅记录，不向上升级）
	ErrUnknownGroup = errors.New("group: unknown group")

	// ErrManagerClosed 管理器未启动或已关闭
	ErrManagerClosed = errors.New("group: manager closed")

	// ErrInvalidConfig 配置不合法
	ErrInvalidConfig = errors.New("group: invalid config")
)
