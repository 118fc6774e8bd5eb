package group

import (
	"github.com/jbenet/goprocess"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

// Handle 运行中分组的句柄
type Handle struct {
	id      types.GroupID
	top     goprocess.Process
	primary goprocess.Process
}

var _ interfaces.GroupHandle = (*Handle)(nil)

// NewHandle 创建分组句柄
func NewHandle(id types.GroupID, top, primary goprocess.Process) *Handle {
	return &Handle{id: id, top: top, primary: primary}
}

// ID 返回分组 ID
func (h *Handle) ID() types.GroupID {
	return h.id
}

// Top 返回 worker 树的顶层进程
func (h *Handle) Top() goprocess.Process {
	return h.top
}

// Primary 返回主工作进程
func (h *Handle) Primary() goprocess.Process {
	return h.primary
}
