package swarm

import (
	"context"
	"net"
	"time"

	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

// Dialer 出站拨号边界
//
// 地址解析与传输选择是外部协作者，这里只定义接口。
type Dialer interface {
	Dial(ctx context.Context, addr string) (interfaces.Conn, error)
}

// NetDialer 基于 net.Dialer 的 TCP 拨号器
type NetDialer struct {
	d net.Dialer
}

var _ Dialer = (*NetDialer)(nil)

// NewNetDialer 创建 TCP 拨号器
func NewNetDialer() *NetDialer {
	return &NetDialer{}
}

// Dial 建立 TCP 连接
func (nd *NetDialer) Dial(ctx context.Context, addr string) (interfaces.Conn, error) {
	return nd.d.DialContext(ctx, "tcp", addr)
}

// ============================================================================
//                              Connector
// ============================================================================

// Connector 出站连接引导器
//
// 拨号加客户端协商；协商成功后连接归调用方所有。
type Connector struct {
	dialer Dialer
	client *negotiate.Client
}

// NewConnector 创建出站引导器
func NewConnector(dialer Dialer, client *negotiate.Client) *Connector {
	return &Connector{
		dialer: dialer,
		client: client,
	}
}

// Connect 拨号并依偏好顺序协商出一个协议
//
// 协商结果以目标地址为键缓存，下次优先尝试上次被接受的协议。
// 任何一步失败都会关闭连接再返回错误。
func (c *Connector) Connect(ctx context.Context, addr string, protos []types.ProtocolID) (interfaces.Conn, types.ProtocolID, error) {
	conn, err := c.dialer.Dial(ctx, addr)
	if err != nil {
		return nil, "", err
	}

	proto, err := c.client.SelectOneOf(conn, addr, protos)
	if err != nil {
		_ = conn.Close()
		return nil, "", err
	}

	// 清除协商期间武装的读截止时间
	_ = conn.SetReadDeadline(time.Time{})
	return conn, proto, nil
}
