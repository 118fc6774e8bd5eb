package negotiate

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

// ============================================================================
//                              Client 实现
// ============================================================================

// Client 客户端协商器
//
// 在出站连接上请求指定协议。协商结果按节点键缓存，
// 下次对同一节点协商时优先尝试上次被接受的协议。
type Client struct {
	cfg   Config
	cache *lru.Cache[string, types.ProtocolID]
}

// NewClient 创建客户端协商器
func NewClient(cfg Config) (*Client, error) {
	if cfg.NegotiationTimeout == 0 {
		cfg = DefaultConfig()
	}

	cache, err := lru.New[string, types.ProtocolID](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:   cfg,
		cache: cache,
	}, nil
}

// Select 在连接上请求指定协议
//
// 流程：读服务端握手行并比对，回发本端握手行，
// 然后发送目标协议行并等待回显。对端返回 na 时
// 报 ErrProtocolNotSupported，连接保持打开，调用方可继续尝试。
func (c *Client) Select(conn interfaces.Conn, proto types.ProtocolID) error {
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if err := c.handshake(conn, r, w); err != nil {
		return err
	}
	return c.request(conn, r, w, proto)
}

// SelectOneOf 依偏好顺序逐个尝试，返回第一个被接受的协议
//
// peerKey 用于结果缓存，由调用方提供（通常是对端地址或节点 ID）；
// 传空串跳过缓存。
func (c *Client) SelectOneOf(conn interfaces.Conn, peerKey string, protos []types.ProtocolID) (types.ProtocolID, error) {
	if len(protos) == 0 {
		return "", ErrNoHandlerMatch
	}

	// 缓存命中时把上次被接受的协议提到队首
	key := cacheKey(peerKey, protos)
	if peerKey != "" {
		if cached, ok := c.cache.Get(key); ok {
			protos = reorder(protos, cached)
		}
	}

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if err := c.handshake(conn, r, w); err != nil {
		return "", err
	}

	for _, proto := range protos {
		err := c.request(conn, r, w, proto)
		if err == nil {
			if peerKey != "" {
				c.cache.Add(key, proto)
			}
			return proto, nil
		}
		if errors.Is(err, ErrProtocolNotSupported) {
			continue
		}
		return "", err
	}

	return "", ErrProtocolNotSupported
}

// ClearCache 清空协商结果缓存
func (c *Client) ClearCache() {
	c.cache.Purge()
}

// ClearCacheForPeer 清除指定节点的缓存条目
func (c *Client) ClearCacheForPeer(peerKey string) {
	prefix := peerKey + ":"
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}

// ============================================================================
//                              内部步骤
// ============================================================================

// handshake 读服务端握手行并比对，回发本端握手行
func (c *Client) handshake(conn interfaces.Conn, r *bufio.Reader, w *bufio.Writer) error {
	line, err := c.read(conn, r)
	if err != nil {
		return err
	}
	if line != HandshakeID {
		return fmt.Errorf("%w: got %q", ErrProtocolMismatch, line)
	}

	if err := writeLineFlush(w, HandshakeID); err != nil {
		return classifyIOErr(err)
	}
	return nil
}

// request 发送目标协议行并等待回显
func (c *Client) request(conn interfaces.Conn, r *bufio.Reader, w *bufio.Writer, proto types.ProtocolID) error {
	if err := writeLineFlush(w, string(proto)); err != nil {
		return classifyIOErr(err)
	}

	resp, err := c.read(conn, r)
	if err != nil {
		return err
	}

	switch resp {
	case string(proto):
		return nil
	case NA:
		return ErrProtocolNotSupported
	default:
		return fmt.Errorf("%w: got %q", ErrUnexpectedResponse, resp)
	}
}

// read 重新武装读等待后读取一行
func (c *Client) read(conn interfaces.Conn, r *bufio.Reader) (string, error) {
	if c.cfg.NegotiationTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.NegotiationTimeout))
	}

	line, err := readLine(r)
	if err != nil {
		return "", classifyIOErr(err)
	}
	return line, nil
}

// cacheKey 生成缓存键
func cacheKey(peerKey string, protos []types.ProtocolID) string {
	return fmt.Sprintf("%s:%v", peerKey, protos)
}

// reorder 把 preferred 提到队首，其余保持原序
func reorder(protos []types.ProtocolID, preferred types.ProtocolID) []types.ProtocolID {
	for i, p := range protos {
		if p == preferred {
			out := make([]types.ProtocolID, 0, len(protos))
			out = append(out, preferred)
			out = append(out, protos[:i]...)
			out = append(out, protos[i+1:]...)
			return out
		}
	}
	return protos
}
