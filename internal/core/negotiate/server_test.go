package negotiate

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
)

// serveAsync 在后台驱动一次服务端协商
func serveAsync(n *Negotiator, conn interfaces.Conn) <-chan error {
	done := make(chan error, 1)
	go func() { done <- n.Serve(conn) }()
	return done
}

// peerHandshake 以对端角色完成握手：读服务端标识，回发本端标识
func peerHandshake(t *testing.T, r *bufio.Reader, w *bufio.Writer) {
	t.Helper()

	line, err := readLine(r)
	require.NoError(t, err)
	require.Equal(t, HandshakeID, line)

	require.NoError(t, writeLineFlush(w, HandshakeID))
}

// TestNegotiator_Dispatch 测试协商成功后分发到处理器
func TestNegotiator_Dispatch(t *testing.T) {
	registry := NewRegistry()

	type result struct {
		remainder string
		opt       any
	}
	got := make(chan result, 1)

	require.NoError(t, registry.Register("/group/join", interfaces.HandlerFunc(
		func(conn interfaces.Conn, remainder string, opt any) error {
			got <- result{remainder: remainder, opt: opt}
			return conn.Close()
		})))

	n := NewNegotiator(registry, DefaultConfig(), "opt-value")

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	require.NoError(t, writeLineFlush(w, "/group/join/room-1"))

	// 回显原行作为确认
	echo, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "/group/join/room-1", echo)

	require.NoError(t, <-done)

	res := <-got
	assert.Equal(t, "/room-1", res.remainder)
	assert.Equal(t, "opt-value", res.opt)

	t.Log("✅ 协商分发成功")
}

// TestNegotiator_HandshakeMismatch 测试握手不匹配终止会话
func TestNegotiator_HandshakeMismatch(t *testing.T) {
	n := NewNegotiator(NewRegistry(), DefaultConfig(), nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)

	line, err := readLine(r)
	require.NoError(t, err)
	require.Equal(t, HandshakeID, line)

	require.NoError(t, writeLineFlush(w, "/bogus/9.9.9"))

	assert.ErrorIs(t, <-done, ErrProtocolMismatch)

	// 会话终止后连接已被协商器关闭
	_, err = client.Read(make([]byte, 1))
	assert.Error(t, err)

	t.Log("✅ 握手不匹配终止会话并关闭连接")
}

// TestNegotiator_Ls 测试 ls 命令返回完整有序前缀列表且不终止会话
func TestNegotiator_Ls(t *testing.T) {
	registry := NewRegistry()
	prefixes := []string{"/c/1.0.0", "/a/1.0.0", "/b/1.0.0"}
	for _, p := range prefixes {
		require.NoError(t, registry.Register(p, interfaces.HandlerFunc(
			func(conn interfaces.Conn, _ string, _ any) error {
				return conn.Close()
			})))
	}

	n := NewNegotiator(registry, DefaultConfig(), nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	// ls 两次：幂等，每次都返回注册顺序的完整列表
	for i := 0; i < 2; i++ {
		require.NoError(t, writeLineFlush(w, LS))

		for _, want := range prefixes {
			line, err := readLine(r)
			require.NoError(t, err)
			assert.Equal(t, want, line)
		}
	}

	// ls 之后会话仍可正常分发
	require.NoError(t, writeLineFlush(w, "/a/1.0.0"))
	echo, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "/a/1.0.0", echo)

	require.NoError(t, <-done)

	t.Log("✅ ls 命令幂等且不终止会话")
}

// TestNegotiator_NaContinues 测试无命中回应 na 后会话继续
func TestNegotiator_NaContinues(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("/known/1.0.0", interfaces.HandlerFunc(
		func(conn interfaces.Conn, _ string, _ any) error {
			return conn.Close()
		})))

	n := NewNegotiator(registry, DefaultConfig(), nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	// 两次未命中，每次都回 na
	for i := 0; i < 2; i++ {
		require.NoError(t, writeLineFlush(w, "/unknown/1.0.0"))

		resp, err := readLine(r)
		require.NoError(t, err)
		assert.Equal(t, NA, resp)
	}

	// 之后命中仍可分发
	require.NoError(t, writeLineFlush(w, "/known/1.0.0"))
	echo, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "/known/1.0.0", echo)

	require.NoError(t, <-done)

	t.Log("✅ na 不终止会话")
}

// TestNegotiator_PipelinedPayload 测试分发时不丢流水线载荷
//
// 对端可能在确认到达前就发送了载荷；这些字节会残留在
// 会话缓冲区里，必须原样交给处理器。
func TestNegotiator_PipelinedPayload(t *testing.T) {
	registry := NewRegistry()
	payload := make(chan string, 1)

	require.NoError(t, registry.Register("/data/1.0.0", interfaces.HandlerFunc(
		func(conn interfaces.Conn, _ string, _ any) error {
			defer conn.Close()
			buf := make([]byte, 5)
			if _, err := io.ReadFull(conn, buf); err != nil {
				return err
			}
			payload <- string(buf)
			return nil
		})))

	n := NewNegotiator(registry, DefaultConfig(), nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	// 协议行和载荷一次写出（流水线）
	require.NoError(t, writeLine(w, "/data/1.0.0"))
	_, err := w.WriteString("hello")
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	echo, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "/data/1.0.0", echo)

	require.NoError(t, <-done)
	assert.Equal(t, "hello", <-payload)

	t.Log("✅ 流水线载荷原样移交处理器")
}

// TestNegotiator_Timeout 测试协商读等待超时
func TestNegotiator_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NegotiationTimeout = 50 * time.Millisecond

	n := NewNegotiator(NewRegistry(), cfg, nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	// 握手后保持沉默，等服务端超时
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNegotiationTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("协商超时未触发")
	}

	t.Log("✅ 协商超时正确触发")
}

// TestNegotiator_PeerClosed 测试对端关闭连接
func TestNegotiator_PeerClosed(t *testing.T) {
	n := NewNegotiator(NewRegistry(), DefaultConfig(), nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	require.NoError(t, client.Close())

	assert.ErrorIs(t, <-done, ErrConnectionClosed)

	t.Log("✅ 对端关闭被识别为干净终止")
}

// TestNegotiator_HandlerError 测试处理器返回错误
func TestNegotiator_HandlerError(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("/fail/1.0.0", interfaces.HandlerFunc(
		func(conn interfaces.Conn, _ string, _ any) error {
			return io.ErrUnexpectedEOF
		})))

	n := NewNegotiator(registry, DefaultConfig(), nil)

	server, client := net.Pipe()
	done := serveAsync(n, server)

	r := bufio.NewReader(client)
	w := bufio.NewWriter(client)
	peerHandshake(t, r, w)

	require.NoError(t, writeLineFlush(w, "/fail/1.0.0"))

	echo, err := readLine(r)
	require.NoError(t, err)
	require.Equal(t, "/fail/1.0.0", echo)

	assert.ErrorIs(t, <-done, ErrHandlerFailed)

	t.Log("✅ 处理器错误被归类上报")
}
