package identify

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"github.com/mr-tron/base58"

	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
	"github.com/dep2p/go-swarmcore/pkg/interfaces"
)

// ProtocolID Identify 协议前缀
const ProtocolID = "/identify/1.0.0"

// AgentVersion 代理版本
const AgentVersion = "go-swarmcore/1.0.0"

// maxChallengeLen 挑战随机数的长度上限
const maxChallengeLen = 256

var (
	// ErrChallengeTooLong 挑战超过长度上限
	ErrChallengeTooLong = errors.New("identify: challenge too long")

	// ErrNoSigner 未注入签名器
	ErrNoSigner = errors.New("identify: no signer configured")
)

// Signer 挑战签名边界
//
// 密码学是外部协作者，本包只消费这个接口。
type Signer interface {
	// PeerID 返回原始节点标识字节
	PeerID() []byte

	// PublicKey 返回原始公钥字节
	PublicKey() []byte

	// Sign 对数据签名
	Sign(data []byte) ([]byte, error)
}

// Info 节点身份信息
type Info struct {
	// PeerID 节点 ID（base58 编码）
	PeerID string `json:"peer_id"`

	// PublicKey 公钥（base64 编码）
	PublicKey string `json:"public_key"`

	// Protocols 本端注册的协议前缀列表
	Protocols []string `json:"protocols"`

	// AgentVersion 代理版本
	AgentVersion string `json:"agent_version"`

	// Signature 对挑战随机数的签名（base64 编码）
	Signature string `json:"signature,omitempty"`
}

// challenge 客户端请求体
type challenge struct {
	// Nonce 随机挑战（base64 编码）
	Nonce string `json:"nonce"`
}

// ============================================================================
//                              Service
// ============================================================================

// Service Identify 服务（服务端）
type Service struct {
	signer   Signer
	registry *negotiate.Registry
}

var _ interfaces.Handler = (*Service)(nil)

// NewService 创建 Identify 服务
func NewService(signer Signer, registry *negotiate.Registry) *Service {
	return &Service{
		signer:   signer,
		registry: registry,
	}
}

// Register 把服务挂到协商注册表
func (s *Service) Register() error {
	return s.registry.Register(ProtocolID, s)
}

// Handle 处理入站 Identify 请求
//
// 连接所有权已随分发转移到这里，处理完毕负责关闭。
func (s *Service) Handle(conn interfaces.Conn, _ string, _ any) error {
	defer conn.Close()

	if s.signer == nil {
		return ErrNoSigner
	}

	var ch challenge
	if err := json.NewDecoder(io.LimitReader(conn, 4096)).Decode(&ch); err != nil {
		return err
	}

	nonce, err := base64.StdEncoding.DecodeString(ch.Nonce)
	if err != nil {
		return err
	}
	if len(nonce) > maxChallengeLen {
		return ErrChallengeTooLong
	}

	info := Info{
		PeerID:       base58.Encode(s.signer.PeerID()),
		PublicKey:    base64.StdEncoding.EncodeToString(s.signer.PublicKey()),
		Protocols:    s.registry.Prefixes(),
		AgentVersion: AgentVersion,
	}

	if len(nonce) > 0 {
		sig, err := s.signer.Sign(nonce)
		if err != nil {
			return err
		}
		info.Signature = base64.StdEncoding.EncodeToString(sig)
	}

	return json.NewEncoder(conn).Encode(&info)
}

// ============================================================================
//                              客户端
// ============================================================================

// Identify 在已协商好的连接上执行挑战-响应（客户端）
//
// nonce 为空时跳过签名挑战，只取身份信息。
// 签名的验证是调用方的责任（需要公钥体系的参与）。
func Identify(conn interfaces.Conn, nonce []byte) (*Info, error) {
	if len(nonce) > maxChallengeLen {
		return nil, ErrChallengeTooLong
	}

	ch := challenge{Nonce: base64.StdEncoding.EncodeToString(nonce)}
	if err := json.NewEncoder(conn).Encode(&ch); err != nil {
		return nil, err
	}

	info := &Info{}
	if err := json.NewDecoder(conn).Decode(info); err != nil {
		return nil, err
	}
	return info, nil
}
