// Package identify 提供通过协商核心分发的身份识别协议
//
// 这是一个经由前缀处理器契约接入的载荷协议示例：
// 客户端发送一个随机挑战，服务端回应自身身份信息
// （base58 节点 ID、公钥、已注册协议列表）以及对挑战的签名。
// 签名与验签属于外部协作者，本包只消费 Signer 接口。
package identify
