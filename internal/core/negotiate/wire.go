package negotiate

import (
	"bufio"
	"io"

	"github.com/multiformats/go-varint"
)

// ============================================================================
//                              常量
// ============================================================================

const (
	// HandshakeID multistream-select 握手标识
	HandshakeID = "/multistream/1.0.0"

	// NA 协议不支持响应
	NA = "na"

	// LS 列出协议命令
	LS = "ls"

	// MaxMsgLen 最大消息长度
	MaxMsgLen = 1024 * 64 // 64KB
)

// ============================================================================
//                              行帧编解码
// ============================================================================

// writeLine 写入一行
//
// 帧格式: [uvarint length][line]\n，长度计入结尾换行符。
func writeLine(w *bufio.Writer, line string) error {
	if len(line) > MaxMsgLen {
		return ErrMessageTooLong
	}

	if _, err := w.Write(varint.ToUvarint(uint64(len(line) + 1))); err != nil {
		return err
	}
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// writeLineFlush 写入一行并立即刷出
func writeLineFlush(w *bufio.Writer, line string) error {
	if err := writeLine(w, line); err != nil {
		return err
	}
	return w.Flush()
}

// readLine 读取一行
func readLine(r *bufio.Reader) (string, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		return "", err
	}

	if length > MaxMsgLen {
		return "", ErrMessageTooLong
	}
	if length == 0 {
		return "", ErrInvalidMessage
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	// 帧必须以换行符结尾
	if buf[length-1] != '\n' {
		return "", ErrInvalidMessage
	}
	return string(buf[:length-1]), nil
}
