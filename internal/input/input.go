// Package input 读取待合成的文本文件。
package input

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/iabetor/text-to-speech/internal/tts"
)

// utf8BOM 是 UTF-8 字节序标记。
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoderFor 返回编码名对应的解码器，带 BOM 的文件总是按 BOM 解码。
// UTF-8 的解码器会把非法字节替换为 U+FFFD，所以 isUTF8 为 true 时调用方需要先校验原始字节。
func decoderFor(name string) (dec *encoding.Decoder, isUTF8 bool, err error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), true, nil
	case "gbk", "cp936":
		return &encoding.Decoder{Transformer: unicode.BOMOverride(simplifiedchinese.GBK.NewDecoder())}, false, nil
	case "gb18030":
		return &encoding.Decoder{Transformer: unicode.BOMOverride(simplifiedchinese.GB18030.NewDecoder())}, false, nil
	default:
		return nil, false, fmt.Errorf("%w: [input] 不支持的编码 %q（可选 utf-8、gbk、gb18030）", tts.ErrInput, name)
	}
}

// ReadTextFile 读取文本文件并解码为 UTF-8 字符串，首尾空白会被去掉。
// 文件不存在或内容为空时返回 tts.ErrInput，读取失败返回 tts.ErrIO。
func ReadTextFile(path, enc string) (string, error) {
	dec, isUTF8, err := decoderFor(enc)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: [input] 文件不存在: %s", tts.ErrInput, path)
		}
		return "", fmt.Errorf("%w: [input] 读取文件失败: %w", tts.ErrIO, err)
	}

	if isUTF8 && !utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) {
		return "", fmt.Errorf("%w: [input] %s 不是有效的 UTF-8 文本，请用 --encoding 指定编码", tts.ErrInput, path)
	}
	decoded, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: [input] 按 %s 解码 %s 失败: %w", tts.ErrInput, enc, path, err)
	}

	text := strings.TrimSpace(string(decoded))
	if text == "" {
		return "", fmt.Errorf("%w: [input] 文件内容为空: %s", tts.ErrInput, path)
	}
	return text, nil
}
