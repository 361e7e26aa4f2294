package tts

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/iabetor/text-to-speech/internal/audio"
)

// Provider 定义语音合成后端接口。
//
// Synthesize 返回一个惰性、有限、不可重放的音频块序列：按顺序拼接所有块即得到完整音频。
// 失败时序列产出一个非 nil 的 error 并结束，不会静默截断。
// 调用方提前 break 或 ctx 取消时，实现必须释放连接或子进程。
// 实现只持有构造时的固定配置，可被多个请求并发使用。
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error]
}

// VoiceLister 是可选能力：列出 provider 支持的音色。
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]VoiceInfo, error)
}

// FormatProvider 是可选能力：声明音频块的格式。
// 未实现时认为 provider 返回的是完整的 WAV 容器，原样写出。
type FormatProvider interface {
	Format() audio.Format
}

// FormatOf 返回 provider 的输出格式。
func FormatOf(p Provider) audio.Format {
	if fp, ok := p.(FormatProvider); ok {
		return fp.Format()
	}
	return audio.FormatWAV
}

// CheckText 校验待合成文本，空白文本返回 ErrInput。
func CheckText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: 文本内容为空", ErrInput)
	}
	return nil
}

// fail 返回只产出一个错误的序列。
func fail(err error) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		yield(nil, err)
	}
}

// transportError 把底层错误包装为 ErrTransport，format 中的 %w 仍可被 errors.Is 识别。
func transportError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w", ErrTransport, fmt.Errorf(format, args...))
}
