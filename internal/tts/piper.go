package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// piperReadSize 是读取 piper 标准输出的块大小。
const piperReadSize = 4096

// PiperProvider 使用 piper CLI 子进程离线合成。
// 文本通过 stdin 传入，stdout 输出 signed 16-bit LE 单声道 PCM，边生成边产出。
type PiperProvider struct {
	args       []string
	sampleRate int
}

// NewPiperProvider 创建 Piper provider。命令中的 {model} 会被替换为模型路径。
func NewPiperProvider(cfg config.PiperConfig) (*PiperProvider, error) {
	command := cfg.Command
	if command == "" {
		command = "piper --model {model} --output-raw"
	}
	if strings.Contains(command, "{model}") {
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("%w: [tts] piper 需要配置模型路径 (piper.model_path / PIPER_MODEL)", ErrConfiguration)
		}
	}

	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("%w: [tts] 解析 piper 命令失败: %v", ErrConfiguration, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: [tts] piper 命令为空", ErrConfiguration)
	}
	// 先分词再替换，模型路径中的空格不会被拆开
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{model}", cfg.ModelPath)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 22050
	}
	return &PiperProvider{args: args, sampleRate: sampleRate}, nil
}

// Name 返回 provider 名称。
func (p *PiperProvider) Name() string { return "piper" }

// Format piper 输出裸 PCM，落盘时封装为 WAV。
func (p *PiperProvider) Format() audio.Format { return audio.PCM16(p.sampleRate, 1) }

// Synthesize 启动 piper 子进程合成。提前退出时子进程会被杀掉。
// piper 的音色由模型决定，voiceID 被忽略。
func (p *PiperProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	if err := CheckText(text); err != nil {
		return fail(err)
	}

	return func(yield func([]byte, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		logger.Debugf("[tts] piper: 正在合成 %d 个字符，命令=%s", len([]rune(text)), strings.Join(p.args, " "))

		cmd := exec.CommandContext(ctx, p.args[0], p.args[1:]...)
		cmd.Stdin = strings.NewReader(text)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(nil, transportError("[tts] piper 创建输出管道失败: %w", err))
			return
		}
		if err := cmd.Start(); err != nil {
			yield(nil, transportError("[tts] piper 启动失败: %w", err))
			return
		}

		waited := false
		defer func() {
			if !waited {
				cancel()
				_ = cmd.Wait()
			}
		}()

		total := 0
		buf := make([]byte, piperReadSize)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				total += n
				if !yield(chunk, nil) {
					return
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				yield(nil, transportError("[tts] piper 读取输出失败: %w", err))
				return
			}
		}

		waited = true
		if err := cmd.Wait(); err != nil {
			if s := strings.TrimSpace(stderr.String()); s != "" {
				logger.Warnf("[tts] piper stderr: %s", s)
			}
			yield(nil, transportError("[tts] piper 执行失败: %w", err))
			return
		}
		if total == 0 {
			yield(nil, transportError("[tts] piper: 未收到音频数据"))
			return
		}
		logger.Debugf("[tts] piper: 收到 %d 字节原始 PCM", total)
	}
}
