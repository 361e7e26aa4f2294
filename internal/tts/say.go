package tts

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// saySampleRate 是 afconvert 输出的采样率。
const saySampleRate = 22050

// sayVoiceLine 匹配 `say -v ?` 的输出行，如 "Tingting   zh_CN    # 你好，我叫婷婷。"。
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}_[A-Z0-9]{2,3})\s+#\s*(.*)$`)

// SayProvider 使用 macOS 内置 say 命令离线合成，仅在 macOS 上可用。
type SayProvider struct {
	voice string // macOS 语音名称，如 "Tingting"（中文）
}

// NewSayProvider 创建 macOS say provider。
func NewSayProvider(cfg config.SayConfig) (*SayProvider, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("%w: [tts] say 仅支持 macOS，当前系统 %s", ErrConfiguration, runtime.GOOS)
	}
	return &SayProvider{voice: cfg.Voice}, nil
}

// Name 返回 provider 名称。
func (s *SayProvider) Name() string { return "say" }

// Format afconvert 输出完整 WAV 文件。
func (s *SayProvider) Format() audio.Format { return audio.FormatWAV }

// Synthesize 先用 say 输出 AIFF，再用 afconvert 转为 16-bit 单声道 WAV，整体作为一个块产出。
// voiceID 为空或 "default" 时使用配置的语音。
func (s *SayProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	if err := CheckText(text); err != nil {
		return fail(err)
	}

	return func(yield func([]byte, error) bool) {
		data, err := s.render(ctx, text, s.pickVoice(voiceID))
		if err != nil {
			yield(nil, err)
			return
		}
		yield(data, nil)
	}
}

func (s *SayProvider) pickVoice(voiceID string) string {
	if voiceID == "" || voiceID == "default" || voiceID == config.DefaultVoice {
		return s.voice
	}
	return voiceID
}

func (s *SayProvider) render(ctx context.Context, text, voice string) ([]byte, error) {
	logger.Debugf("[tts] say: 正在合成 %d 个字符，语音=%q", len([]rune(text)), voice)

	tmpFile, err := os.CreateTemp("", "tts-say-*.aiff")
	if err != nil {
		return nil, transportError("[tts] say: 创建临时文件失败: %w", err)
	}
	aiffPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(aiffPath)

	wavPath := aiffPath + ".wav"
	defer os.Remove(wavPath)

	args := []string{"-o", aiffPath}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, "--", text)

	cmd := exec.CommandContext(ctx, "say", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, transportError("[tts] say 执行失败: %w, stderr: %s", err, stderr.String())
	}

	convertCmd := exec.CommandContext(ctx, "afconvert",
		"-f", "WAVE",
		"-d", fmt.Sprintf("LEI16@%d", saySampleRate),
		"-c", "1",
		aiffPath, wavPath,
	)
	var convertStderr bytes.Buffer
	convertCmd.Stderr = &convertStderr
	if err := convertCmd.Run(); err != nil {
		return nil, transportError("[tts] afconvert 执行失败: %w, stderr: %s", err, convertStderr.String())
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, transportError("[tts] say: 读取输出文件失败: %w", err)
	}
	if len(data) <= 44 {
		return nil, transportError("[tts] say: 未收到音频数据")
	}
	return data, nil
}

// ListVoices 解析 `say -v ?` 的输出。
func (s *SayProvider) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	out, err := exec.CommandContext(ctx, "say", "-v", "?").Output()
	if err != nil {
		return nil, transportError("[tts] say: 获取语音列表失败: %w", err)
	}
	return withHashIDs(s.Name(), parseSayVoices(out)), nil
}

func parseSayVoices(out []byte) []VoiceInfo {
	var voices []VoiceInfo
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		m := sayVoiceLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, VoiceInfo{
			ID:          name,
			Name:        name,
			Language:    strings.SplitN(m[2], "_", 2)[0],
			Description: strings.TrimSpace(m[3]),
		})
	}
	return voices
}
