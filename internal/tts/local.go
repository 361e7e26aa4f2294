package tts

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sort"
	"strconv"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// localDefaultSampleRate 是首次合成前 Format 返回的采样率，VITS 中文模型通常为 22050。
const localDefaultSampleRate = 22050

// LocalProvider 使用 sherpa-onnx 离线 TTS 在进程内合成，无需网络。
// 模型在第一次合成时加载；底层引擎不是并发安全的，合成调用互斥执行。
type LocalProvider struct {
	cfg config.LocalConfig

	once    sync.Once
	initErr error

	mu         sync.Mutex
	engine     *sherpa.OfflineTts
	sampleRate int
	closed     bool
}

// errLocalClosed 表示 provider 已经 Close，引擎已释放。
var errLocalClosed = fmt.Errorf("%w: [tts] local provider 已关闭", ErrTransport)

// NewLocalProvider 创建本地 provider，只校验配置，不加载模型。
func NewLocalProvider(cfg config.LocalConfig) (*LocalProvider, error) {
	if cfg.Model == "" || cfg.Tokens == "" {
		return nil, fmt.Errorf("%w: [tts] local 需要配置 local.model 和 local.tokens", ErrConfiguration)
	}
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("%w: [tts] local 模型文件不可用: %v", ErrConfiguration, err)
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 2
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	return &LocalProvider{cfg: cfg, sampleRate: localDefaultSampleRate}, nil
}

// Name 返回 provider 名称。
func (p *LocalProvider) Name() string { return "local" }

// Format 返回 16-bit 单声道 PCM，采样率取自最近一次合成结果。
func (p *LocalProvider) Format() audio.Format {
	p.mu.Lock()
	defer p.mu.Unlock()
	return audio.PCM16(p.sampleRate, 1)
}

func (p *LocalProvider) load() error {
	p.once.Do(func() {
		cfg := sherpa.OfflineTtsConfig{}
		cfg.Model.Vits.Model = p.cfg.Model
		cfg.Model.Vits.Tokens = p.cfg.Tokens
		cfg.Model.Vits.Lexicon = p.cfg.Lexicon
		cfg.Model.Vits.DataDir = p.cfg.DataDir
		cfg.Model.Vits.NoiseScale = 0.667
		cfg.Model.Vits.NoiseScaleW = 0.8
		cfg.Model.Vits.LengthScale = 1.0
		cfg.Model.NumThreads = p.cfg.NumThreads
		cfg.Model.Provider = "cpu"
		cfg.RuleFsts = p.cfg.RuleFsts
		cfg.MaxNumSentences = 1

		engine := sherpa.NewOfflineTts(&cfg)
		if engine == nil {
			p.initErr = fmt.Errorf("%w: [tts] 加载 sherpa-onnx 模型失败: %s", ErrConfiguration, p.cfg.Model)
			return
		}
		p.engine = engine
		logger.Infof("[tts] local: sherpa-onnx 模型已加载 (model=%s, threads=%d)", p.cfg.Model, p.cfg.NumThreads)
	})
	return p.initErr
}

// resolveSpeaker 数字直接作为说话人编号，否则查配置的名称映射或 HashID，都没有时用 0。
func (p *LocalProvider) resolveSpeaker(voiceID string) int {
	if n, err := strconv.Atoi(voiceID); err == nil && n >= 0 {
		return n
	}
	if sid, ok := p.cfg.Speakers[voiceID]; ok {
		return sid
	}
	// --list-voices 列出的 HashID
	for _, sid := range p.cfg.Speakers {
		if HashID(p.Name(), strconv.Itoa(sid)) == voiceID {
			return sid
		}
	}
	return 0
}

// Synthesize 在进程内合成整段文本，作为一个块产出。
func (p *LocalProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	if err := CheckText(text); err != nil {
		return fail(err)
	}

	return func(yield func([]byte, error) bool) {
		if p.isClosed() {
			yield(nil, errLocalClosed)
			return
		}
		if err := p.load(); err != nil {
			yield(nil, err)
			return
		}
		if err := ctx.Err(); err != nil {
			yield(nil, transportError("[tts] local 合成被取消: %w", err))
			return
		}

		sid := p.resolveSpeaker(voiceID)
		logger.Debugf("[tts] local: 正在合成 %d 个字符，speaker=%d", len([]rune(text)), sid)

		p.mu.Lock()
		if p.engine == nil {
			p.mu.Unlock()
			yield(nil, errLocalClosed)
			return
		}
		generated := p.engine.Generate(text, sid, p.cfg.Speed)
		if generated != nil && generated.SampleRate > 0 {
			p.sampleRate = generated.SampleRate
		}
		p.mu.Unlock()

		if generated == nil || len(generated.Samples) == 0 {
			yield(nil, transportError("[tts] local: 未生成音频数据"))
			return
		}

		pcm := audio.Float32ToPCM16(generated.Samples)
		logger.Debugf("[tts] local: 生成 %d 个样本，采样率 %d Hz", len(generated.Samples), generated.SampleRate)
		yield(pcm, nil)
	}
}

// ListVoices 返回配置中的说话人名称映射，按编号排序。
func (p *LocalProvider) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	voices := make([]VoiceInfo, 0, len(p.cfg.Speakers))
	for name, sid := range p.cfg.Speakers {
		voices = append(voices, VoiceInfo{
			ID:          strconv.Itoa(sid),
			Name:        name,
			Language:    "zh",
			Description: fmt.Sprintf("speaker %d", sid),
		})
	}
	sort.Slice(voices, func(i, j int) bool {
		a, _ := strconv.Atoi(voices[i].ID)
		b, _ := strconv.Atoi(voices[j].ID)
		if a != b {
			return a < b
		}
		return voices[i].Name < voices[j].Name
	})
	return withHashIDs(p.Name(), voices), nil
}

func (p *LocalProvider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close 释放 sherpa-onnx 引擎，之后的合成调用返回 ErrTransport。
func (p *LocalProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.engine != nil {
		sherpa.DeleteOfflineTts(p.engine)
		p.engine = nil
	}
	return nil
}
