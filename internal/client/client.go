// Package client 驱动一次语音合成请求：解析 provider、迭代音频块、上报进度并写出音频。
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
	"github.com/iabetor/text-to-speech/internal/tts"
)

// Callback 接收进度事件，在合成所在的 goroutine 中按顺序同步调用。
type Callback func(Result)

// Option 配置 Client。
type Option func(*Client)

// WithVoice 指定说话人 ID。
func WithVoice(voice string) Option {
	return func(c *Client) { c.voice = voice }
}

// WithProvider 直接指定 provider 实例，优先级最高。
func WithProvider(p tts.Provider) Option {
	return func(c *Client) { c.provider = p }
}

// WithProviderName 按名称从注册表解析 provider。
func WithProviderName(name string) Option {
	return func(c *Client) { c.providerName = name }
}

// WithRegistry 指定解析 provider 名称使用的注册表，默认使用 tts.NewDefaultRegistry。
func WithRegistry(r *tts.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithURL 兼容旧用法：用给定地址构造流式 HTTP provider。
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithCallback 注册进度回调。
func WithCallback(cb Callback) Option {
	return func(c *Client) { c.callback = cb }
}

// WithConfig 指定配置，不设置时从环境变量加载。
func WithConfig(cfg *config.Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

// Client 绑定一次合成请求的文本、说话人和 provider。
// 每次调用 Convert/Start/Events 都会重新调用 provider，不缓存结果。
type Client struct {
	text         string
	voice        string
	provider     tts.Provider
	providerName string
	url          string
	registry     *tts.Registry
	ownsRegistry bool
	cfg          *config.Config
	callback     Callback
}

// New 创建 Client 并解析 provider。解析顺序：
//  1. WithProvider 指定的实例
//  2. WithProviderName 指定的名称（未注册返回 tts.ErrNotFound）
//  3. WithURL 指定的流式服务地址
//  4. 配置中的默认 provider
//
// 文本在合成时才校验，空文本不会导致 New 失败。
// 未传入 WithRegistry 时 Client 自己创建注册表，用完后应调用 Close。
func New(text string, opts ...Option) (*Client, error) {
	c := &Client{text: text}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, wrapError(fmt.Errorf("%w: [client] 加载配置失败: %w", tts.ErrConfiguration, err))
		}
		c.cfg = cfg
	}
	if c.voice == "" {
		c.voice = c.cfg.Voice
	}
	if c.voice == "" {
		c.voice = config.DefaultVoice
	}

	p, err := c.resolve()
	if err != nil {
		return nil, wrapError(err)
	}
	c.provider = p
	logger.Debugf("[client] 使用 provider %s，说话人 %s", p.Name(), c.voice)
	return c, nil
}

func (c *Client) resolve() (tts.Provider, error) {
	if c.provider != nil {
		return c.provider, nil
	}
	if c.providerName != "" {
		return c.reg().Resolve(c.providerName)
	}
	if c.url != "" {
		streamCfg := c.cfg.Stream
		streamCfg.URL = c.url
		return tts.NewStreamProvider(streamCfg)
	}
	name := c.cfg.Provider
	if name == "" {
		name = config.DefaultProvider
	}
	return c.reg().Resolve(name)
}

func (c *Client) reg() *tts.Registry {
	if c.registry == nil {
		c.registry = tts.NewDefaultRegistry(c.cfg)
		c.ownsRegistry = true
	}
	return c.registry
}

// Close 释放 Client 自己创建的默认注册表及其中持有本地资源的 provider（如 local 引擎）。
// 通过 WithRegistry 传入的注册表由调用方负责关闭。Close 之后不应再合成。
func (c *Client) Close() error {
	if !c.ownsRegistry || c.registry == nil {
		return nil
	}
	err := c.registry.Close()
	c.registry = nil
	c.ownsRegistry = false
	return err
}

// Provider 返回解析得到的 provider。
func (c *Client) Provider() tts.Provider { return c.provider }

// Voice 返回说话人 ID。
func (c *Client) Voice() string { return c.voice }

// Format 返回 provider 的输出格式。
func (c *Client) Format() audio.Format { return tts.FormatOf(c.provider) }

// Convert 同步合成并返回完整音频。outputPath 非空时写入文件。
// 只有全部音频块都成功收到后才写文件，写入通过临时文件 + rename 完成，失败不会留下不完整的文件。
// 写文件失败时仍然返回合成得到的音频，同时返回 tts.ErrIO 错误。
func (c *Client) Convert(ctx context.Context, outputPath string) ([]byte, error) {
	emit := func(r Result) bool {
		if c.callback != nil {
			c.callback(r)
		}
		return true
	}
	return c.run(ctx, outputPath, true, emit)
}

// Start 以回调方式合成：每个音频块一个事件，最后一个终止事件。
// 不拼接音频，终止事件的 Audio 为 nil，需要完整音频的调用方自行从回调中累积。
func (c *Client) Start(ctx context.Context) error {
	emit := func(r Result) bool {
		if c.callback != nil {
			c.callback(r)
		}
		return true
	}
	_, err := c.run(ctx, "", false, emit)
	return err
}

// Events 以拉取方式返回进度事件序列，语义同 Start。提前 break 会停止合成并释放 provider 资源。
// 注册的回调不会被调用。
func (c *Client) Events(ctx context.Context) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		_, _ = c.run(ctx, "", false, yield)
	}
}

// errStopped 表示事件消费方提前停止。
var errStopped = errors.New("[client] 事件消费方已停止")

// run 驱动一次完整的合成。emit 返回 false 时立即停止，不再发送终止事件。
func (c *Client) run(ctx context.Context, outputPath string, assemble bool, emit func(Result) bool) ([]byte, error) {
	log := logger.With(zap.String("request_id", uuid.NewString()[:8]), zap.String("provider", c.provider.Name()))

	var (
		buf      bytes.Buffer
		progress int64
		chunks   int
	)

	fail := func(err error) ([]byte, error) {
		e := wrapError(err)
		log.Warnf("[client] 合成失败（已收到 %d 块，%d 字节）: %v", chunks, progress, e)
		emit(Result{Type: ResultError, Message: e.Error(), Progress: progress, Chunks: chunks, Err: e})
		return nil, e
	}

	if err := tts.CheckText(c.text); err != nil {
		return fail(err)
	}

	format := c.Format()
	if outputPath != "" && !audio.MatchesExt(outputPath, format) {
		log.Warnf("[client] 输出文件 %s 的扩展名与音频格式 %s 不符，内容不做转码", outputPath, format)
	}

	started := time.Now()
	log.Infof("[client] 开始合成 %d 个字符，说话人 %s", len([]rune(c.text)), c.voice)

	for chunk, err := range c.provider.Synthesize(ctx, c.text, c.voice) {
		if err != nil {
			return fail(err)
		}
		if len(chunk) == 0 {
			continue
		}
		chunks++
		progress += int64(len(chunk))
		if assemble {
			buf.Write(chunk)
		}
		if !emit(Result{Type: ResultProcessing, Audio: chunk, Progress: progress, Chunks: chunks}) {
			log.Debugf("[client] 事件消费方提前停止")
			return nil, errStopped
		}
	}

	if chunks == 0 {
		return fail(fmt.Errorf("%w: [client] provider %s 未返回任何音频数据", tts.ErrTransport, c.provider.Name()))
	}
	log.Infof("[client] 合成完成: %d 块，%d 字节，耗时 %v", chunks, progress, time.Since(started).Round(time.Millisecond))

	var data []byte
	if assemble {
		data = buf.Bytes()
	}

	if outputPath != "" {
		// 部分 provider（如 local）在合成后才知道实际采样率
		format = c.Format()
		if err := audio.WriteFile(outputPath, data, format); err != nil {
			e := wrapError(fmt.Errorf("%w: [client] 写入 %s 失败: %w", tts.ErrIO, outputPath, err))
			log.Errorf("[client] %v", e)
			emit(Result{Type: ResultError, Message: e.Error(), Progress: progress, Chunks: chunks, Err: e})
			return data, e
		}
		log.Infof("[client] 音频已保存到 %s", outputPath)
	}

	emit(Result{Type: ResultCompleted, Audio: data, Progress: progress, Chunks: chunks})
	return data, nil
}
