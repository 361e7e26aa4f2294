// Package texttospeech 把文本合成为语音。
//
// 最简单的用法：
//
//	audio, err := texttospeech.TextToSpeech(ctx, "你好世界", "hello.wav")
//
// 需要进度回调或指定后端时，通过 Option 配置：
//
//	audio, err := texttospeech.TextToSpeech(ctx, text, "out.mp3",
//		texttospeech.WithProviderName("edge"),
//		texttospeech.WithVoice("xiaoxiao"),
//		texttospeech.WithCallback(func(r texttospeech.Result) { ... }))
package texttospeech

import (
	"context"

	"github.com/iabetor/text-to-speech/internal/client"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/tts"
)

type (
	// Client 绑定一次合成请求。
	Client = client.Client
	// Option 配置 Client。
	Option = client.Option
	// Result 是进度事件。
	Result = client.Result
	// ResultType 是进度事件类型。
	ResultType = client.ResultType
	// Callback 接收进度事件。
	Callback = client.Callback
	// Error 是带分类的错误。
	Error = client.Error
	// Provider 是语音合成后端。
	Provider = tts.Provider
	// VoiceLister 是可列举音色的后端。
	VoiceLister = tts.VoiceLister
	// VoiceInfo 描述一个音色。
	VoiceInfo = tts.VoiceInfo
	// Registry 管理后端名称。
	Registry = tts.Registry
	// Constructor 构造后端。
	Constructor = tts.Constructor
	// Config 是全部配置项。
	Config = config.Config
)

const (
	ResultError      = client.ResultError
	ResultProcessing = client.ResultProcessing
	ResultCompleted  = client.ResultCompleted
)

// 错误分类，用 errors.Is 判断。
var (
	ErrConfiguration = tts.ErrConfiguration
	ErrNotFound      = tts.ErrNotFound
	ErrTransport     = tts.ErrTransport
	ErrInput         = tts.ErrInput
	ErrIO            = tts.ErrIO
)

var (
	WithVoice        = client.WithVoice
	WithProvider     = client.WithProvider
	WithProviderName = client.WithProviderName
	WithRegistry     = client.WithRegistry
	WithURL          = client.WithURL
	WithCallback     = client.WithCallback
	WithConfig       = client.WithConfig
)

// New 创建 Client，见 client.New。
func New(text string, opts ...Option) (*Client, error) {
	return client.New(text, opts...)
}

// NewRegistry 创建空注册表。
func NewRegistry(cfg *Config) *Registry { return tts.NewRegistry(cfg) }

// NewDefaultRegistry 创建注册了全部内置后端的注册表。
func NewDefaultRegistry(cfg *Config) *Registry { return tts.NewDefaultRegistry(cfg) }

// LoadConfig 读取 YAML 配置文件并应用环境变量，path 为空时只使用环境变量。
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// TextToSpeech 合成 text 并返回音频，outputPath 非空时同时写入文件。
func TextToSpeech(ctx context.Context, text, outputPath string, opts ...Option) ([]byte, error) {
	c, err := client.New(text, opts...)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Convert(ctx, outputPath)
}
