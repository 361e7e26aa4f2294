package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultProvider 是未指定 provider 时使用的后端。
	DefaultProvider = "stream"
	// DefaultVoice 是默认说话人 ID。
	DefaultVoice = "xiaoyan"
	// DefaultStreamURL 是流式 TTS 服务的默认地址。
	DefaultStreamURL = "http://localhost:8002/tts_stream"
)

// Config 是 text-to-speech 的顶层配置结构。
type Config struct {
	Provider string        `yaml:"provider"`
	Voice    string        `yaml:"voice"`
	Stream   StreamConfig  `yaml:"stream"`
	Edge     EdgeConfig    `yaml:"edge"`
	Tencent  TencentConfig `yaml:"tencent"`
	Piper    PiperConfig   `yaml:"piper"`
	Say      SayConfig     `yaml:"say"`
	Local    LocalConfig   `yaml:"local"`
	Log      LogConfig     `yaml:"log"`
}

// StreamConfig 流式 HTTP TTS 服务配置。
type StreamConfig struct {
	URL       string `yaml:"url"`
	ChunkSize int    `yaml:"chunk_size"`
	// Timeout 单次请求超时（秒），0 表示不限制，仅受 ctx 控制。
	Timeout int `yaml:"timeout"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID   string `yaml:"secret_id"`
	SecretKey  string `yaml:"secret_key"`
	VoiceType  int64  `yaml:"voice_type"`
	Region     string `yaml:"region"`
	Codec      string `yaml:"codec"`
	SampleRate int64  `yaml:"sample_rate"`
	// Speed 语速，范围 [-2, 6]，0 为正常语速。
	Speed  float64 `yaml:"speed"`
	Volume float64 `yaml:"volume"`
}

// PiperConfig Piper TTS 配置。
type PiperConfig struct {
	// Command 是完整命令行，{model} 会被替换为 ModelPath。
	Command    string `yaml:"command"`
	ModelPath  string `yaml:"model_path"`
	SampleRate int    `yaml:"sample_rate"`
}

// SayConfig macOS say 配置。
type SayConfig struct {
	Voice string `yaml:"voice"`
}

// LocalConfig sherpa-onnx 离线 TTS 配置。
type LocalConfig struct {
	Model      string         `yaml:"model"`
	Tokens     string         `yaml:"tokens"`
	Lexicon    string         `yaml:"lexicon"`
	DataDir    string         `yaml:"data_dir"`
	RuleFsts   string         `yaml:"rule_fsts"`
	NumThreads int            `yaml:"num_threads"`
	Speed      float32        `yaml:"speed"`
	Speakers   map[string]int `yaml:"speakers"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LoadDotEnv 加载 .env 文件到进程环境变量，已存在的变量不会被覆盖。
// 文件不存在不算错误。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("加载 %s 失败: %w", p, err)
		}
	}
	return nil
}

// Load 读取 YAML 配置文件并返回 Config。
// path 为空时只使用环境变量和默认值。
// 支持 ${VAR_NAME} 形式的环境变量展开；环境变量优先于文件中的值。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}

		expanded := os.Expand(string(data), os.Getenv)

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	applyEnv(cfg, os.LookupEnv)
	setDefaults(cfg)
	return cfg, nil
}

// Default 返回只包含默认值的配置，不读取任何环境变量，便于测试。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// applyEnv 用环境变量覆盖配置项。
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set("TTS_URL", &cfg.Stream.URL)
	set("TTS_SPK_ID", &cfg.Voice)
	set("TTS_PROVIDER", &cfg.Provider)
	set("TTS_LOG_LEVEL", &cfg.Log.Level)
	set("TENCENTCLOUD_SECRET_ID", &cfg.Tencent.SecretID)
	set("TENCENTCLOUD_SECRET_KEY", &cfg.Tencent.SecretKey)
	set("EDGE_TTS_VOICE", &cfg.Edge.Voice)
	set("PIPER_MODEL", &cfg.Piper.ModelPath)
	set("SHERPA_TTS_MODEL", &cfg.Local.Model)
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Stream.URL == "" {
		cfg.Stream.URL = DefaultStreamURL
	}
	if cfg.Stream.ChunkSize <= 0 {
		cfg.Stream.ChunkSize = 4096
	}
	if cfg.Edge.Voice == "" {
		cfg.Edge.Voice = "zh-CN-XiaoxiaoNeural"
	}
	if cfg.Tencent.VoiceType == 0 {
		cfg.Tencent.VoiceType = 1001 // 智瑜（女声）
	}
	if cfg.Tencent.Region == "" {
		cfg.Tencent.Region = "ap-guangzhou"
	}
	if cfg.Tencent.Codec == "" {
		cfg.Tencent.Codec = "pcm"
	}
	if cfg.Tencent.SampleRate == 0 {
		cfg.Tencent.SampleRate = 16000
	}
	if cfg.Tencent.Volume == 0 {
		cfg.Tencent.Volume = 5.0
	}
	if cfg.Piper.Command == "" {
		cfg.Piper.Command = "piper --model {model} --output-raw"
	}
	if cfg.Piper.SampleRate == 0 {
		cfg.Piper.SampleRate = 22050
	}
	if cfg.Local.NumThreads == 0 {
		cfg.Local.NumThreads = 2
	}
	if cfg.Local.Speed == 0 {
		cfg.Local.Speed = 1.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	cfg.Tencent.SecretID = strings.TrimSpace(cfg.Tencent.SecretID)
	cfg.Tencent.SecretKey = strings.TrimSpace(cfg.Tencent.SecretKey)

	cfg.Piper.ModelPath = expandHome(cfg.Piper.ModelPath)
	cfg.Local.Model = expandHome(cfg.Local.Model)
	cfg.Local.Tokens = expandHome(cfg.Local.Tokens)
	cfg.Local.Lexicon = expandHome(cfg.Local.Lexicon)
	cfg.Local.DataDir = expandHome(cfg.Local.DataDir)
	cfg.Log.File = expandHome(cfg.Log.File)
}

// expandHome 展开 ~/ 前缀，Go 不会自动处理。
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return p
	}
	return home + p[1:]
}
