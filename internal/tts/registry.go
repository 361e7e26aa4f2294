package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// Constructor 根据配置构造一个 provider。
type Constructor func(cfg *config.Config) (Provider, error)

// Registry 管理 provider 名称到构造函数的映射。
// 解析成功的 provider 会被缓存，同名后续解析复用同一实例。
type Registry struct {
	mu           sync.Mutex
	cfg          *config.Config
	constructors map[string]Constructor
	resolved     map[string]Provider
}

// NewRegistry 创建空注册表，cfg 为 nil 时使用默认配置。
func NewRegistry(cfg *config.Config) *Registry {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Registry{
		cfg:          cfg,
		constructors: make(map[string]Constructor),
		resolved:     make(map[string]Provider),
	}
}

// NewDefaultRegistry 创建注册了全部内置 provider 的注册表。
func NewDefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry(cfg)
	r.Register("stream", func(cfg *config.Config) (Provider, error) {
		return NewStreamProvider(cfg.Stream)
	})
	r.Register("edge", func(cfg *config.Config) (Provider, error) {
		return NewEdgeProvider(cfg.Edge), nil
	})
	r.Register("tencent", func(cfg *config.Config) (Provider, error) {
		return NewTencentProvider(cfg.Tencent)
	})
	r.Register("piper", func(cfg *config.Config) (Provider, error) {
		return NewPiperProvider(cfg.Piper)
	})
	r.Register("say", func(cfg *config.Config) (Provider, error) {
		return NewSayProvider(cfg.Say)
	})
	r.Register("local", func(cfg *config.Config) (Provider, error) {
		return NewLocalProvider(cfg.Local)
	})
	return r
}

// Register 注册一个 provider 构造函数，同名注册会覆盖之前的构造函数和缓存实例。
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
	delete(r.resolved, name)
	logger.Debugf("[tts] 已注册 provider: %s", name)
}

// Resolve 按名称获取 provider。
// 未注册的名称返回 ErrNotFound；构造失败时返回构造函数的错误（通常是 ErrConfiguration），不做回退。
func (r *Registry) Resolve(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.resolved[name]; ok {
		return p, nil
	}
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: [tts] 未知 provider %q", ErrNotFound, name)
	}
	p, err := ctor(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("[tts] 初始化 provider %s 失败: %w", name, err)
	}
	r.resolved[name] = p
	return p, nil
}

// ListProviders 返回已注册的 provider 名称，按字母排序。
func (r *Registry) ListProviders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListVoices 列出指定 provider 的音色，provider 不支持列举时返回空列表。
func (r *Registry) ListVoices(ctx context.Context, name string) ([]VoiceInfo, error) {
	p, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	lister, ok := p.(VoiceLister)
	if !ok {
		return []VoiceInfo{}, nil
	}
	voices, err := lister.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range voices {
		if voices[i].Provider == "" {
			voices[i].Provider = name
		}
	}
	return voices, nil
}

// ListAllVoices 列出所有 provider 的音色，无法构造或列举失败的 provider 记录日志后跳过。
func (r *Registry) ListAllVoices(ctx context.Context) []VoiceInfo {
	var all []VoiceInfo
	for _, name := range r.ListProviders() {
		voices, err := r.ListVoices(ctx, name)
		if err != nil {
			logger.Warnf("[tts] 跳过 provider %s: %v", name, err)
			continue
		}
		all = append(all, voices...)
	}
	return all
}

// Close 关闭所有持有本地资源的已解析 provider。
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, p := range r.resolved {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("[tts] 关闭 provider %s: %w", name, err))
			}
		}
	}
	clear(r.resolved)
	return errors.Join(errs...)
}
