package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// voicesTimeout 是拉取音色列表的超时时间。
const voicesTimeout = 10 * time.Second

// StreamProvider 适配 POST 请求返回流式音频数据的 TTS 服务。
// 请求体为表单 text=...&spk_id=...，响应体是分块传输的 WAV 数据。
type StreamProvider struct {
	url        string
	chunkSize  int
	httpClient *http.Client
}

// NewStreamProvider 创建流式 TTS provider。URL 必须是 http(s) 地址。
func NewStreamProvider(cfg config.StreamConfig) (*StreamProvider, error) {
	rawURL := strings.TrimSpace(cfg.URL)
	if rawURL == "" {
		rawURL = config.DefaultStreamURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: [tts] stream URL %q 无效: %v", ErrConfiguration, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: [tts] stream URL %q 必须是 http(s) 地址", ErrConfiguration, rawURL)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &StreamProvider{
		url:        rawURL,
		chunkSize:  chunkSize,
		httpClient: client,
	}, nil
}

// Name 返回 provider 名称。
func (p *StreamProvider) Name() string { return "stream" }

// URL 返回服务地址。
func (p *StreamProvider) URL() string { return p.url }

// Format 流式服务返回 WAV 容器。
func (p *StreamProvider) Format() audio.Format { return audio.FormatWAV }

// Synthesize 调用流式 TTS 服务，每读到一块响应体就产出一个音频块。
func (p *StreamProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	if err := CheckText(text); err != nil {
		return fail(err)
	}

	return func(yield func([]byte, error) bool) {
		spkID := p.resolveVoice(ctx, voiceID)

		form := url.Values{}
		form.Set("text", text)
		form.Set("spk_id", spkID)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(form.Encode()))
		if err != nil {
			yield(nil, transportError("[tts] stream 创建请求失败: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		logger.Debugf("[tts] stream: POST %s，%d 个字符，spk_id=%s", p.url, len([]rune(text)), spkID)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			yield(nil, transportError("[tts] stream 请求失败: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			yield(nil, transportError("[tts] stream 服务返回 %s: %s", resp.Status, strings.TrimSpace(string(body))))
			return
		}

		buf := make([]byte, p.chunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, transportError("[tts] stream 读取响应中断: %w", err))
				return
			}
		}
	}
}

// resolveVoice 把 --list-voices 列出的 HashID 还原为服务端的原始音色 ID。
// 不像 HashID、列表获取失败或找不到时原样返回。
func (p *StreamProvider) resolveVoice(ctx context.Context, voiceID string) string {
	if !isHashID(voiceID) {
		return voiceID
	}
	voices, err := p.ListVoices(ctx)
	if err != nil {
		logger.Debugf("[tts] stream: 获取音色列表失败，spk_id 原样发送: %v", err)
		return voiceID
	}
	if v, ok := findByHashID(voices, voiceID); ok {
		logger.Debugf("[tts] stream: HashID %s -> spk_id %s", voiceID, v.ID)
		return v.ID
	}
	return voiceID
}

// streamVoice 是 /voices 接口返回的单个音色，兼容两套字段名。
type streamVoice struct {
	ID          string `json:"id"`
	SpkID       string `json:"spk_id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Language    string `json:"language"`
	Gender      string `json:"gender"`
	SampleURL   string `json:"sample_url"`
	Description string `json:"description"`
}

// voicesURL 把 .../tts_stream 替换为同级的 .../voices。
func (p *StreamProvider) voicesURL() string {
	u, err := url.Parse(p.url)
	if err != nil {
		return p.url
	}
	u.Path = path.Join(path.Dir(u.Path), "voices")
	u.RawQuery = ""
	return u.String()
}

// ListVoices 从 TTS 服务的 /voices 接口获取音色列表。
func (p *StreamProvider) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, voicesTimeout)
	defer cancel()

	voicesURL := p.voicesURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesURL, nil)
	if err != nil {
		return nil, transportError("[tts] stream 创建音色请求失败: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, transportError("[tts] 获取音色列表失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transportError("[tts] %s 返回 %s", voicesURL, resp.Status)
	}

	var items []streamVoice
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, transportError("[tts] 解析音色列表失败: %w", err)
	}

	voices := make([]VoiceInfo, 0, len(items))
	for _, item := range items {
		v := VoiceInfo{
			ID:          firstNonEmpty(item.ID, item.SpkID),
			Name:        firstNonEmpty(item.Name, item.Title),
			Language:    firstNonEmpty(item.Language, "zh"),
			Gender:      item.Gender,
			SampleURL:   item.SampleURL,
			Description: item.Description,
		}
		if v.ID == "" {
			continue
		}
		voices = append(voices, v)
	}
	return withHashIDs(p.Name(), voices), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
