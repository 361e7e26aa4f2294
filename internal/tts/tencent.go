package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"strconv"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tcts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// tencentMaxChars 是 TextToVoice 单次请求的中文字符上限（150），留出余量。
const tencentMaxChars = 120

// tencentPresetVoices 是常用的腾讯云精品音色。
var tencentPresetVoices = withHashIDs("tencent", []VoiceInfo{
	{ID: "1001", Name: "智瑜", Language: "zh", Gender: "female", Description: "情感女声"},
	{ID: "1002", Name: "智聆", Language: "zh", Gender: "female", Description: "通用女声"},
	{ID: "1003", Name: "智美", Language: "zh", Gender: "female", Description: "客服女声"},
	{ID: "1004", Name: "智云", Language: "zh", Gender: "male", Description: "通用男声"},
	{ID: "1005", Name: "智莉", Language: "zh", Gender: "female", Description: "通用女声"},
	{ID: "1008", Name: "智琪", Language: "zh", Gender: "female", Description: "客服女声"},
	{ID: "1009", Name: "智芸", Language: "zh", Gender: "female", Description: "知性女声"},
	{ID: "1010", Name: "智华", Language: "zh", Gender: "male", Description: "通用男声"},
	{ID: "1017", Name: "智蓉", Language: "zh", Gender: "female", Description: "情感女声"},
	{ID: "1018", Name: "智靖", Language: "zh", Gender: "male", Description: "情感男声"},
})

// TencentProvider 使用腾讯云 TTS 实现语音合成。
// 适用于中国大陆网络环境。长文本按句切分，每段一次请求、产出一个音频块。
type TencentProvider struct {
	client *tcts.Client
	cfg    config.TencentConfig
}

// NewTencentProvider 创建腾讯云 TTS provider。
func NewTencentProvider(cfg config.TencentConfig) (*TencentProvider, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: [tts] 腾讯云 TTS 需要 SecretID 和 SecretKey", ErrConfiguration)
	}
	switch cfg.Codec {
	case "":
		cfg.Codec = "pcm"
	case "pcm", "mp3":
	default:
		// wav 每段都带文件头，多段拼接后不是合法文件
		return nil, fmt.Errorf("%w: [tts] 腾讯云 TTS 不支持编码 %q（可选 pcm、mp3）", ErrConfiguration, cfg.Codec)
	}
	if cfg.VoiceType == 0 {
		cfg.VoiceType = 1001
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tcts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("%w: [tts] 创建腾讯云 TTS 客户端失败: %v", ErrConfiguration, err)
	}

	logger.Debugf("[tts] 腾讯云 TTS 已初始化 (voice=%d, region=%s, codec=%s)", cfg.VoiceType, cfg.Region, cfg.Codec)

	return &TencentProvider{client: client, cfg: cfg}, nil
}

// Name 返回 provider 名称。
func (p *TencentProvider) Name() string { return "tencent" }

// Format 由配置的编码决定。
func (p *TencentProvider) Format() audio.Format {
	if p.cfg.Codec == "mp3" {
		return audio.FormatMP3
	}
	return audio.PCM16(int(p.cfg.SampleRate), 1)
}

// ListVoices 返回预置音色列表。
func (p *TencentProvider) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	return append([]VoiceInfo(nil), tencentPresetVoices...), nil
}

// resolveVoiceType 数字直接作为音色编号，否则按名称/拼音查找预置音色。
func (p *TencentProvider) resolveVoiceType(spkID string) int64 {
	if n, err := strconv.ParseInt(spkID, 10, 64); err == nil {
		return n
	}
	if v, ok := FindVoice(tencentPresetVoices, spkID); ok {
		n, _ := strconv.ParseInt(v.ID, 10, 64)
		return n
	}
	if spkID != "" && spkID != "default" {
		logger.Warnf("[tts] 腾讯云: 未找到音色 %q，使用默认音色 %d", spkID, p.cfg.VoiceType)
	}
	return p.cfg.VoiceType
}

// Synthesize 调用腾讯云 TextToVoice 合成语音。
func (p *TencentProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	if err := CheckText(text); err != nil {
		return fail(err)
	}

	return func(yield func([]byte, error) bool) {
		voiceType := p.resolveVoiceType(voiceID)
		segments := Segment(text, tencentMaxChars)
		logger.Debugf("[tts] 腾讯云 TTS: %d 个字符分为 %d 段，音色=%d", len([]rune(text)), len(segments), voiceType)

		for i, seg := range segments {
			data, err := p.synthesizeSegment(ctx, seg, voiceType)
			if err != nil {
				yield(nil, transportError("[tts] 腾讯云 TTS 第 %d/%d 段合成失败: %w", i+1, len(segments), err))
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}
}

func (p *TencentProvider) synthesizeSegment(ctx context.Context, text string, voiceType int64) ([]byte, error) {
	request := tcts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr(uuid.NewString())
	request.VoiceType = common.Int64Ptr(voiceType)
	request.Codec = common.StringPtr(p.cfg.Codec)
	request.SampleRate = common.Uint64Ptr(uint64(p.cfg.SampleRate))
	request.Speed = common.Float64Ptr(p.cfg.Speed)
	request.Volume = common.Float64Ptr(p.cfg.Volume)

	response, err := p.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, err
	}
	if response.Response == nil || response.Response.Audio == nil {
		return nil, fmt.Errorf("未返回音频数据")
	}

	data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, fmt.Errorf("Base64 解码失败: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("音频数据为空")
	}
	return data, nil
}
