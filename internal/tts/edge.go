package tts

import (
	"context"
	"iter"
	"strings"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/logger"
)

// edgePresetVoices 是常用的 Edge 音色，避免每次都去服务端查询。
var edgePresetVoices = withHashIDs("edge", []VoiceInfo{
	{ID: "zh-CN-XiaoxiaoNeural", Name: "晓晓", Language: "zh", Gender: "female"},
	{ID: "zh-CN-YunxiNeural", Name: "云希", Language: "zh", Gender: "male"},
	{ID: "zh-CN-YunjianNeural", Name: "云健", Language: "zh", Gender: "male"},
	{ID: "zh-CN-XiaoyiNeural", Name: "晓伊", Language: "zh", Gender: "female"},
	{ID: "zh-CN-YunyangNeural", Name: "云扬", Language: "zh", Gender: "male"},
	{ID: "zh-CN-XiaochenNeural", Name: "晓辰", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaohanNeural", Name: "晓涵", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaomengNeural", Name: "晓梦", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaomoNeural", Name: "晓墨", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaoqiuNeural", Name: "晓秋", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaoruiNeural", Name: "晓睿", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaoshuangNeural", Name: "晓双", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaoxuanNeural", Name: "晓萱", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaoyanNeural", Name: "晓颜", Language: "zh", Gender: "female"},
	{ID: "zh-CN-XiaoyouNeural", Name: "晓悠", Language: "zh", Gender: "female"},
	{ID: "zh-CN-YunfengNeural", Name: "云枫", Language: "zh", Gender: "male"},
	{ID: "zh-CN-YunhaoNeural", Name: "云皓", Language: "zh", Gender: "male"},
	{ID: "zh-CN-YunxiaNeural", Name: "云夏", Language: "zh", Gender: "male"},
	{ID: "zh-CN-YunyeNeural", Name: "云野", Language: "zh", Gender: "male"},
	{ID: "zh-CN-YunzeNeural", Name: "云泽", Language: "zh", Gender: "male"},
	{ID: "en-US-JennyNeural", Name: "Jenny", Language: "en", Gender: "female"},
	{ID: "en-US-GuyNeural", Name: "Guy", Language: "en", Gender: "male"},
})

// EdgeProvider 使用微软 Edge TTS 合成语音（免费，无需注册，需要联网）。
// 音频块为 MP3 帧，随服务端推送逐块产出。
type EdgeProvider struct {
	defaultVoice string
}

// NewEdgeProvider 创建 Edge TTS provider。
func NewEdgeProvider(cfg config.EdgeConfig) *EdgeProvider {
	voice := cfg.Voice
	if voice == "" {
		voice = "zh-CN-XiaoxiaoNeural"
	}
	return &EdgeProvider{defaultVoice: voice}
}

// Name 返回 provider 名称。
func (p *EdgeProvider) Name() string { return "edge" }

// Format Edge 返回 MP3。
func (p *EdgeProvider) Format() audio.Format { return audio.FormatMP3 }

// ListVoices 返回预置音色列表。
func (p *EdgeProvider) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	return append([]VoiceInfo(nil), edgePresetVoices...), nil
}

// resolveVoice 把说话人 ID 解析为 Edge 音色名，解析不到时使用默认音色。
func (p *EdgeProvider) resolveVoice(spkID string) string {
	if spkID == "" || spkID == "default" {
		return p.defaultVoice
	}
	// 完整的音色名（如 zh-CN-XiaoxiaoNeural）直接使用
	if strings.Contains(spkID, "-") && strings.HasSuffix(spkID, "Neural") {
		return spkID
	}
	if v, ok := FindVoice(edgePresetVoices, spkID); ok {
		return v.ID
	}
	logger.Warnf("[tts] edge: 未找到音色 %q，使用默认音色 %s", spkID, p.defaultVoice)
	return p.defaultVoice
}

// Synthesize 使用 Edge TTS 合成语音。
func (p *EdgeProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	if err := CheckText(text); err != nil {
		return fail(err)
	}

	return func(yield func([]byte, error) bool) {
		voice := p.resolveVoice(voiceID)
		logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voice)

		comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
		if err != nil {
			yield(nil, transportError("[tts] edge-tts 创建实例失败: %w", err))
			return
		}

		ch, err := comm.Stream()
		if err != nil {
			yield(nil, transportError("[tts] edge-tts 开始流式合成失败: %w", err))
			return
		}
		// 提前退出时继续排空 channel，让 edge-tts-go 内部的 goroutine 能结束
		defer func() {
			go func() {
				for range ch {
				}
			}()
		}()

		received := 0
		for {
			select {
			case <-ctx.Done():
				yield(nil, transportError("[tts] edge-tts 合成被取消: %w", ctx.Err()))
				return
			case msg, ok := <-ch:
				if !ok {
					if received == 0 {
						yield(nil, transportError("[tts] edge-tts: 未收到音频数据"))
					} else {
						logger.Debugf("[tts] edge-tts: 收到 %d 字节 MP3 数据", received)
					}
					return
				}
				// Stream() 返回的 map 中，type=="audio" 的条目包含音频数据
				if msgType, _ := msg["type"].(string); msgType != "audio" {
					continue
				}
				data, _ := msg["data"].([]byte)
				if len(data) == 0 {
					continue
				}
				received += len(data)
				if !yield(data, nil) {
					return
				}
			}
		}
	}
}
