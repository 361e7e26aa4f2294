package audio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Info 是从音频数据中探测到的基本信息。
type Info struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Probe 探测一段完整音频的时长和采样参数，只读不转码。
func Probe(data []byte, f Format) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("[audio] 音频数据为空")
	}

	switch f.Container {
	case ContainerPCM:
		if err := f.validate(); err != nil {
			return Info{}, err
		}
		frameSize := f.Channels * f.BitDepth / 8
		frames := len(data) / frameSize
		return Info{
			Duration:   time.Duration(frames) * time.Second / time.Duration(f.SampleRate),
			SampleRate: f.SampleRate,
			Channels:   f.Channels,
		}, nil

	case ContainerMP3:
		decoder, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return Info{}, fmt.Errorf("[audio] MP3 解析失败: %w", err)
		}
		sampleRate := decoder.SampleRate()
		// go-mp3 总是解码为立体声 16-bit，每帧 4 字节
		const bytesPerFrame = 4
		frames := decoder.Length() / bytesPerFrame
		if frames < 0 || sampleRate <= 0 {
			return Info{}, fmt.Errorf("[audio] 无法计算 MP3 时长")
		}
		return Info{
			Duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
			SampleRate: sampleRate,
			Channels:   2,
		}, nil

	default:
		decoder := wav.NewDecoder(bytes.NewReader(data))
		if !decoder.IsValidFile() {
			return Info{}, fmt.Errorf("[audio] 不是有效的 WAV 数据")
		}
		dur, err := decoder.Duration()
		if err != nil {
			return Info{}, fmt.Errorf("[audio] 读取 WAV 时长失败: %w", err)
		}
		return Info{
			Duration:   dur,
			SampleRate: int(decoder.SampleRate),
			Channels:   int(decoder.NumChans),
		}, nil
	}
}
