package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Decode 把一段完整音频解码为 16-bit LE PCM，供播放使用。
// MP3 总是解码为双声道。
func Decode(data []byte, f Format) ([]byte, Format, error) {
	if len(data) == 0 {
		return nil, Format{}, fmt.Errorf("[audio] 音频数据为空")
	}

	switch f.Container {
	case ContainerPCM:
		if err := f.validate(); err != nil {
			return nil, Format{}, err
		}
		return data, f, nil

	case ContainerMP3:
		decoder, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, Format{}, fmt.Errorf("[audio] MP3 解析失败: %w", err)
		}
		pcm, err := io.ReadAll(decoder)
		if err != nil {
			return nil, Format{}, fmt.Errorf("[audio] MP3 解码失败: %w", err)
		}
		return pcm, PCM16(decoder.SampleRate(), 2), nil

	default:
		decoder := wav.NewDecoder(bytes.NewReader(data))
		if !decoder.IsValidFile() {
			return nil, Format{}, fmt.Errorf("[audio] 不是有效的 WAV 数据")
		}
		buf, err := decoder.FullPCMBuffer()
		if err != nil {
			return nil, Format{}, fmt.Errorf("[audio] WAV 解码失败: %w", err)
		}
		if decoder.BitDepth != 16 {
			return nil, Format{}, fmt.Errorf("[audio] 仅支持播放 16-bit WAV，当前 %d-bit", decoder.BitDepth)
		}
		pcm := make([]int16, len(buf.Data))
		for i, s := range buf.Data {
			pcm[i] = int16(s)
		}
		return Int16ToBytes(pcm), PCM16(int(decoder.SampleRate), int(decoder.NumChans)), nil
	}
}
