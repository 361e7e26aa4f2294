package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM 是 WAV 头中的 PCM audioFormat 编号。
const wavFormatPCM = 1

// EncodeWAV 把 16-bit PCM 数据封装为 WAV 写入 w。
// go-audio 的编码器需要回写文件头，所以 w 必须可 Seek。
func EncodeWAV(w io.WriteSeeker, pcm []byte, f Format) error {
	if f.Container != ContainerPCM {
		return fmt.Errorf("[audio] %s 不是 PCM 格式，无法封装 WAV", f)
	}
	if err := f.validate(); err != nil {
		return err
	}

	enc := wav.NewEncoder(w, f.SampleRate, f.BitDepth, f.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: f.Channels,
			SampleRate:  f.SampleRate,
		},
		Data:           PCM16ToInts(pcm),
		SourceBitDepth: f.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("[audio] 写入 WAV 数据失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("[audio] 写入 WAV 文件头失败: %w", err)
	}
	return nil
}
