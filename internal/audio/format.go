package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Container 表示 provider 返回的音频字节流的封装格式。
type Container string

const (
	// ContainerWAV 已是完整的 WAV 文件，原样写出。
	ContainerWAV Container = "wav"
	// ContainerMP3 是 MP3 帧流，原样写出。
	ContainerMP3 Container = "mp3"
	// ContainerPCM 是裸 signed 16-bit LE PCM，落盘时补 WAV 头。
	ContainerPCM Container = "pcm"
)

// Format 描述一段音频流的格式。
// 对于 WAV/MP3 采样参数可以为空，由容器自身描述。
type Format struct {
	Container  Container
	SampleRate int
	Channels   int
	BitDepth   int
}

var (
	// FormatWAV 是默认格式：provider 已经返回完整的 WAV 容器。
	FormatWAV = Format{Container: ContainerWAV}
	// FormatMP3 用于返回 MP3 的在线服务（edge 等）。
	FormatMP3 = Format{Container: ContainerMP3}
)

// PCM16 返回指定采样率和声道数的 16-bit PCM 格式。
func PCM16(sampleRate, channels int) Format {
	return Format{
		Container:  ContainerPCM,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
	}
}

// Ext 返回该格式落盘后推荐的文件扩展名（不含点）。
func (f Format) Ext() string {
	if f.Container == ContainerMP3 {
		return "mp3"
	}
	return "wav"
}

// String 实现 fmt.Stringer。
func (f Format) String() string {
	if f.Container == ContainerPCM {
		return fmt.Sprintf("pcm_s%dle/%dHz/%dch", f.BitDepth, f.SampleRate, f.Channels)
	}
	return string(f.Container)
}

// validate 检查 PCM 格式参数是否可以封装为 WAV。
func (f Format) validate() error {
	if f.Container != ContainerPCM {
		return nil
	}
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("[audio] 无效的 PCM 格式: %s", f)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("[audio] 仅支持 16-bit PCM，当前 %d-bit", f.BitDepth)
	}
	return nil
}

// isRawTarget 判断输出路径是否要求保留裸 PCM。
func isRawTarget(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcm", ".raw":
		return true
	}
	return false
}

// MatchesExt 判断输出路径扩展名与音频格式是否一致。
// 不一致时调用方通常只记录警告，本包不做转码。
func MatchesExt(path string, f Format) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return true
	}
	if f.Container == ContainerPCM && (ext == "pcm" || ext == "raw") {
		return true
	}
	return ext == f.Ext()
}
