package audio

import (
	"encoding/binary"
	"math"
)

// Float32ToInt16 将 [-1.0, 1.0] 范围的 float32 样本转换为 PCM int16，超出范围的样本会被钳位。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// Int16ToBytes 将 int16 样本编码为小端字节。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// Float32ToPCM16 将本地合成引擎输出的 float32 样本直接转换为 16-bit LE PCM 字节。
func Float32ToPCM16(in []float32) []byte {
	return Int16ToBytes(Float32ToInt16(in))
}

// PCM16ToInts 将 16-bit LE PCM 字节解码为 go-audio 使用的 int 样本。
// 末尾不足一个样本的字节被丢弃。
func PCM16ToInts(b []byte) []int {
	n := len(b) / 2
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(int16(binary.LittleEndian.Uint16(b[2*i:])))
	}
	return out
}
