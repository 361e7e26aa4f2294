package tts

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/mozillazg/go-pinyin"
)

// VoiceInfo 描述一个可选音色，仅用于列举展示；合成时音色 ID 原样交给 provider。
type VoiceInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Language    string `json:"language,omitempty"`
	Gender      string `json:"gender,omitempty"`
	SampleURL   string `json:"sample_url,omitempty"`
	Description string `json:"description,omitempty"`
	// HashID 由 provider 名和原始 ID 派生，跨进程稳定，可以代替原始 ID 作为 --spk-id。
	HashID string `json:"hash_id"`
}

// voiceNamespace 是生成 HashID 用的 UUID 命名空间。
var voiceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("text-to-speech/voices"))

// HashID 计算 provider + 音色 ID 的短哈希。
func HashID(provider, id string) string {
	return strings.ReplaceAll(uuid.NewSHA1(voiceNamespace, []byte(provider+":"+id)).String(), "-", "")[:12]
}

// withHashIDs 为音色列表补全 Provider 和 HashID 字段。
func withHashIDs(provider string, voices []VoiceInfo) []VoiceInfo {
	out := make([]VoiceInfo, len(voices))
	for i, v := range voices {
		v.Provider = provider
		v.HashID = HashID(provider, v.ID)
		out[i] = v
	}
	return out
}

// isHashID 判断 s 是否具有 HashID 的形式（12 位小写十六进制）。
func isHashID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// findByHashID 按 HashID 精确查找音色。
func findByHashID(voices []VoiceInfo, hashID string) (VoiceInfo, bool) {
	for _, v := range voices {
		if v.HashID != "" && v.HashID == hashID {
			return v, true
		}
	}
	return VoiceInfo{}, false
}

// FindVoice 在音色列表中查找 query 对应的音色。匹配顺序：
//  1. 原始 ID（忽略大小写）
//  2. HashID
//  3. 名称或 ID 包含 query
//  4. 中文名称的拼音等于 query（如 "zhiyu" 匹配 "智瑜"）
func FindVoice(voices []VoiceInfo, query string) (VoiceInfo, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return VoiceInfo{}, false
	}

	for _, v := range voices {
		if strings.ToLower(v.ID) == q {
			return v, true
		}
	}
	if v, ok := findByHashID(voices, q); ok {
		return v, true
	}
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), q) || strings.Contains(strings.ToLower(v.ID), q) {
			return v, true
		}
	}

	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			return -1
		}
		return r
	}, q)
	for _, v := range voices {
		if py := namePinyin(v.Name); py != "" && py == compact {
			return v, true
		}
	}
	return VoiceInfo{}, false
}

// namePinyin 返回名称中汉字的无声调拼音拼接，非汉字字符被忽略。
func namePinyin(name string) string {
	args := pinyin.NewArgs()
	return strings.Join(pinyin.LazyConvert(name, &args), "")
}
