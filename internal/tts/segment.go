package tts

import (
	"strings"
	"unicode/utf8"
)

// sentenceEnders 是切分句子使用的标点。
var sentenceEnders = []rune{'。', '！', '？', '；', '.', '!', '?', ';', '\n'}

// extractSentence 尝试从文本中提取第一个完整句子。
func extractSentence(text string) (string, string, bool) {
	for i, r := range text {
		for _, ender := range sentenceEnders {
			if r == ender {
				splitAt := i + utf8.RuneLen(r)
				return text[:splitAt], text[splitAt:], true
			}
		}
	}
	return "", text, false
}

// splitRunes 把超长文本按字符数硬切分。
func splitRunes(s string, maxChars int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > maxChars {
		out = append(out, string(runes[:maxChars]))
		runes = runes[maxChars:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// Segment 将文本按句切分后合并为若干段，每段不超过 maxChars 个字符。
// 单句超过 maxChars 时按字符硬切。用于单次请求有长度上限的后端（如腾讯云）。
func Segment(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 100
	}

	var segments []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			segments = append(segments, s)
		}
		current.Reset()
	}

	add := func(sentence string) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			return
		}
		sentenceLen := utf8.RuneCountInString(sentence)
		if sentenceLen > maxChars {
			flush()
			parts := splitRunes(sentence, maxChars)
			segments = append(segments, parts[:len(parts)-1]...)
			current.WriteString(parts[len(parts)-1])
			return
		}
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+sentenceLen > maxChars {
			flush()
		}
		current.WriteString(sentence)
	}

	remaining := text
	for {
		sentence, rest, found := extractSentence(remaining)
		if !found {
			add(remaining)
			break
		}
		remaining = rest
		add(sentence)
	}
	flush()
	return segments
}
