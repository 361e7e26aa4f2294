package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/iabetor/text-to-speech/internal/config"
)

func TestEdgeProvider_ResolveVoice(t *testing.T) {
	p := NewEdgeProvider(config.EdgeConfig{})
	tests := map[string]string{
		"":                                  "zh-CN-XiaoxiaoNeural",
		"default":                           "zh-CN-XiaoxiaoNeural",
		"xiaoyan":                           "zh-CN-XiaoyanNeural",
		"云希":                                "zh-CN-YunxiNeural",
		"ja-JP-NanamiNeural":                "ja-JP-NanamiNeural",
		"nobody-at-all":                     "zh-CN-XiaoxiaoNeural",
		HashID("edge", "zh-CN-YunzeNeural"): "zh-CN-YunzeNeural",
	}
	for in, want := range tests {
		if got := p.resolveVoice(in); got != want {
			t.Errorf("resolveVoice(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEdgeProvider_ConfiguredDefault(t *testing.T) {
	p := NewEdgeProvider(config.EdgeConfig{Voice: "zh-CN-YunjianNeural"})
	if got := p.resolveVoice(""); got != "zh-CN-YunjianNeural" {
		t.Errorf("resolveVoice(\"\") = %q", got)
	}
}

func TestEdgeProvider_ListVoicesIsCopy(t *testing.T) {
	p := NewEdgeProvider(config.EdgeConfig{})
	voices, _ := p.ListVoices(context.Background())
	if len(voices) != len(edgePresetVoices) {
		t.Fatalf("expected %d voices, got %d", len(edgePresetVoices), len(voices))
	}
	voices[0].Name = "changed"
	if edgePresetVoices[0].Name == "changed" {
		t.Error("ListVoices should return a copy")
	}
}

func TestEdgeProvider_EmptyText(t *testing.T) {
	p := NewEdgeProvider(config.EdgeConfig{})
	_, err := collect(t, p.Synthesize(context.Background(), "", "xiaoyan"))
	if !errors.Is(err, ErrInput) {
		t.Errorf("expected ErrInput, got %v", err)
	}
}
