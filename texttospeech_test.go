package texttospeech

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/iabetor/text-to-speech/internal/config"
)

type abcdProvider struct{ calls int }

func (p *abcdProvider) Name() string { return "abcd" }

func (p *abcdProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	p.calls++
	return func(yield func([]byte, error) bool) {
		if !yield([]byte("AB"), nil) {
			return
		}
		yield([]byte("CD"), nil)
	}
}

func TestTextToSpeech(t *testing.T) {
	p := &abcdProvider{}
	out := filepath.Join(t.TempDir(), "out.wav")

	var results []Result
	data, err := TextToSpeech(context.Background(), "你好世界", out,
		WithProvider(p),
		WithVoice("xiaoyan"),
		WithConfig(config.Default()),
		WithCallback(func(r Result) { results = append(results, r) }))
	if err != nil {
		t.Fatalf("TextToSpeech: %v", err)
	}
	if string(data) != "ABCD" {
		t.Errorf("data = %q, want ABCD", data)
	}
	written, _ := os.ReadFile(out)
	if string(written) != "ABCD" {
		t.Errorf("file = %q, want ABCD", written)
	}
	if len(results) != 3 || results[2].Type != ResultCompleted {
		t.Errorf("results = %+v", results)
	}
}

func TestTextToSpeech_UnknownProvider(t *testing.T) {
	reg := NewRegistry(config.Default())
	reg.Register("abcd", func(cfg *Config) (Provider, error) { return &abcdProvider{}, nil })

	_, err := TextToSpeech(context.Background(), "hi", "", WithRegistry(reg), WithProviderName("missing"), WithConfig(config.Default()))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
