package client

import (
	"context"
	"encoding/binary"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/tts"
)

// countingProvider 按顺序产出 chunks，failAfter >= 0 时在产出该数量的块后失败。
type countingProvider struct {
	name      string
	chunks    [][]byte
	failAfter int
	calls     int
	lastText  string
	lastVoice string
}

func newCounting(chunks ...string) *countingProvider {
	p := &countingProvider{name: "fake", failAfter: -1}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
	return p
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	p.calls++
	p.lastText, p.lastVoice = text, voiceID
	return func(yield func([]byte, error) bool) {
		for i, c := range p.chunks {
			if i == p.failAfter {
				yield(nil, errors.New("connection reset"))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func testConfig() *config.Config {
	return config.Default()
}

func TestConvert_Concatenates(t *testing.T) {
	p := newCounting("AB", "CD")
	c, err := New("你好世界", WithVoice("xiaoyan"), WithProvider(p), WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.wav")
	data, err := c.Convert(context.Background(), out)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if string(data) != "ABCD" {
		t.Errorf("data = %q, want ABCD", data)
	}
	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(written) != "ABCD" {
		t.Errorf("file = %q, want ABCD", written)
	}
	if p.lastText != "你好世界" || p.lastVoice != "xiaoyan" {
		t.Errorf("provider got (%q, %q)", p.lastText, p.lastVoice)
	}
}

func TestConvert_NoOutputPath(t *testing.T) {
	c, _ := New("hello", WithProvider(newCounting("A", "B")), WithConfig(testConfig()))
	data, err := c.Convert(context.Background(), "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if string(data) != "AB" {
		t.Errorf("data = %q, want AB", data)
	}
}

func TestConvert_FailureLeavesNoFile(t *testing.T) {
	p := newCounting("1", "2", "3", "4", "5")
	p.failAfter = 2

	var events []Result
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()), WithCallback(func(r Result) {
		events = append(events, r)
	}))

	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	data, err := c.Convert(context.Background(), out)
	if !errors.Is(err, tts.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != tts.ErrTransport {
		t.Errorf("expected *Error with Kind ErrTransport, got %#v", err)
	}
	if data != nil {
		t.Errorf("expected nil data, got %q", data)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file should not exist, stat err = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	last := events[2]
	if last.Type != ResultError || last.Message == "" || last.Progress != 2 {
		t.Errorf("terminal event = %+v", last)
	}
}

func TestConvert_EmptyTextNeverCallsProvider(t *testing.T) {
	p := newCounting("AB")
	var events []Result
	c, err := New("", WithProvider(p), WithConfig(testConfig()), WithCallback(func(r Result) {
		events = append(events, r)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Convert(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	if !errors.Is(err, tts.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}
	if len(events) != 1 || events[0].Type != ResultError {
		t.Errorf("events = %+v, want a single error event", events)
	}
}

func TestConvert_TwiceInvokesProviderTwice(t *testing.T) {
	p := newCounting("AB")
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()))
	for i := 0; i < 2; i++ {
		if _, err := c.Convert(context.Background(), ""); err != nil {
			t.Fatalf("Convert %d: %v", i, err)
		}
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}
}

func TestConvert_NoAudioIsTransportError(t *testing.T) {
	c, _ := New("hello", WithProvider(newCounting()), WithConfig(testConfig()))
	if _, err := c.Convert(context.Background(), ""); !errors.Is(err, tts.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestConvert_WriteFailureReturnsAudio(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	var last Result
	c, _ := New("hello", WithProvider(newCounting("AB")), WithConfig(testConfig()), WithCallback(func(r Result) {
		last = r
	}))
	data, err := c.Convert(context.Background(), filepath.Join(blocker, "out.wav"))
	if !errors.Is(err, tts.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if string(data) != "AB" {
		t.Errorf("data = %q, want AB", data)
	}
	if last.Type != ResultError {
		t.Errorf("terminal event = %+v, want error", last)
	}
}

type pcmProvider struct{ countingProvider }

func (p *pcmProvider) Format() audio.Format { return audio.PCM16(16000, 1) }

func TestConvert_WrapsPCM(t *testing.T) {
	p := &pcmProvider{countingProvider: *newCounting("\x01\x00\x02\x00")}
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()))

	out := filepath.Join(t.TempDir(), "out.wav")
	data, err := c.Convert(context.Background(), out)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(data) != 4 {
		t.Errorf("returned data should be raw PCM, got %d bytes", len(data))
	}
	written, _ := os.ReadFile(out)
	if len(written) <= 4 || string(written[:4]) != "RIFF" {
		t.Errorf("expected WAV file, got %q", written)
	}
}

// lateRateProvider 在合成过程中才得知实际采样率。
type lateRateProvider struct {
	countingProvider
	rate int
}

func (p *lateRateProvider) Format() audio.Format { return audio.PCM16(p.rate, 1) }

func (p *lateRateProvider) Synthesize(ctx context.Context, text, voiceID string) iter.Seq2[[]byte, error] {
	inner := p.countingProvider.Synthesize(ctx, text, voiceID)
	return func(yield func([]byte, error) bool) {
		p.rate = 16000
		inner(yield)
	}
}

func TestConvert_UsesFormatKnownAfterSynthesis(t *testing.T) {
	p := &lateRateProvider{countingProvider: *newCounting("\x01\x00\x02\x00"), rate: 22050}
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()))

	out := filepath.Join(t.TempDir(), "out.wav")
	if _, err := c.Convert(context.Background(), out); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(written) < 28 {
		t.Fatalf("WAV too short: %d bytes", len(written))
	}
	if rate := binary.LittleEndian.Uint32(written[24:28]); rate != 16000 {
		t.Errorf("WAV header sample rate = %d, want 16000", rate)
	}
}

func TestStart_EventOrdering(t *testing.T) {
	p := newCounting("A", "BC", "DEF")
	var events []Result
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()), WithCallback(func(r Result) {
		events = append(events, r)
	}))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	var prev int64
	for i, e := range events[:3] {
		if e.Type != ResultProcessing {
			t.Errorf("event %d type = %v, want processing", i, e.Type)
		}
		if e.Progress < prev {
			t.Errorf("event %d progress %d < %d", i, e.Progress, prev)
		}
		if e.Chunks != i+1 {
			t.Errorf("event %d chunks = %d", i, e.Chunks)
		}
		prev = e.Progress
	}
	final := events[3]
	if final.Type != ResultCompleted || final.Progress != 6 || final.Audio != nil {
		t.Errorf("terminal event = %+v", final)
	}
	for _, e := range events[:3] {
		if e.Terminal() {
			t.Error("processing event reported as terminal")
		}
	}
}

func TestStart_Failure(t *testing.T) {
	p := newCounting("A", "B")
	p.failAfter = 1
	var events []Result
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()), WithCallback(func(r Result) {
		events = append(events, r)
	}))

	if err := c.Start(context.Background()); !errors.Is(err, tts.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	terminals := 0
	for _, e := range events {
		if e.Terminal() {
			terminals++
		}
	}
	if terminals != 1 || events[len(events)-1].Type != ResultError {
		t.Errorf("events = %+v, want exactly one trailing error event", events)
	}
}

func TestEvents_EarlyBreak(t *testing.T) {
	p := newCounting("A", "B", "C")
	c, _ := New("hello", WithProvider(p), WithConfig(testConfig()))

	n := 0
	for e := range c.Events(context.Background()) {
		if e.Type != ResultProcessing {
			t.Fatalf("unexpected event %+v", e)
		}
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("received %d events, want 2", n)
	}
}

func TestEvents_Complete(t *testing.T) {
	c, _ := New("hello", WithProvider(newCounting("A", "B")), WithConfig(testConfig()))
	var types []ResultType
	for e := range c.Events(context.Background()) {
		types = append(types, e.Type)
	}
	want := []ResultType{ResultProcessing, ResultProcessing, ResultCompleted}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %v, want %v", i, types[i], want[i])
		}
	}
}

func TestNew_Resolution(t *testing.T) {
	explicit := newCounting("X")
	named := newCounting("Y")
	named.name = "named"

	reg := tts.NewRegistry(testConfig())
	reg.Register("named", func(cfg *config.Config) (tts.Provider, error) { return named, nil })
	reg.Register("stream", func(cfg *config.Config) (tts.Provider, error) {
		p := newCounting("Z")
		p.name = "default"
		return p, nil
	})

	// 显式实例优先于名称
	c, err := New("hi", WithProvider(explicit), WithProviderName("named"), WithRegistry(reg), WithConfig(testConfig()))
	if err != nil || c.Provider() != explicit {
		t.Errorf("explicit provider not chosen: %v", err)
	}

	c, err = New("hi", WithProviderName("named"), WithURL("http://localhost:1/tts"), WithRegistry(reg), WithConfig(testConfig()))
	if err != nil || c.Provider() != named {
		t.Errorf("named provider not chosen: %v", err)
	}

	c, err = New("hi", WithURL("http://localhost:1/tts_stream"), WithRegistry(reg), WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	sp, ok := c.Provider().(*tts.StreamProvider)
	if !ok || sp.URL() != "http://localhost:1/tts_stream" {
		t.Errorf("url override not honoured: %T", c.Provider())
	}

	c, err = New("hi", WithRegistry(reg), WithConfig(testConfig()))
	if err != nil || c.Provider().Name() != "default" {
		t.Errorf("default provider not chosen: %v", err)
	}
}

func TestNew_ResolutionErrors(t *testing.T) {
	reg := tts.NewRegistry(testConfig())
	_, err := New("hi", WithProviderName("nonexistent"), WithRegistry(reg), WithConfig(testConfig()))
	if !errors.Is(err, tts.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != tts.ErrNotFound {
		t.Errorf("expected *Error with Kind ErrNotFound, got %#v", err)
	}

	_, err = New("hi", WithURL("ftp://example.com"), WithConfig(testConfig()))
	if !errors.Is(err, tts.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestNew_VoiceDefaults(t *testing.T) {
	cfg := testConfig()
	c, _ := New("hi", WithProvider(newCounting("A")), WithConfig(cfg))
	if c.Voice() != "xiaoyan" {
		t.Errorf("voice = %q, want xiaoyan", c.Voice())
	}

	cfg.Voice = "xiaofeng"
	c, _ = New("hi", WithProvider(newCounting("A")), WithConfig(cfg))
	if c.Voice() != "xiaofeng" {
		t.Errorf("voice = %q, want xiaofeng", c.Voice())
	}

	c, _ = New("hi", WithProvider(newCounting("A")), WithConfig(cfg), WithVoice("aisjiuxu"))
	if c.Voice() != "aisjiuxu" {
		t.Errorf("voice = %q, want aisjiuxu", c.Voice())
	}
}

func TestNew_EnvironmentConfig(t *testing.T) {
	t.Setenv("TTS_SPK_ID", "xiaomei")
	t.Setenv("TTS_URL", "http://127.0.0.1:9/tts_stream")
	t.Setenv("TTS_PROVIDER", "")

	c, err := New("hi")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Voice() != "xiaomei" {
		t.Errorf("voice = %q, want xiaomei", c.Voice())
	}
	sp, ok := c.Provider().(*tts.StreamProvider)
	if !ok || sp.URL() != "http://127.0.0.1:9/tts_stream" {
		t.Errorf("provider = %T, want stream provider using TTS_URL", c.Provider())
	}
}

func TestConvert_StreamProviderEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	c, err := New("你好", WithURL(srv.URL+"/tts_stream"), WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := filepath.Join(t.TempDir(), "out.wav")
	if _, err := c.Convert(context.Background(), out); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	written, _ := os.ReadFile(out)
	if string(written) != "RIFFdata" {
		t.Errorf("file = %q", written)
	}
}

// closingProvider 记录是否被关闭。
type closingProvider struct {
	countingProvider
	closed bool
}

func (p *closingProvider) Close() error {
	p.closed = true
	return nil
}

func TestClose_OwnedRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = "stream"
	c, err := New("hi", WithConfig(cfg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !c.ownsRegistry {
		t.Fatal("client should own the registry it created")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.registry != nil {
		t.Error("owned registry should be released after Close")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestClose_CallerRegistryUntouched(t *testing.T) {
	p := &closingProvider{countingProvider: *newCounting("A")}
	reg := tts.NewRegistry(testConfig())
	reg.Register("closer", func(cfg *config.Config) (tts.Provider, error) { return p, nil })

	c, err := New("hi", WithRegistry(reg), WithProviderName("closer"), WithConfig(testConfig()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.closed {
		t.Error("Close should not close providers of a caller-supplied registry")
	}
	if err := reg.Close(); err != nil || !p.closed {
		t.Errorf("registry Close: err=%v closed=%v", err, p.closed)
	}
}
