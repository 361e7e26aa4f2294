package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iabetor/text-to-speech/internal/audio"
	"github.com/iabetor/text-to-speech/internal/client"
	"github.com/iabetor/text-to-speech/internal/config"
	"github.com/iabetor/text-to-speech/internal/input"
	"github.com/iabetor/text-to-speech/internal/logger"
	"github.com/iabetor/text-to-speech/internal/tts"
)

// options 是命令行参数。
type options struct {
	inputFile     string
	output        string
	spkID         string
	provider      string
	ttsURL        string
	configPath    string
	encoding      string
	logFile       string
	verbose       bool
	play          bool
	listProviders bool
	listVoices    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "text-to-speech [text]",
		Short: "把文本合成为语音文件",
		Long: `把文本合成为语音文件。

文本可以直接作为参数传入，也可以用 -i 从文件读取。
后端通过 -p 选择（stream、edge、tencent、piper、say、local），默认使用流式 HTTP 服务。

环境变量：
  TTS_URL             流式 TTS 服务地址
  TTS_SPK_ID          默认说话人
  TTS_PROVIDER        默认后端
  TTS_LOG_LEVEL       日志级别（debug、info、warn、error）
当前目录下的 .env 文件会在启动时加载，命令行参数优先于环境变量。`,
		Example: `  text-to-speech "你好世界" -o hello.wav
  text-to-speech -i article.txt --encoding gbk -o article.wav --spk-id xiaoyan
  text-to-speech "你好" -p edge --spk-id xiaoxiao -o hello.mp3 --play
  text-to-speech --list-voices -p edge`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.inputFile, "input", "i", "", "从文件读取待合成文本")
	f.StringVarP(&opts.output, "output", "o", "", "输出音频文件路径")
	f.StringVar(&opts.spkID, "spk-id", config.DefaultVoice, "说话人 ID")
	f.StringVarP(&opts.provider, "provider", "p", "", "TTS 后端名称（默认 "+config.DefaultProvider+"）")
	f.StringVar(&opts.ttsURL, "tts-url", "", "流式 TTS 服务地址（覆盖 TTS_URL）")
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML 配置文件路径")
	f.StringVar(&opts.encoding, "encoding", "utf-8", "输入文件编码（utf-8、gbk、gb18030）")
	f.StringVar(&opts.logFile, "log-file", "", "同时把日志写入该文件（自动轮转）")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")
	f.BoolVar(&opts.play, "play", false, "合成完成后通过默认扬声器播放")
	f.BoolVar(&opts.listProviders, "list-providers", false, "列出可用的 TTS 后端")
	f.BoolVar(&opts.listVoices, "list-voices", false, "列出音色（配合 -p 只列出指定后端）")

	return cmd
}

// loadConfig 依次应用 .env、配置文件、环境变量和命令行参数。
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrConfiguration, err)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrConfiguration, err)
	}

	flags := cmd.Flags()
	if flags.Changed("spk-id") {
		cfg.Voice = opts.spkID
	}
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("tts-url") {
		cfg.Stream.URL = opts.ttsURL
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return fmt.Errorf("%w: %w", tts.ErrConfiguration, err)
	}

	registry := tts.NewDefaultRegistry(cfg)
	defer registry.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if opts.listProviders {
		return printProviders(out, registry)
	}
	if opts.listVoices {
		return printVoices(ctx, out, registry, opts.provider)
	}

	text, err := readText(opts, args)
	if err != nil {
		return err
	}
	if opts.output == "" {
		return fmt.Errorf("%w: 缺少输出路径，请使用 -o 指定", tts.ErrInput)
	}

	clientOpts := []client.Option{
		client.WithConfig(cfg),
		client.WithRegistry(registry),
		client.WithCallback(func(r client.Result) {
			if r.Type == client.ResultProcessing {
				logger.Debugf("[main] 已接收 %d 块，共 %d 字节", r.Chunks, r.Progress)
			}
		}),
	}
	// --tts-url 只在没有显式选择其他后端时生效
	if cmd.Flags().Changed("tts-url") && !cmd.Flags().Changed("provider") {
		clientOpts = append(clientOpts, client.WithURL(opts.ttsURL))
	}

	c, err := client.New(text, clientOpts...)
	if err != nil {
		return err
	}

	data, err := c.Convert(ctx, opts.output)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "已保存: %s (%s)\n", opts.output, describe(data, c.Format()))

	if opts.play {
		return play(ctx, data, c.Format())
	}
	return nil
}

// play 解码并播放合成结果。播放失败不影响已经写出的文件。
func play(ctx context.Context, data []byte, f audio.Format) error {
	pcm, pcmFormat, err := audio.Decode(data, f)
	if err != nil {
		return fmt.Errorf("[main] 无法播放: %w", err)
	}
	player, err := audio.NewPlayer()
	if err != nil {
		return err
	}
	defer player.Close()
	return player.Play(ctx, pcm, pcmFormat)
}

// readText 从参数或文件中取得文本，二者只能选一个。
func readText(opts *options, args []string) (string, error) {
	switch {
	case len(args) > 0 && opts.inputFile != "":
		return "", fmt.Errorf("%w: 文本参数和 -i 不能同时使用", tts.ErrInput)
	case opts.inputFile != "":
		return input.ReadTextFile(opts.inputFile, opts.encoding)
	case len(args) > 0:
		if err := tts.CheckText(args[0]); err != nil {
			return "", err
		}
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: 请提供待合成的文本或使用 -i 指定文件", tts.ErrInput)
	}
}

// describe 生成输出摘要，能探测到时长时一并显示。
func describe(data []byte, f audio.Format) string {
	summary := formatSize(len(data)) + ", " + f.String()
	if info, err := audio.Probe(data, f); err == nil && info.Duration > 0 {
		summary += fmt.Sprintf(", 时长 %.2fs", info.Duration.Seconds())
	}
	return summary
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func printProviders(w io.Writer, registry *tts.Registry) error {
	for _, name := range registry.ListProviders() {
		fmt.Fprintln(w, name)
	}
	return nil
}

func printVoices(ctx context.Context, w io.Writer, registry *tts.Registry, provider string) error {
	var voices []tts.VoiceInfo
	if provider != "" {
		v, err := registry.ListVoices(ctx, provider)
		if err != nil {
			return err
		}
		voices = v
	} else {
		voices = registry.ListAllVoices(ctx)
	}

	if len(voices) == 0 {
		fmt.Fprintln(w, "没有可列出的音色")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tID\tNAME\tLANG\tGENDER\tHASH")
	for _, v := range voices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Provider, v.ID, v.Name, dash(v.Language), dash(v.Gender), v.HashID)
	}
	return tw.Flush()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
