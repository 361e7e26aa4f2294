package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/iabetor/text-to-speech/internal/logger"
)

// Player 使用 malgo (miniaudio) 播放合成结果。
type Player struct {
	ctx    *malgo.AllocatedContext
	mu     sync.Mutex
	closed bool
}

// NewPlayer 创建播放器并初始化音频后端。
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("[audio] 初始化播放上下文失败: %w", err)
	}
	return &Player{ctx: ctx}, nil
}

// Play 通过默认扬声器播放 16-bit PCM。
// 阻塞直到播放完成或 ctx 被取消。
func (p *Player) Play(ctx context.Context, pcm []byte, f Format) error {
	if f.Container != ContainerPCM {
		return fmt.Errorf("[audio] 播放需要 PCM 数据，当前 %s", f)
	}
	if err := f.validate(); err != nil {
		return err
	}
	if len(pcm) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("[audio] 播放器已关闭")
	}
	p.mu.Unlock()

	frameSize := f.Channels * 2
	pos := 0
	done := make(chan struct{}, 1)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.SampleRate)
	deviceConfig.PeriodSizeInFrames = 512
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			need := int(frameCount) * frameSize
			n := 0
			if pos < len(pcm) {
				n = copy(output[:need], pcm[pos:])
				pos += n
			}
			// 数据不足的部分填充静音
			clear(output[n:need])
			if pos >= len(pcm) {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("[audio] 初始化播放设备失败: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("[audio] 启动播放设备失败: %w", err)
	}
	defer device.Stop()

	logger.Debugf("[audio] 开始播放 %d 字节 (%s)", len(pcm), f)
	select {
	case <-ctx.Done():
		logger.Infof("[audio] 播放被取消")
		return ctx.Err()
	case <-done:
		logger.Debugf("[audio] 播放完成")
		return nil
	}
}

// Close 释放音频后端。
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
