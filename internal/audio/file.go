package audio

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicFile 先写入同目录下的临时文件，成功后再原子 rename 到最终路径，
// 失败时删除临时文件，保证目标路径上不会出现半截音频。
type atomicFile struct {
	file *os.File
	path string
}

func newAtomicFile(finalPath string) (*atomicFile, error) {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("[audio] 创建输出目录失败: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("[audio] 创建临时文件失败: %w", err)
	}
	return &atomicFile{file: f, path: f.Name()}, nil
}

// Commit 刷盘、关闭临时文件并 rename 到最终路径。
func (af *atomicFile) Commit(finalPath string) error {
	if err := af.file.Sync(); err != nil {
		af.Abort()
		return err
	}
	if err := af.file.Chmod(0644); err != nil {
		af.Abort()
		return err
	}
	if err := af.file.Close(); err != nil {
		os.Remove(af.path)
		return err
	}
	af.file = nil
	if err := os.Rename(af.path, finalPath); err != nil {
		os.Remove(af.path)
		return err
	}
	return nil
}

// Abort 放弃写入，关闭并删除临时文件。
func (af *atomicFile) Abort() {
	if af.file != nil {
		af.file.Close()
		af.file = nil
	}
	os.Remove(af.path)
}

// WriteFile 将合成好的音频写到 path。
// PCM 数据会被封装成 WAV（目标扩展名为 .pcm/.raw 时保留裸数据），
// 其余格式原样写出。写入是原子的：要么完整文件出现在 path，要么什么都不留下。
func WriteFile(path string, data []byte, f Format) error {
	af, err := newAtomicFile(path)
	if err != nil {
		return err
	}

	if f.Container == ContainerPCM && !isRawTarget(path) {
		err = EncodeWAV(af.file, data, f)
	} else {
		_, err = af.file.Write(data)
	}
	if err != nil {
		af.Abort()
		return fmt.Errorf("[audio] 写入 %s 失败: %w", path, err)
	}

	if err := af.Commit(path); err != nil {
		return fmt.Errorf("[audio] 保存 %s 失败: %w", path, err)
	}
	return nil
}
