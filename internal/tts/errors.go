package tts

import "errors"

// 错误分类。具体错误通过 fmt.Errorf("%w: ...") 包装这些哨兵值，
// 调用方用 errors.Is 判断类别。
var (
	// ErrConfiguration 表示构造 provider 时缺少或存在无效的配置（URL、密钥、模型路径等）。
	ErrConfiguration = errors.New("配置错误")
	// ErrNotFound 表示请求的 provider 名称未注册。
	ErrNotFound = errors.New("provider 未注册")
	// ErrTransport 表示合成过程中的网络、服务端或子进程失败。
	ErrTransport = errors.New("合成失败")
	// ErrInput 表示文本为空、输入文件缺失等调用前即可发现的问题。
	ErrInput = errors.New("输入无效")
	// ErrIO 表示合成成功但写出音频文件失败。
	ErrIO = errors.New("文件写入失败")
)
