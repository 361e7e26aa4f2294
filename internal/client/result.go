package client

// ResultType 表示合成事件的类型。
type ResultType int

const (
	// ResultError 是失败的终止事件。
	ResultError ResultType = -1
	// ResultProcessing 表示收到一个音频块。
	ResultProcessing ResultType = 0
	// ResultCompleted 是成功的终止事件。
	ResultCompleted ResultType = 1
)

func (t ResultType) String() string {
	switch t {
	case ResultError:
		return "error"
	case ResultProcessing:
		return "processing"
	case ResultCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Result 是回调收到的进度事件。
// 一次合成产生零个或多个 ResultProcessing 事件，随后恰好一个终止事件（ResultCompleted 或 ResultError）。
type Result struct {
	Type ResultType `json:"type"`
	// Message 仅在 ResultError 时填写。
	Message string `json:"message,omitempty"`
	// Audio 是本次收到的音频块；ResultCompleted 时为拼接后的完整音频（仅 Convert），Start 下为 nil。
	Audio []byte `json:"-"`
	// Progress 是累计收到的字节数，单调不减。
	Progress int64 `json:"progress"`
	// Chunks 是累计收到的音频块数量。
	Chunks int `json:"chunks"`
	// Err 是 ResultError 对应的错误。
	Err error `json:"-"`
}

// Terminal 判断是否为终止事件。
func (r Result) Terminal() bool {
	return r.Type != ResultProcessing
}
