package client

import (
	"errors"
	"fmt"

	"github.com/iabetor/text-to-speech/internal/tts"
)

// kinds 是错误分类的判定顺序。
var kinds = []error{tts.ErrInput, tts.ErrConfiguration, tts.ErrNotFound, tts.ErrTransport, tts.ErrIO}

// Error 是 Client 返回的错误，Kind 为 tts 包中的某个错误分类。
// errors.Is(err, tts.ErrXxx) 仍然可用。
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// wrapError 把任意错误归类为 *Error。没有分类的错误视为合成失败。
func wrapError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return &Error{Kind: kind, Err: err}
		}
	}
	return &Error{Kind: tts.ErrTransport, Err: fmt.Errorf("%w: %w", tts.ErrTransport, err)}
}
