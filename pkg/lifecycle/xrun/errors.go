package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 收到退出信号，可用 errors.Is 判断
	ErrSignal = errors.New("received signal")

	ErrNilFunc   = errors.New("xrun: nil service func")
	ErrNilServer = errors.New("xrun: nil http server")
)

// SignalError 携带触发退出的信号
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("received signal %v", e.Signal)
}

func (e *SignalError) Unwrap() error {
	return ErrSignal
}
