package error

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

type ServiceError int

const (
	ErrTransportError ServiceError = iota + 1
	ErrDecodeError
	ErrSetupError
	ErrRepositoryError
	ErrPublishError
	ErrDatabaseError
	ErrInternalError
	ErrBusinessError
)

func (e ServiceError) Error() string {
	switch e {
	case ErrTransportError:
		return "Transport Error"
	case ErrDecodeError:
		return "Decode Error"
	case ErrSetupError:
		return "Setup Error"
	case ErrRepositoryError:
		return "Repository Error"
	case ErrPublishError:
		return "Publish Error"
	case ErrDatabaseError:
		return "Database Error"
	case ErrInternalError:
		return "Internal Error"
	case ErrBusinessError:
		return "Error"
	default:
		return "Unknown Service Error"
	}
}

type ErrorDetails struct {
	Code      ServiceError
	Msg       string
	Op        string
	Status    int
	Cause     error
	OccuredAt time.Time
	Trace     []string
}

func (e *ErrorDetails) Error() string {
	base := e.Code.Error()
	if e.Msg != "" {
		base = base + ": " + e.Msg
	}
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	return base
}

func (e *ErrorDetails) TraceString() string {
	if len(e.Trace) == 0 {
		return e.Op
	}
	return strings.Join(e.Trace, ": ")
}

func (e *ErrorDetails) Is(target error) bool {
	if code, ok := target.(ServiceError); ok {
		return e.Code == code
	}
	return errors.Is(e.Cause, target)
}

func (e *ErrorDetails) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s\n", e.Error())
			if e.Status != 0 {
				fmt.Fprintf(s, "status: %d\n", e.Status)
			}
			if ts := e.TraceString(); ts != "" {
				fmt.Fprintf(s, "trace: %s\n", ts)
			}
			if e.Cause != nil {
				fmt.Fprintf(s, "cause: %+v\n", e.Cause)
			}
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

func (e *ErrorDetails) Unwrap() error {
	return e.Cause
}

func New(code ServiceError, opts ...func(*ErrorDetails)) *ErrorDetails {
	err := &ErrorDetails{Code: code}
	for _, opt := range opts {
		opt(err)
	}
	return err
}

func Newf(code ServiceError, format string, args ...any) *ErrorDetails {
	return New(code, WithMsg(fmt.Sprintf(format, args...)))
}

func WithMsg(msg string) func(*ErrorDetails) {
	return func(ed *ErrorDetails) { ed.Msg = msg }
}

func WithOp(op string) func(*ErrorDetails) {
	return func(ed *ErrorDetails) {
		ed.Op = op
		ed.Trace = append(ed.Trace, op)
	}
}

func WithStatus(status int) func(*ErrorDetails) {
	return func(ed *ErrorDetails) { ed.Status = status }
}

func WithCause(err error) func(*ErrorDetails) {
	return func(ed *ErrorDetails) { ed.Cause = err }
}

func WithTime(t time.Time) func(*ErrorDetails) {
	return func(ed *ErrorDetails) { ed.OccuredAt = t }
}

func AddOp(err error, op string) error {
	if err == nil {
		return nil
	}

	var ed *ErrorDetails
	if errors.As(err, &ed) {
		ed.Op = op
		ed.Trace = append(ed.Trace, op)
		return ed
	}

	return fmt.Errorf("%s: %w", op, err)
}

// Kind maps an error to a short label suitable for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrTransportError):
		return "transport"
	case errors.Is(err, ErrDecodeError):
		return "decode"
	case errors.Is(err, ErrSetupError):
		return "setup"
	default:
		return "internal"
	}
}
