package watcher

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/fsnotify/fsnotify"
)

// ErrorCode identifies why a watch session could not be initialized.
// The numeric values are stable: they cross process boundaries.
type ErrorCode int

const (
	CodeGeneric ErrorCode = iota
	CodeIo
	CodePathNotFound
	CodeWatchNotFound
	CodeInvalidConfig
	CodeMaxFilesWatch
)

var codeNames = map[ErrorCode]string{
	CodeGeneric:       "Generic",
	CodeIo:            "Io",
	CodePathNotFound:  "PathNotFound",
	CodeWatchNotFound: "WatchNotFound",
	CodeInvalidConfig: "InvalidConfig",
	CodeMaxFilesWatch: "MaxFilesWatch",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ParseErrorCode maps a code name back to its ErrorCode.
func ParseErrorCode(name string) (ErrorCode, bool) {
	for code, n := range codeNames {
		if n == name {
			return code, true
		}
	}
	return CodeGeneric, false
}

var (
	// ErrTimeout is returned by Source.Next when no event arrived within the timeout.
	ErrTimeout = errors.New("watcher: receive timed out")

	// ErrSourceClosed is returned by Source.Next once the backend stopped delivering.
	ErrSourceClosed = errors.New("watcher: event source closed")

	// ErrAlreadyStarted is returned when a Controller is asked to run a second session.
	ErrAlreadyStarted = errors.New("watcher: session already started")
)

// InitError reports a failure to establish the watch. It is fatal to the
// session and is reported to the Notifier exactly once.
type InitError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *InitError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return e.Code.String()
	}
}

func (e *InitError) Unwrap() error { return e.Err }

func invalidConfig(format string, args ...any) *InitError {
	return &InitError{Code: CodeInvalidConfig, Message: fmt.Sprintf(format, args...)}
}

// classifyInitError translates a backend error into an InitError.
func classifyInitError(err error) *InitError {
	if err == nil {
		return nil
	}
	var initErr *InitError
	if errors.As(err, &initErr) {
		return initErr
	}

	code := CodeGeneric
	switch {
	case isWatchLimit(err):
		code = CodeMaxFilesWatch
	case errors.Is(err, fs.ErrNotExist):
		code = CodePathNotFound
	case errors.Is(err, fsnotify.ErrNonExistentWatch):
		code = CodeWatchNotFound
	case errors.Is(err, fs.ErrPermission), isPathError(err):
		code = CodeIo
	}

	ie := &InitError{Code: code, Err: err}
	if code == CodeGeneric {
		ie.Message = err.Error()
	}
	return ie
}

func isPathError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
