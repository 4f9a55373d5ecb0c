package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

type ErrorType int

const (
	ErrNoSourceFound ErrorType = iota
	ErrFileRead
	ErrParse
	ErrFileWrite
	ErrRetriesExhausted
	ErrCanceled
	ErrConfig
	ErrUnknown
)

type CTXTransError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *CTXTransError {
	return &CTXTransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *CTXTransError {
	return &CTXTransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *CTXTransError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *CTXTransError) Unwrap() error {
	return e.Cause
}

func (e *CTXTransError) WithContext(key string, value any) *CTXTransError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrNoSourceFound:
		return "NoSourceFound"
	case ErrFileRead:
		return "FileRead"
	case ErrParse:
		return "Parse"
	case ErrFileWrite:
		return "FileWrite"
	case ErrRetriesExhausted:
		return "RetriesExhausted"
	case ErrCanceled:
		return "Canceled"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// Reason is the snake_case form used in results and history.
func (t ErrorType) Reason() Reason {
	switch t {
	case ErrNoSourceFound:
		return ReasonNoSourceFound
	case ErrFileRead:
		return ReasonReadError
	case ErrParse:
		return ReasonParseError
	case ErrFileWrite:
		return ReasonWriteError
	case ErrRetriesExhausted:
		return ReasonRetriesExhausted
	case ErrCanceled:
		return ReasonCanceled
	case ErrConfig:
		return ReasonConfig
	default:
		return ReasonUnknown
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *CTXTransError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

func (h *DefaultErrorHandler) Handle(err error) bool {
	var ctxErr *CTXTransError
	if !errors.As(err, &ctxErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(ctxErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *CTXTransError) string {
	return GetAdvice(err)
}

// GetAdvice returns error handling advice
func GetAdvice(err *CTXTransError) string {
	if err == nil {
		return ""
	}
	switch err.Type {
	case ErrNoSourceFound:
		return "Add a subtitle in the source language, named like sub_<code>.srt, or check --source_language_code"
	case ErrFileRead:
		return "Please check file permissions to ensure read access and verify the file is not corrupted"
	case ErrParse:
		return "Please verify the subtitle is a valid SRT file: numbered entries, timing lines and UTF-8 text"
	case ErrFileWrite:
		return "Please ensure the movie folder is writable and the disk is not full"
	case ErrRetriesExhausted:
		return "The generation server stopped answering; check that Ollama is running and the model is pulled"
	case ErrCanceled:
		return "The run was interrupted; start it again to translate the remaining folders"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var ctxErr *CTXTransError
	if errors.As(err, &ctxErr) {
		return ctxErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *CTXTransError {
	return NewErrorWithCause(errorType, message, err)
}

// SafeExecute runs fn, turning a panic into an ErrUnknown error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
