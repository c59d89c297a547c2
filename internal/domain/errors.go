package domain

import (
	"errors"
	"fmt"
)

// ErrorKind класс бизнес-ошибки, отдаётся клиенту как есть
type ErrorKind string

const (
	KindInvalidTransition  ErrorKind = "invalid_transition"
	KindValidation         ErrorKind = "validation_error"
	KindInvalidState       ErrorKind = "invalid_state"
	KindConflict           ErrorKind = "conflict"
	KindNotFound           ErrorKind = "not_found"
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindInternal           ErrorKind = "internal"
)

// ErrorDetail уточнение по конкретному полю
type ErrorDetail struct {
	Path string `json:"path"`
	Info string `json:"info"`
}

// Error бизнес-ошибка: вид + человекочитаемое сообщение
type Error struct {
	Kind    ErrorKind
	Message string
	Details []ErrorDetail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по виду, если у цели нет сообщения (шаблоны ниже)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Шаблоны для errors.Is
var (
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
)

func InvalidTransition(kind CaseKind, from, to Status) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %q to %q", kind, from, to),
	}
}

func Validation(message string, details ...ErrorDetail) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// FieldRequired validation error for a single missing field
func FieldRequired(field string) *Error {
	return Validation(field+" is required", ErrorDetail{Path: field, Info: field + " is required"})
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func StorageUnavailable(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: "storage unavailable", Err: err}
}

// KindOf вид ошибки в цепочке; KindInternal для всего, что не *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
