package service

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal"
)

// ServiceError 业务层错误。Message 面向用户，Err 保留原始原因供 errors.Is/As 使用。
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewServiceError(code ErrorCode, message string) error {
	return &ServiceError{Code: code, Message: message}
}

func NewValidationError(message string) error {
	return NewServiceError(ErrorCodeValidation, message)
}

// WrapValidationError 以 err 的文本作为提示信息，同时保留 err 本身。
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Code: ErrorCodeValidation, Message: err.Error(), Err: err}
}

func NewUnauthorizedError(message string) error {
	return NewServiceError(ErrorCodeUnauthorized, message)
}

func NewForbiddenError(message string) error {
	return NewServiceError(ErrorCodeForbidden, message)
}

func NewConflictError(message string) error {
	return NewServiceError(ErrorCodeConflict, message)
}

func NewNotFoundError(message string) error {
	return NewServiceError(ErrorCodeNotFound, message)
}

func NewInternalError(message string) error {
	return NewServiceError(ErrorCodeInternal, message)
}

// WrapInternalError 用户只看到 message，原始错误保留在链上。
func WrapInternalError(message string, err error) error {
	return &ServiceError{Code: ErrorCodeInternal, Message: message, Err: err}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}

// IsValidation 判断错误是否属于提交校验失败。
func IsValidation(err error) bool {
	serviceErr, ok := AsServiceError(err)
	return ok && serviceErr.Code == ErrorCodeValidation
}
