package utils

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"       // 请求字段缺失或格式错误，客户端错误
	KindNotFound        ErrorKind = "not_found"        // 销售员、CRM映射或聚合记录不存在，客户端错误
	KindExternalService ErrorKind = "external_service" // HR/CRM调用失败，服务端错误
	KindComputation     ErrorKind = "computation"      // 奖金计算无法进行（例如成交概率为0），服务端错误
)

// 可与errors.Is配合使用的哨兵错误
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrExternalService = errors.New("external service error")
	ErrComputation     = errors.New("computation error")
)

// AppError 带分类的业务错误
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrNotFound) 这类判断按分类生效
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrExternalService:
		return e.Kind == KindExternalService
	case ErrComputation:
		return e.Kind == KindComputation
	}
	return false
}

// ValidationError 创建校验错误
func ValidationError(format string, args ...interface{}) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 创建未找到错误
func NotFoundError(format string, args ...interface{}) error {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ExternalServiceError 包装外部系统错误，保留原始错误信息用于诊断
func ExternalServiceError(err error, format string, args ...interface{}) error {
	return &AppError{Kind: KindExternalService, Message: fmt.Sprintf(format, args...), Err: err}
}

// ComputationError 创建计算错误
func ComputationError(format string, args ...interface{}) error {
	return &AppError{Kind: KindComputation, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误分类，非AppError返回空字符串
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
