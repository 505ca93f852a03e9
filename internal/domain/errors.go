package domain

import "errors"

var (
	// ErrNotFound 表示仓储查询结果为空。
	ErrNotFound = errors.New("domain: not found")
)

// CodedError 携带稳定错误码的领域校验错误，供 HTTP 层区分展示文案。
type CodedError struct {
	Code    string
	Message string
}

// Error 实现 error 接口。
func (e *CodedError) Error() string {
	return e.Message
}

var (
	// ErrInvalidEnvironment 表示目标环境不存在或不可用。
	ErrInvalidEnvironment = &CodedError{Code: "INVALID_ENVIRONMENT", Message: "environment not found or invalid"}
	// ErrPendingScenarios 表示仍有平台状态未落在完成集合内，收尾被拦截。
	ErrPendingScenarios = &CodedError{Code: "PENDING_SCENARIOS", Message: "environment has pending scenarios"}
	// ErrEnvironmentDone 表示环境已收尾，场景与成员变更均被拒绝。
	ErrEnvironmentDone = &CodedError{Code: "ENVIRONMENT_DONE", Message: "environment already concluded"}
)

// ErrorCode 提取错误码；非 CodedError 返回空字符串。
func ErrorCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
