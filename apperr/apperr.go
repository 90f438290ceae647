// apperr/apperr.go
package apperr

import "errors"

// 错误分类，调用方使用 fmt.Errorf("...: %w", ErrXxx) 包装，用 errors.Is 判断
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthorized       = errors.New("unauthorized")
)
