package service

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/postr/internal/auth"
	"github.com/d60-Lab/postr/internal/repository"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("authentication required")
	ErrInvalidToken = auth.ErrInvalidToken
	ErrConflict     = errors.New("username or email already exists")
	ErrPersistence  = errors.New("an error occurred with the database")
	ErrServer       = errors.New("server error")
	ErrCorruptHash  = auth.ErrCorruptHash
	ErrBadRequest   = errors.New("invalid request")
	ErrFollowSelf   = errors.New("cannot follow self")
)

// mapRepoError 把仓储层错误映射为服务层错误；除 NotFound 外一律视为 ErrPersistence。
// 唯一约束冲突只有注册时才是用户可见的 ErrConflict，由 Register 自行判断
func mapRepoError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
}
