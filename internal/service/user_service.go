package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/postr/internal/auth"
	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/pkg/logger"
)

// RegisterInput 注册参数
type RegisterInput struct {
	Username string
	Email    string
	Name     string
	Password string
}

// LoginResult 登录成功返回用户 ID 与会话令牌
type LoginResult struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// UserService 凭证存储：注册、登录、用户查询
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (bool, error)
	Login(ctx context.Context, username, email, password string) (*LoginResult, error)
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

type userService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager) UserService {
	return &userService{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (bool, error) {
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		logger.Error("hash password during registration", zap.String("username", in.Username), zap.Error(err))
		return false, fmt.Errorf("%w: %v", ErrServer, err)
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		HashPassword: digest,
		CreatedAt:    s.now().UTC(),
	}
	// 唯一性由数据库约束保证，不做预查询
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logger.Warn("registration conflict", zap.String("username", in.Username), zap.String("email", in.Email))
			return false, ErrConflict
		}
		return false, mapRepoError(err, "create user")
	}

	logger.Info("user registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return true, nil
}

// Login 用户不存在与密码错误统一返回 ErrNotFound，不暴露具体原因
func (s *userService) Login(ctx context.Context, username, email, password string) (*LoginResult, error) {
	u, err := s.users.FindByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Debug("login failed: unknown identifier", zap.String("username", username), zap.String("email", email))
			return nil, ErrNotFound
		}
		return nil, mapRepoError(err, "find user for login")
	}

	ok, err := s.hasher.Verify(password, u.HashPassword)
	if err != nil {
		logger.Error("verify password", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	if !ok {
		logger.Debug("login failed: wrong password", zap.String("user_id", u.ID))
		return nil, ErrNotFound
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		logger.Error("issue token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	return &LoginResult{ID: u.ID, Token: token}, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "find user")
	}
	return u, nil
}

func (s *userService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, mapRepoError(err, "list users")
	}
	return users, nil
}
