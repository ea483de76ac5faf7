package auth

import (
	"context"
	"fmt"
	"net/http"

	"workio/internal/shared/model"
)

// SessionStore 中间件需要的用户查询接口
type SessionStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticator 基于会话 Cookie 的认证器
//
// 每个受保护请求都重查一次用户记录：被删除的账号立即失效，
// 代价是每请求一次存储查询。
type Authenticator struct {
	store SessionStore
	cfg   Config
}

// NewAuthenticator 创建认证器
func NewAuthenticator(store SessionStore, cfg Config) *Authenticator {
	return &Authenticator{store: store, cfg: cfg}
}

// ResolveSession 将请求中的会话 Cookie 解析为用户
// Cookie 缺失、令牌无效/过期、用户已不存在都返回错误
func (a *Authenticator) ResolveSession(r *http.Request) (*model.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, fmt.Errorf("no session cookie")
	}

	claims, err := ParseSessionToken(a.cfg, cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	user, err := a.store.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve session user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("session user no longer exists")
	}
	return user, nil
}

// RequireCandidate 求职者专属路由中间件
// 未认证返回 401，认证成功但角色不符返回 403
func (a *Authenticator) RequireCandidate(next http.HandlerFunc) http.HandlerFunc {
	return a.require(model.UserTypeCandidate, "Access denied. Candidate access required.", next)
}

// RequireRecruiter 招聘者专属路由中间件
func (a *Authenticator) RequireRecruiter(next http.HandlerFunc) http.HandlerFunc {
	return a.require(model.UserTypeRecruiter, "Access denied. Recruiter access required.", next)
}

func (a *Authenticator) require(userType model.UserType, roleMessage string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.ResolveSession(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Access denied. Please log in.")
			return
		}
		if user.UserType != userType {
			writeError(w, http.StatusForbidden, roleMessage)
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}
