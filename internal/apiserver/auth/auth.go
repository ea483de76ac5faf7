// Package auth 用户认证：JWT 会话令牌、密码哈希、Cookie、角色中间件
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"workio/internal/shared/model"
)

// SessionCookie 会话 Cookie 名称
const SessionCookie = "userToken"

// contextKey context 键类型
type contextKey string

const ctxKeyUser contextKey = "auth_user"

// Config 认证配置
type Config struct {
	JWTSecret    string        `yaml:"-"`           // 只从 JWT_SECRET 环境变量读取
	SessionTTL   time.Duration `yaml:"session_ttl"` // 会话有效期，默认 7 天
	CookieSecure bool          `yaml:"cookie_secure"`
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{
		JWTSecret:    "",
		SessionTTL:   7 * 24 * time.Hour,
		CookieSecure: true,
	}
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// 会话令牌
// ============================================================================

// Claims JWT 声明：用户 ID（Subject）是唯一业务声明
// 账号的真实状态每次请求都通过重查用户记录确认，令牌不携带角色等可变信息
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateSessionToken 生成会话令牌
func GenerateSessionToken(cfg Config, userID string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseSessionToken 解析并验证会话令牌
func ParseSessionToken(cfg Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ============================================================================
// Cookie
// ============================================================================

// SetSessionCookie 下发会话 Cookie（HTTP-only, SameSite=Lax）
func SetSessionCookie(w http.ResponseWriter, cfg Config, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie 清除会话 Cookie（登出：无服务端吊销列表，指示客户端丢弃）
func ClearSessionCookie(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithUser 将已认证用户注入 context
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFrom 从 context 获取已认证用户
func UserFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(ctxKeyUser).(*model.User)
	return user
}
