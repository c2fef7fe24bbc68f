// Package token 签发并校验会话令牌（HS256 JWT）。
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid 令牌无效。签名不符、格式错误、过期都返回该错误，调用方不区分原因。
var ErrInvalid = errors.New("invalid token")

// DefaultTTL 默认有效期 7 天。
const DefaultTTL = 7 * 24 * time.Hour

// Claims 令牌中携带的身份信息。
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// UserID 返回令牌主体。
func (c *Claims) UserID() string { return c.Subject }

// Issuer 令牌签发器。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer 创建签发器，ttl <= 0 时使用 DefaultTTL。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock 替换时钟，用于测试过期逻辑。
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// TTL 返回令牌有效期。
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue 为用户签发令牌，返回令牌字符串与过期时间。
func (i *Issuer) Issue(userID, role string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify 校验令牌并返回其中的身份信息。
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrInvalid
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
