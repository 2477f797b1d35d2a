package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"lead-chat/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer 写入并校验 iss 声明
const TokenIssuer = "lead-chat"

// ErrInvalidToken 所有解析失败都包装这个错误
var ErrInvalidToken = errors.New("invalid token")

// 每次调用时读取密钥, 配置可能在包初始化之后才加载
func jwtSecret() []byte {
	return []byte(config.GlobalConfig.JWT.Secret)
}

// Claims 会话令牌, Subject 与 UserID 相同
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken 返回令牌及其过期时间
func GenerateToken(userID uint) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(config.GlobalConfig.JWT.Expiration)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseToken 只接受 HS256, 必须带有过期时间和本服务的签发者
func ParseToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
