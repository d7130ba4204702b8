package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenExpiry 读取访问令牌中的过期时间
// HR系统签发的令牌如果是JWT，则从exp声明中取得过期时间；
// 这里只解析不验签，令牌的有效性由HR系统自己判断。
// 参数:
//   - tokenString: 访问令牌字符串
//
// 返回:
//   - time.Time: 过期时间
//   - bool: 令牌不是JWT或没有exp声明时返回false
func TokenExpiry(tokenString string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}
