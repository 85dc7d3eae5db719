package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookieName: cookie с непрозрачным идентификатором сессии входа
	SessionCookieName = "admin_session"
	sessionIDKey      = "session_id"
)

// SessionCookie гарантирует, что у запроса есть идентификатор сессии.
// Отсутствующий или некорректный идентификатор заменяется новым uuid.
func SessionCookie(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookieName)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			SetSessionCookie(c, sid, secure)
		}
		c.Set(sessionIDKey, sid)
		c.Next()
	}
}

// SetSessionCookie выставляет cookie сессии (например, после смены идентификатора при входе)
func SetSessionCookie(c *gin.Context, sid string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, sid, 0, "/", "", secure, true)
	c.Set(sessionIDKey, sid)
}

// SessionID возвращает идентификатор сессии, выставленный SessionCookie
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
