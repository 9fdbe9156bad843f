package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-site/internal/domain/entity"
	"github.com/yourusername/quiz-site/internal/service"
	"github.com/yourusername/quiz-site/pkg/auth"
)

// ContextUserKey - ключ gin-контекста с аутентифицированным пользователем
const ContextUserKey = "current_user"

// ContextClaimsKey - ключ gin-контекста с claims сессионного токена
const ContextClaimsKey = "session_claims"

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	sessionService *auth.SessionService
	authService    *service.AuthService
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(sessionService *auth.SessionService, authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		sessionService: sessionService,
		authService:    authService,
	}
}

// RequireAuth проверяет, аутентифицирован ли пользователь.
// Анонимный запрос перенаправляется на страницу входа; операций "для
// текущего пользователя" без принципала не бывает.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.TokenFromRequest(c.Request)
		if err != nil {
			m.redirectToLogin(c)
			return
		}

		claims, err := m.sessionService.ParseToken(token)
		if err != nil {
			// Невалидная или отозванная сессия: кука больше не нужна
			m.sessionService.ClearSessionCookie(c.Writer)
			m.redirectToLogin(c)
			return
		}

		// Восстанавливаем принципала: токен несет только ID пользователя
		user, err := m.authService.GetUserByID(claims.UserID)
		if err != nil {
			m.sessionService.ClearSessionCookie(c.Writer)
			m.redirectToLogin(c)
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

func (m *AuthMiddleware) redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

// CurrentUser возвращает аутентифицированного пользователя из gin-контекста
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*entity.User)
	return user, ok
}

// SessionClaims возвращает claims сессионного токена из gin-контекста
func SessionClaims(c *gin.Context) (*auth.SessionClaims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.SessionClaims)
	return claims, ok
}
