package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yourusername/quiz-site/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-site/internal/pkg/errors"
)

// SessionCookieName - имя HttpOnly куки с сессионным токеном
const SessionCookieName = "quiz_session"

// SessionClaims содержит полезную нагрузку сессионного токена.
// В токене нет ничего, кроме идентификатора пользователя и идентификатора
// самого токена (jti): ни хеша пароля, ни других секретов.
type SessionClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionService выпускает и проверяет сессионные токены.
// Токен - подписанный HS256 JWT в HttpOnly куке; отзыв (logout) реализован
// через InvalidTokenRepository, где jti хранится до истечения токена.
type SessionService struct {
	secret           []byte
	ttl              time.Duration
	invalidTokenRepo repository.InvalidTokenRepository
	secureCookies    bool
}

// NewSessionService создает новый сервис сессий и возвращает ошибку при проблемах
func NewSessionService(secret string, ttl time.Duration, invalidTokenRepo repository.InvalidTokenRepository, secureCookies bool) (*SessionService, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required for SessionService")
	}
	if invalidTokenRepo == nil {
		return nil, fmt.Errorf("InvalidTokenRepository is required for SessionService")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &SessionService{
		secret:           []byte(secret),
		ttl:              ttl,
		invalidTokenRepo: invalidTokenRepo,
		secureCookies:    secureCookies,
	}, nil
}

// TTL возвращает настроенное время жизни сессии
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// IssueToken выпускает сессионный токен для пользователя
func (s *SessionService) IssueToken(userID uint) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
// Отозванные токены (после logout) отклоняются.
func (s *SessionService) ParseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	invalidated, err := s.invalidTokenRepo.IsInvalidated(claims.ID)
	if err != nil {
		// Хранилище недоступно: отклоняем сессию, а не пропускаем отозванный токен
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, apperrors.ErrUnauthorized
	}

	return claims, nil
}

// InvalidateToken отзывает токен до его естественного истечения
func (s *SessionService) InvalidateToken(claims *SessionClaims) error {
	if claims == nil || claims.ID == "" {
		return errors.New("claims with jti are required")
	}
	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	return s.invalidTokenRepo.Invalidate(claims.ID, ttl)
}

// SetSessionCookie устанавливает HttpOnly куку с сессионным токеном
func (s *SessionService) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie удаляет сессионную куку
func (s *SessionService) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest извлекает сессионный токен из куки запроса
func TokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrUnauthorized
	}
	return cookie.Value, nil
}
