package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-site/internal/middleware"
	apperrors "github.com/yourusername/quiz-site/internal/pkg/errors"
	"github.com/yourusername/quiz-site/internal/service"
	"github.com/yourusername/quiz-site/pkg/auth"
)

// AuthHandler обрабатывает запросы регистрации, входа и выхода
type AuthHandler struct {
	authService    *service.AuthService
	sessionService *auth.SessionService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, sessionService *auth.SessionService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
	}
}

// RegisterForm представляет поля формы регистрации
type RegisterForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

// LoginForm представляет поля формы входа
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// Index отображает главную страницу
func (h *AuthHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

// ShowRegister отображает форму регистрации
func (h *AuthHandler) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

// Register обрабатывает отправку формы регистрации.
// При успехе пользователь сразу аутентифицируется и перенаправляется
// на выбор викторины; ошибка перерисовывает форму с сообщением.
func (h *AuthHandler) Register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": "All fields are required."})
		return
	}

	if form.Username == "" || form.Email == "" || form.Password == "" {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": "All fields are required."})
		return
	}

	user, err := h.authService.RegisterUser(form.Username, form.Email, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			c.HTML(http.StatusConflict, "register.html", gin.H{"Error": "Email or username already registered"})
		case errors.Is(err, apperrors.ErrValidation):
			c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": "All fields are required."})
		default:
			log.Printf("[AuthHandler] Ошибка регистрации: %v", err)
			renderServerError(c)
		}
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d (%s) успешно зарегистрирован", user.ID, user.Email)

	if err := h.startSession(c, user.ID); err != nil {
		log.Printf("[AuthHandler] Ошибка создания сессии после регистрации для ID=%d: %v", user.ID, err)
		renderServerError(c)
		return
	}

	c.Redirect(http.StatusFound, "/select_quiz")
}

// ShowLogin отображает форму входа
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// Login обрабатывает отправку формы входа
func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"Error": "Please fill in all fields."})
		return
	}

	if form.Email == "" || form.Password == "" {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"Error": "Please fill in all fields."})
		return
	}

	user, err := h.authService.AuthenticateUser(form.Email, form.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid email or password"})
			return
		}
		log.Printf("[AuthHandler] Ошибка входа: %v", err)
		renderServerError(c)
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		log.Printf("[AuthHandler] Ошибка создания сессии для ID=%d: %v", user.ID, err)
		renderServerError(c)
		return
	}

	c.Redirect(http.StatusFound, "/select_quiz")
}

// Logout отзывает сессионный токен и удаляет куку
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.SessionClaims(c); ok {
		if err := h.sessionService.InvalidateToken(claims); err != nil {
			// Кука все равно удаляется; токен доживет до exp
			log.Printf("[AuthHandler] Ошибка отзыва токена jti=%s: %v", claims.ID, err)
		}
	}
	h.sessionService.ClearSessionCookie(c.Writer)
	c.Redirect(http.StatusFound, "/login")
}

// startSession выпускает сессионный токен и устанавливает куку
func (h *AuthHandler) startSession(c *gin.Context, userID uint) error {
	token, err := h.sessionService.IssueToken(userID)
	if err != nil {
		return err
	}
	h.sessionService.SetSessionCookie(c.Writer, token)
	return nil
}

// renderServerError отображает общую страницу ошибки, не раскрывая деталей
func renderServerError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"Message": "Something went wrong. Please try again.",
	})
}
