package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/quiz-site/internal/domain/entity"
	"github.com/yourusername/quiz-site/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-site/internal/pkg/errors"
)

// AuthService предоставляет методы для регистрации и аутентификации пользователей
type AuthService struct {
	userRepo     repository.UserRepository
	emailService EmailService
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(userRepo repository.UserRepository, emailService EmailService) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if emailService == nil {
		emailService = &NoopEmailService{}
	}

	return &AuthService{
		userRepo:     userRepo,
		emailService: emailService,
	}, nil
}

// RegisterUser регистрирует нового пользователя.
// Пароль хешируется bcrypt-ом в хуке entity.User.BeforeSave; plaintext в БД
// не попадает. Предварительные проверки email и username дают понятную
// ошибку, а уникальные индексы в БД закрывают гонку конкурентных регистраций.
func (s *AuthService) RegisterUser(username, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", apperrors.ErrValidation)
	}

	// Проверяем, существует ли пользователь с таким email
	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	// Проверяем и username тоже: уникальны оба поля
	_, err = s.userRepo.GetByUsername(username)
	if err == nil {
		return nil, fmt.Errorf("%w: user with this username already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}

	user := &entity.User{
		Username: username,
		Email:    email,
		Password: password,
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Приветственное письмо не влияет на исход регистрации
	go func() {
		if err := s.emailService.SendWelcome(context.Background(), user.Email, user.Username); err != nil {
			log.Printf("[AuthService] Ошибка отправки приветственного письма для ID=%d: %v", user.ID, err)
		}
	}()

	return user, nil
}

// AuthenticateUser проверяет учетные данные пользователя.
// "Пользователь не найден" и "пароль не подошел" снаружи неразличимы,
// чтобы не раскрывать существование аккаунта.
func (s *AuthService) AuthenticateUser(email, password string) (*entity.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !user.CheckPassword(password) {
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}

	return user, nil
}

// GetUserByID возвращает пользователя по ID (восстановление принципала сессии)
func (s *AuthService) GetUserByID(id uint) (*entity.User, error) {
	return s.userRepo.GetByID(id)
}

// normalizeEmail приводит email к каноничному виду для поиска и хранения
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
