package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-site/internal/catalog"
	"github.com/yourusername/quiz-site/internal/domain/entity"
	"github.com/yourusername/quiz-site/internal/middleware"
	apperrors "github.com/yourusername/quiz-site/internal/pkg/errors"
	"github.com/yourusername/quiz-site/internal/service"
	"github.com/yourusername/quiz-site/pkg/auth"
)

// ============================================================================
// In-memory фейки для сквозных тестов обработчиков
// ============================================================================

type fakeUserRepo struct {
	users  map[uint]*entity.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*entity.User), nextID: 1}
}

func (r *fakeUserRepo) Create(user *entity.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return fmt.Errorf("%w: username or email already taken", apperrors.ErrConflict)
		}
	}
	// GORM-хук BeforeSave вне GORM не вызывается, эмулируем хеширование
	if err := user.BeforeSave(nil); err != nil {
		return err
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user with id %d", apperrors.ErrNotFound, id)
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*entity.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, fmt.Errorf("%w: user with email %s", apperrors.ErrNotFound, email)
}

func (r *fakeUserRepo) GetByUsername(username string) (*entity.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, fmt.Errorf("%w: user with username %s", apperrors.ErrNotFound, username)
}

func (r *fakeUserRepo) List(limit, offset int) ([]entity.User, error) {
	out := make([]entity.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, nil
}

type fakeResultRepo struct {
	results []entity.QuizResult
	answers []entity.QuizAnswer
	nextID  uint
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{nextID: 1}
}

func (r *fakeResultRepo) Save(result *entity.QuizResult, answers []entity.QuizAnswer) error {
	result.ID = r.nextID
	r.nextID++
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	r.results = append(r.results, *result)
	r.answers = append(r.answers, answers...)
	return nil
}

func (r *fakeResultRepo) ListByUser(userID uint) ([]entity.QuizResult, error) {
	// Новые результаты первыми, как в боевом репозитории
	out := make([]entity.QuizResult, 0, len(r.results))
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].UserID == userID {
			out = append(out, r.results[i])
		}
	}
	return out, nil
}

type fakeInvalidTokenRepo struct {
	invalidated map[string]bool
}

func newFakeInvalidTokenRepo() *fakeInvalidTokenRepo {
	return &fakeInvalidTokenRepo{invalidated: make(map[string]bool)}
}

func (r *fakeInvalidTokenRepo) Invalidate(jti string, ttl time.Duration) error {
	r.invalidated[jti] = true
	return nil
}

func (r *fakeInvalidTokenRepo) IsInvalidated(jti string) (bool, error) {
	return r.invalidated[jti], nil
}

// ============================================================================
// Сборка тестового приложения
// ============================================================================

// testApp собирает роутер с теми же маршрутами, что и в cmd/api, но на фейках
type testApp struct {
	router     *gin.Engine
	resultRepo *fakeResultRepo
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Load("../../config/quizzes.yaml")
	require.NoError(t, err)

	userRepo := newFakeUserRepo()
	resultRepo := newFakeResultRepo()
	tokenRepo := newFakeInvalidTokenRepo()

	sessionService, err := auth.NewSessionService("test-secret", time.Hour, tokenRepo, false)
	require.NoError(t, err)

	authService, err := service.NewAuthService(userRepo, nil)
	require.NoError(t, err)
	quizService, err := service.NewQuizService(cat, resultRepo)
	require.NoError(t, err)

	authHandler := NewAuthHandler(authService, sessionService)
	quizHandler := NewQuizHandler(quizService)
	authMiddleware := middleware.NewAuthMiddleware(sessionService, authService)

	router := gin.New()
	router.LoadHTMLGlob("../../web/templates/*.html")

	router.GET("/", authHandler.Index)
	router.GET("/register", authHandler.ShowRegister)
	router.POST("/register", authHandler.Register)
	router.GET("/login", authHandler.ShowLogin)
	router.POST("/login", authHandler.Login)

	authed := router.Group("/", authMiddleware.RequireAuth())
	authed.GET("/logout", authHandler.Logout)
	authed.GET("/select_quiz", quizHandler.SelectQuiz)
	authed.GET("/my_results", quizHandler.MyResults)
	authed.GET("/my_results/export", quizHandler.ExportMyResults)
	for _, quiz := range cat.Quizzes() {
		authed.GET("/"+quiz.Name+"_quiz", quizHandler.ShowQuiz(quiz.Name))
		authed.POST("/submit_"+quiz.Name+"_quiz", quizHandler.SubmitQuiz(quiz.Name))
	}

	return &testApp{router: router, resultRepo: resultRepo}
}

func (app *testApp) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	app.router.ServeHTTP(recorder, request)
	return recorder
}

func (app *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	app.router.ServeHTTP(recorder, request)
	return recorder
}

// register регистрирует пользователя и возвращает сессионную куку
func (app *testApp) register(t *testing.T, username, email, password string) *http.Cookie {
	t.Helper()
	recorder := app.postForm("/register", url.Values{
		"username": {username},
		"email":    {email},
		"password": {password},
	})
	require.Equal(t, http.StatusFound, recorder.Code)
	require.Equal(t, "/select_quiz", recorder.Header().Get("Location"))

	cookie := sessionCookie(recorder)
	require.NotNil(t, cookie, "После регистрации должна быть установлена сессионная кука")
	return cookie
}

func sessionCookie(recorder *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName && cookie.Value != "" {
			return cookie
		}
	}
	return nil
}

// ============================================================================
// Тесты регистрации и входа
// ============================================================================

func TestRegister_Success(t *testing.T) {
	app := setupTestApp(t)

	cookie := app.register(t, "alice", "a@x.com", "pw1")

	// Кука сразу открывает защищенные страницы
	recorder := app.get("/select_quiz", cookie)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Hello, alice!")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := setupTestApp(t)
	app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.postForm("/register", url.Values{
		"username": {"bob"},
		"email":    {"a@x.com"},
		"password": {"pw2"},
	})

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Email or username already registered")
}

func TestRegister_MissingFields(t *testing.T) {
	app := setupTestApp(t)

	recorder := app.postForm("/register", url.Values{
		"username": {"alice"},
		"email":    {""},
		"password": {"pw1"},
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "All fields are required.")
}

func TestLogin_Success(t *testing.T) {
	app := setupTestApp(t)
	app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.postForm("/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"pw1"},
	})

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/select_quiz", recorder.Header().Get("Location"))
	assert.NotNil(t, sessionCookie(recorder))
}

func TestLogin_WrongPassword(t *testing.T) {
	app := setupTestApp(t)
	app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.postForm("/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"wrong"},
	})

	// По тексту ошибки нельзя понять, существует ли такой email
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid email or password")
	assert.Nil(t, sessionCookie(recorder))
}

func TestLogin_UnknownEmail(t *testing.T) {
	app := setupTestApp(t)

	recorder := app.postForm("/login", url.Values{
		"email":    {"nobody@x.com"},
		"password": {"pw1"},
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid email or password")
}

func TestLogout_InvalidatesSession(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.get("/logout", cookie)
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))

	// Старая кука больше не принимается
	recorder = app.get("/select_quiz", cookie)
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}

// ============================================================================
// Тесты страниц викторин
// ============================================================================

func TestShowQuiz_RendersQuestions(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.get("/food_quiz", cookie)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "Food Quiz")
	assert.Contains(t, body, "/submit_food_quiz")
	// Эталонные ответы на страницу не попадают в явном виде как ключ
	assert.Contains(t, body, "Avocado")
}

func TestShowQuiz_Anonymous(t *testing.T) {
	app := setupTestApp(t)

	recorder := app.get("/food_quiz")

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}

func TestSubmitQuiz_FullScore(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.postForm("/submit_food_quiz", url.Values{
		"q1":  {"Avocado"},
		"q2":  {"Japan"},
		"q3":  {"Orzo"},
		"q4":  {"Durian"},
		"q5":  {"Chickpeas"},
		"q6":  {"Spain"},
		"q7":  {"Chicken"},
		"q8":  {"Phyllo doug"},
		"q9":  {"Turmeric"},
		"q10": {"Mozzarella"},
	}, cookie)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "10 / 10")

	require.Len(t, app.resultRepo.results, 1)
	assert.Equal(t, 10, app.resultRepo.results[0].Score)
	assert.Len(t, app.resultRepo.answers, 10, "Ответы на вопросы сохраняются вместе с результатом")
}

func TestSubmitQuiz_EmptyForm(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.register(t, "alice", "a@x.com", "pw1")

	recorder := app.postForm("/submit_food_quiz", url.Values{}, cookie)

	// Пустая форма - валидная сдача с нулевым счетом
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "0 / 10")
	require.Len(t, app.resultRepo.results, 1)
	assert.Equal(t, 0, app.resultRepo.results[0].Score)
}

func TestMyResults_ShowsHistory(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.register(t, "alice", "a@x.com", "pw1")

	app.postForm("/submit_special_quiz", url.Values{"q1": {"Yes"}}, cookie)

	recorder := app.get("/my_results", cookie)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "special")
	assert.Contains(t, body, "1")
}

func TestMyResults_IsolatedPerUser(t *testing.T) {
	// Пользователь видит только собственные результаты
	app := setupTestApp(t)
	aliceCookie := app.register(t, "alice", "a@x.com", "pw1")
	bobCookie := app.register(t, "bob", "b@x.com", "pw2")

	app.postForm("/submit_special_quiz", url.Values{"q1": {"Yes"}}, aliceCookie)

	recorder := app.get("/my_results", bobCookie)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "special")
}

func TestExportMyResults(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.register(t, "alice", "a@x.com", "pw1")
	app.postForm("/submit_special_quiz", url.Values{"q1": {"Yes"}}, cookie)

	recorder := app.get("/my_results/export", cookie)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "quiz_results_alice.xlsx")
	assert.NotZero(t, recorder.Body.Len())
}
