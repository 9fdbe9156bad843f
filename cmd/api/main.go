package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-site/internal/catalog"
	"github.com/yourusername/quiz-site/internal/config"
	"github.com/yourusername/quiz-site/internal/handler"
	"github.com/yourusername/quiz-site/internal/middleware"
	pgRepo "github.com/yourusername/quiz-site/internal/repository/postgres"
	redisRepo "github.com/yourusername/quiz-site/internal/repository/redis"
	"github.com/yourusername/quiz-site/internal/service"
	"github.com/yourusername/quiz-site/pkg/auth"
	"github.com/yourusername/quiz-site/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Загружаем каталог викторин: ключи ответов - данные, а не код
	quizCatalog, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Printf("Failed to load quiz catalog: %v", err)
		os.Exit(1)
	}
	log.Printf("Каталог викторин загружен: %d викторин", len(quizCatalog.Quizzes()))

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)

	invalidTokenRepo, err := redisRepo.NewInvalidTokenRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize InvalidTokenRepo: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем сервис сессий
	sessionService, err := auth.NewSessionService(
		cfg.Session.Secret,
		time.Duration(cfg.Session.LifetimeHrs)*time.Hour,
		invalidTokenRepo,
		isProduction, // Secure куки только в production (HTTPS)
	)
	if err != nil {
		log.Printf("Failed to initialize SessionService: %v", err)
		os.Exit(1)
	}

	// Отправка приветственных писем: Resend, если настроен, иначе noop
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.APIKey != "" {
		resendService, err := service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		emailService = resendService
		log.Println("Отправка писем через Resend включена")
	}

	// Инициализируем сервисы
	authService, err := service.NewAuthService(userRepo, emailService)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	quizService, err := service.NewQuizService(quizCatalog, resultRepo)
	if err != nil {
		log.Printf("Failed to initialize QuizService: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, sessionService)
	quizHandler := handler.NewQuizHandler(quizService)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionService, authService)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8000", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Серверные шаблоны и статика
	router.LoadHTMLGlob("web/templates/*.html")
	router.Static("/static", "./web/static")

	// Публичные маршруты
	router.GET("/", authHandler.Index)
	router.GET("/register", authHandler.ShowRegister)
	router.POST("/register", authHandler.Register)
	router.GET("/login", authHandler.ShowLogin)
	router.POST("/login", authHandler.Login)

	// Маршруты, требующие аутентификации
	authed := router.Group("/")
	authed.Use(authMiddleware.RequireAuth())
	{
		authed.GET("/logout", authHandler.Logout)
		authed.GET("/select_quiz", quizHandler.SelectQuiz)
		authed.GET("/my_results", quizHandler.MyResults)
		authed.GET("/my_results/export", quizHandler.ExportMyResults)

		// Маршруты викторин строятся по каталогу: GET /<topic>_quiz
		// и POST /submit_<topic>_quiz для каждой викторины
		for _, quiz := range quizCatalog.Quizzes() {
			authed.GET("/"+quiz.Name+"_quiz", quizHandler.ShowQuiz(quiz.Name))
			authed.POST("/submit_"+quiz.Name+"_quiz", quizHandler.SubmitQuiz(quiz.Name))
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
