package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quiz-site/internal/catalog"
	"github.com/yourusername/quiz-site/internal/middleware"
	"github.com/yourusername/quiz-site/internal/service"
)

// QuizHandler обрабатывает страницы викторин и прием ответов
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// SelectQuiz отображает страницу выбора викторины
func (h *QuizHandler) SelectQuiz(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.HTML(http.StatusOK, "select_quiz.html", gin.H{
		"Username": user.Username,
		"Quizzes":  h.quizService.Quizzes(),
	})
}

// ShowQuiz возвращает обработчик страницы викторины с данным идентификатором.
// Маршруты вида GET /<topic>_quiz регистрируются в main по каталогу.
func (h *QuizHandler) ShowQuiz(quizName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			return
		}

		quiz, err := h.quizService.Quiz(quizName)
		if err != nil {
			renderNotFound(c)
			return
		}

		c.HTML(http.StatusOK, "quiz.html", gin.H{
			"Username": user.Username,
			"Quiz":     quiz,
		})
	}
}

// SubmitQuiz возвращает обработчик приема ответов для данной викторины.
// Маршруты вида POST /submit_<topic>_quiz регистрируются в main по каталогу.
func (h *QuizHandler) SubmitQuiz(quizName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			return
		}

		quiz, err := h.quizService.Quiz(quizName)
		if err != nil {
			renderNotFound(c)
			return
		}

		// Одно поле формы на вопрос; отсутствующее поле считается пустым ответом
		submitted := make(map[string]string, len(quiz.Questions))
		for _, question := range quiz.Questions {
			submitted[question.ID] = c.PostForm(question.ID)
		}

		result, err := h.quizService.Submit(user, quizName, submitted)
		if err != nil {
			if errors.Is(err, catalog.ErrUnknownQuiz) {
				renderNotFound(c)
				return
			}
			log.Printf("[QuizHandler] Ошибка сохранения результата для ID=%d, quiz=%q: %v", user.ID, quizName, err)
			renderServerError(c)
			return
		}

		c.HTML(http.StatusOK, "quiz_result.html", gin.H{
			"Username":       user.Username,
			"QuizTitle":      quiz.Title,
			"Score":          result.Score,
			"TotalQuestions": result.TotalQuestions,
		})
	}
}

// MyResults отображает историю результатов текущего пользователя
func (h *QuizHandler) MyResults(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	results, err := h.quizService.ResultsForUser(user.ID)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка получения результатов для ID=%d: %v", user.ID, err)
		renderServerError(c)
		return
	}

	c.HTML(http.StatusOK, "my_results.html", gin.H{
		"Username": user.Username,
		"Results":  results,
	})
}

// ExportMyResults экспортирует историю результатов пользователя в Excel.
// Используем StreamWriter для эффективной записи построчно.
func (h *QuizHandler) ExportMyResults(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	results, err := h.quizService.ResultsForUser(user.ID)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка получения результатов для экспорта, ID=%d: %v", user.ID, err)
		renderServerError(c)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"quiz_results_%s.xlsx\"", user.Username))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка создания StreamWriter: %v", err)
		renderServerError(c)
		return
	}

	headers := []interface{}{"Quiz", "Score", "Total questions", "Completed at"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[QuizHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range results {
		rowNum := i + 2 // Данные со второй строки, первая - заголовки
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{
			r.QuizName,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TotalQuestions),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[QuizHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuizHandler] Ошибка при Flush: %v", err)
		renderServerError(c)
		return
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuizHandler] Ошибка записи файла в ответ: %v", err)
	}
}

// renderNotFound отображает страницу 404
func renderNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", gin.H{
		"Message": "Page not found.",
	})
}
