package catalog

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrUnknownQuiz возвращается при обращении к викторине, которой нет в каталоге.
var ErrUnknownQuiz = errors.New("unknown quiz")

// Question представляет один вопрос викторины.
// Answer - эталонный ответ; от клиента он скрыт.
type Question struct {
	ID      string   `mapstructure:"id" json:"id"`
	Text    string   `mapstructure:"text" json:"text"`
	Options []string `mapstructure:"options" json:"options"`
	Answer  string   `mapstructure:"answer" json:"-"`
}

// Quiz представляет одну викторину каталога: идентификатор, отображаемое
// название и упорядоченный список вопросов.
type Quiz struct {
	Name      string     `mapstructure:"name" json:"name"`
	Title     string     `mapstructure:"title" json:"title"`
	Questions []Question `mapstructure:"questions" json:"questions"`
}

// AnswerKey возвращает упорядоченные пары (id вопроса, эталонный ответ)
func (q *Quiz) AnswerKey() map[string]string {
	key := make(map[string]string, len(q.Questions))
	for _, question := range q.Questions {
		key[question.ID] = question.Answer
	}
	return key
}

// Catalog - неизменяемый набор викторин, загруженный при старте процесса
type Catalog struct {
	quizzes map[string]*Quiz
	order   []string
}

// Load читает каталог викторин из YAML-файла.
// Каталог - конфигурационные данные, а не код: ключи ответов не
// дублируются по обработчикам.
func Load(path string) (*Catalog, error) {
	vip := viper.New()
	vip.SetConfigFile(path)

	if err := vip.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read quiz catalog %q: %w", path, err)
	}

	var defs []Quiz
	if err := vip.UnmarshalKey("quizzes", &defs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quiz catalog %q: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("quiz catalog %q contains no quizzes", path)
	}

	cat := &Catalog{
		quizzes: make(map[string]*Quiz, len(defs)),
		order:   make([]string, 0, len(defs)),
	}

	for i := range defs {
		quiz := defs[i]
		if err := validateQuiz(&quiz); err != nil {
			return nil, fmt.Errorf("quiz catalog %q: %w", path, err)
		}
		if _, exists := cat.quizzes[quiz.Name]; exists {
			return nil, fmt.Errorf("quiz catalog %q: duplicate quiz %q", path, quiz.Name)
		}
		cat.quizzes[quiz.Name] = &quiz
		cat.order = append(cat.order, quiz.Name)
	}

	return cat, nil
}

// validateQuiz проверяет согласованность определения викторины при загрузке
func validateQuiz(quiz *Quiz) error {
	if quiz.Name == "" {
		return fmt.Errorf("quiz without name")
	}
	if quiz.Title == "" {
		return fmt.Errorf("quiz %q: title is required", quiz.Name)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("quiz %q: no questions", quiz.Name)
	}

	seen := make(map[string]bool, len(quiz.Questions))
	for _, question := range quiz.Questions {
		if question.ID == "" {
			return fmt.Errorf("quiz %q: question without id", quiz.Name)
		}
		if seen[question.ID] {
			return fmt.Errorf("quiz %q: duplicate question id %q", quiz.Name, question.ID)
		}
		seen[question.ID] = true

		if question.Answer == "" {
			return fmt.Errorf("quiz %q: question %q has no answer", quiz.Name, question.ID)
		}
		// Если заданы варианты, эталонный ответ обязан быть одним из них
		if len(question.Options) > 0 && !contains(question.Options, question.Answer) {
			return fmt.Errorf("quiz %q: question %q: answer is not among options", quiz.Name, question.ID)
		}
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// Get возвращает викторину по идентификатору
func (c *Catalog) Get(name string) (*Quiz, error) {
	quiz, ok := c.quizzes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuiz, name)
	}
	return quiz, nil
}

// Quizzes возвращает все викторины в порядке объявления в файле каталога
func (c *Catalog) Quizzes() []*Quiz {
	out := make([]*Quiz, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.quizzes[name])
	}
	return out
}
