package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/logger"

	"github.com/gosimple/slug"
)

var ErrInvalidQuestion = errors.New("invalid question")

// QuestionWriter - банк вопросов, в который можно писать (postgres или sqlite)
type QuestionWriter interface {
	Upsert(ctx context.Context, q *domain.Question) error
}

type importRecord struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Difficulty   string   `json:"difficulty"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex"`
}

// ImportQuestions читает JSON-массив вопросов и пишет их в банк.
// Категория приводится к slug, как в очереди; без id он строится из категории и текста.
// Повторный импорт того же файла обновляет вопросы, а не дублирует
func ImportQuestions(ctx context.Context, w QuestionWriter, r io.Reader) (int, error) {
	var records []importRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("decode questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(records))
	for i, rec := range records {
		q, err := rec.toQuestion()
		if err != nil {
			return 0, fmt.Errorf("question #%d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	for i := range questions {
		if err := w.Upsert(ctx, &questions[i]); err != nil {
			return i, fmt.Errorf("upsert %s: %w", questions[i].ID, err)
		}
	}

	logger.Info("questions imported", "count", len(questions))
	return len(questions), nil
}

func (rec importRecord) toQuestion() (domain.Question, error) {
	category := slug.Make(rec.Category)
	if category == "" {
		return domain.Question{}, fmt.Errorf("%w: empty category", ErrInvalidQuestion)
	}
	text := strings.TrimSpace(rec.Text)
	if text == "" {
		return domain.Question{}, fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	}

	diff := domain.Difficulty(strings.ToLower(rec.Difficulty))
	switch diff {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
	default:
		return domain.Question{}, fmt.Errorf("%w: difficulty %q", ErrInvalidQuestion, rec.Difficulty)
	}

	if len(rec.Options) != domain.OptionsPerQuestion {
		return domain.Question{}, fmt.Errorf("%w: want %d options, got %d", ErrInvalidQuestion, domain.OptionsPerQuestion, len(rec.Options))
	}
	if rec.CorrectIndex == nil || *rec.CorrectIndex < 0 || *rec.CorrectIndex >= domain.OptionsPerQuestion {
		return domain.Question{}, fmt.Errorf("%w: correctIndex out of range", ErrInvalidQuestion)
	}

	id := rec.ID
	if id == "" {
		id = slug.Make(category + " " + text)
	}

	q := domain.Question{
		ID:           id,
		Category:     category,
		Difficulty:   diff,
		Text:         text,
		CorrectIndex: *rec.CorrectIndex,
	}
	copy(q.Options[:], rec.Options)
	return q, nil
}
