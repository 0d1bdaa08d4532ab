package repository

import (
	"context"
	"fmt"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteQuestionSchema = `
CREATE TABLE IF NOT EXISTS questions (
	id            TEXT PRIMARY KEY,
	category      TEXT NOT NULL,
	difficulty    TEXT NOT NULL,
	text          TEXT NOT NULL,
	option_a      TEXT NOT NULL,
	option_b      TEXT NOT NULL,
	option_c      TEXT NOT NULL,
	option_d      TEXT NOT NULL,
	correct_index INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_category_difficulty ON questions (category, difficulty);
`

type sqliteQuestionRow struct {
	ID           string `db:"id"`
	Category     string `db:"category"`
	Difficulty   string `db:"difficulty"`
	Text         string `db:"text"`
	OptionA      string `db:"option_a"`
	OptionB      string `db:"option_b"`
	OptionC      string `db:"option_c"`
	OptionD      string `db:"option_d"`
	CorrectIndex int    `db:"correct_index"`
}

func (r sqliteQuestionRow) toDomain() domain.Question {
	return domain.Question{
		ID:           r.ID,
		Category:     r.Category,
		Difficulty:   domain.Difficulty(r.Difficulty),
		Text:         r.Text,
		Options:      [domain.OptionsPerQuestion]string{r.OptionA, r.OptionB, r.OptionC, r.OptionD},
		CorrectIndex: r.CorrectIndex,
	}
}

// банк вопросов во встроенном sqlite-файле, для локальной разработки и тестов
type SQLiteQuestionRepository struct {
	db *sqlx.DB
}

// OpenSQLiteQuestions открывает файл (или ":memory:") и создает схему
func OpenSQLiteQuestions(dsn string) (*SQLiteQuestionRepository, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// у каждого соединения своя :memory: база
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteQuestionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	logger.Info("question pool opened", "driver", "sqlite", "dsn", dsn)
	return &SQLiteQuestionRepository{db: db}, nil
}

func (r *SQLiteQuestionRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteQuestionRepository) FindUnseen(ctx context.Context, category string, difficulty domain.Difficulty, excludeIDs []string, limit int) ([]domain.Question, error) {
	query := `
		SELECT id, category, difficulty, text, option_a, option_b, option_c, option_d, correct_index
		FROM questions
		WHERE category = ? AND difficulty = ?`
	args := []interface{}{category, string(difficulty)}

	if len(excludeIDs) > 0 {
		query += ` AND id NOT IN (?)`
		args = append(args, excludeIDs)
	}
	query += ` ORDER BY random() LIMIT ?`
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []sqliteQuestionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	qs := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, row.toDomain())
	}
	return qs, nil
}

func (r *SQLiteQuestionRepository) Upsert(ctx context.Context, q *domain.Question) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO questions (id, category, difficulty, text, option_a, option_b, option_c, option_d, correct_index)
		VALUES (:id, :category, :difficulty, :text, :option_a, :option_b, :option_c, :option_d, :correct_index)
		ON CONFLICT (id) DO UPDATE SET
			category = excluded.category,
			difficulty = excluded.difficulty,
			text = excluded.text,
			option_a = excluded.option_a,
			option_b = excluded.option_b,
			option_c = excluded.option_c,
			option_d = excluded.option_d,
			correct_index = excluded.correct_index
	`, sqliteQuestionRow{
		ID:           q.ID,
		Category:     q.Category,
		Difficulty:   string(q.Difficulty),
		Text:         q.Text,
		OptionA:      q.Options[0],
		OptionB:      q.Options[1],
		OptionC:      q.Options[2],
		OptionD:      q.Options[3],
		CorrectIndex: q.CorrectIndex,
	})
	return err
}

// Count - размер банка по категории и сложности
func (r *SQLiteQuestionRepository) Count(ctx context.Context, category string, difficulty domain.Difficulty) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM questions WHERE category = ? AND difficulty = ?`, category, string(difficulty))
	return n, err
}
