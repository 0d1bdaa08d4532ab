package main

import (
	"context"
	"flag"
	"os"

	"trivia_duel/internal/config"
	"trivia_duel/internal/db"
	"trivia_duel/internal/logger"
	"trivia_duel/internal/repository"
	"trivia_duel/internal/service"
)

// seed загружает вопросы из JSON-файла в банк, выбранный QUESTION_POOL_DRIVER
func main() {
	file := flag.String("file", "questions.json", "path to a JSON array of questions")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	ctx := context.Background()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("open questions file", "file", *file, "error", err)
	}
	defer f.Close()

	var w service.QuestionWriter
	switch cfg.QuestionPoolDriver {
	case "sqlite":
		sq, err := repository.OpenSQLiteQuestions(cfg.QuestionPoolDSN)
		if err != nil {
			logger.Fatal("open sqlite question pool", "error", err)
		}
		defer sq.Close()
		w = sq
	default:
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("migration failed", "error", err)
		}
		w = repository.NewQuestionRepository(pool)
	}

	n, err := service.ImportQuestions(ctx, w, f)
	if err != nil {
		logger.Fatal("import failed", "imported", n, "error", err)
	}
	logger.Info("seed done", "driver", cfg.QuestionPoolDriver, "questions", n)
}
