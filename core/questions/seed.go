package questions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/hookbot/core/logger"
)

// Inserter accepts new question pairs.
type Inserter interface {
	InsertQuestion(ctx context.Context, p Pair) error
}

// SeedFile is the YAML layout of a seed file:
//
//	questions:
//	  - question: Who are you?
//	    answer: Hello! I am bot!
type SeedFile struct {
	Questions []Pair `yaml:"questions"`
}

// ReadSeedFile parses path and drops entries with an empty question.
func ReadSeedFile(path string) ([]Pair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	out := f.Questions[:0]
	for _, p := range f.Questions {
		p.Question = strings.TrimSpace(p.Question)
		if p.Question == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Seed inserts pairs, skipping questions that already exist.
// It returns the number of rows inserted.
func Seed(ctx context.Context, dst Inserter, pairs []Pair) (int, error) {
	inserted := 0
	for _, p := range pairs {
		err := dst.InsertQuestion(ctx, p)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, ErrDuplicateQuestion):
			logger.Debug(ctx, "db.seed", "seed.skip", slog.String("question", logger.SanitizeLimit(p.Question, 64)))
		default:
			return inserted, err
		}
	}
	logger.SEED.Info("questions seeded",
		slog.String("event", "seed"),
		slog.String("status", "ok"),
		slog.Int("questions", inserted),
		slog.Int("skipped", len(pairs)-inserted),
	)
	return inserted, nil
}

// SeedFromFile reads path and seeds its pairs into dst.
func SeedFromFile(ctx context.Context, dst Inserter, path string) (int, error) {
	pairs, err := ReadSeedFile(path)
	if err != nil {
		return 0, err
	}
	return Seed(ctx, dst, pairs)
}
