package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fanvue/moderation-api/internal/repository"
	"github.com/fanvue/moderation-api/internal/seed"
	"github.com/fanvue/moderation-api/pkg/config"
	"github.com/fanvue/moderation-api/pkg/database"
	"github.com/fanvue/moderation-api/pkg/logger"
)

const uniqueViolation = "23505"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := repository.NewSubmissionRepository(db)
	now := time.Now().UTC()
	subs := seed.Generate(cfg.Seed, now, rand.New(rand.NewSource(now.UnixNano())))

	ctx := context.Background()
	inserted := 0
	for i := range subs {
		if err := repo.Insert(ctx, &subs[i]); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				continue
			}
			logr.Error("failed to insert submission", zap.String("id", subs[i].ID), zap.Error(err))
			continue
		}
		inserted++
	}

	logr.Info("seed complete", zap.Int("generated", len(subs)), zap.Int("inserted", inserted))
}
