// Package seed fills an empty store with demo accounts so the leaderboard has
// something to show.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"sydai_backend/internal/model"
	"sydai_backend/internal/repository"
	"sydai_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DemoUsernames are the accounts created by Run.
var DemoUsernames = []string{
	"CryptoKing", "AIWizard", "TechGuru", "DataMaster", "CodeNinja",
	"WebDev", "CloudExpert", "SecurityPro", "MLEnthusiast", "DevOpsHero",
	"FullStackDev", "BackendPro", "FrontendAce", "MobileGenius", "GameDev",
}

const (
	minPoints = 100
	maxPoints = 10100

	// demoPasswordHash is not a valid bcrypt hash, so demo accounts cannot log in.
	demoPasswordHash = "!demo"
)

type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	CreateSettings(ctx context.Context, s *model.Settings) error
}

// Run creates the demo users. Accounts that already exist are skipped, so it is
// safe to call on every start.
func Run(ctx context.Context, store Store, now time.Time) (int, error) {
	log := logger.Logger()

	created := 0
	for i, name := range DemoUsernames {
		user := &model.User{
			ID:           uuid.NewString(),
			Username:     name,
			Email:        strings.ToLower(name) + "@example.com",
			PasswordHash: demoPasswordHash,
			Points:       minPoints + rand.Intn(maxPoints-minPoints),
			CreatedAt:    now.Add(-time.Duration(rand.Int63n(int64(30 * 24 * time.Hour)))).UTC(),
		}
		// The first few look like they checked in yesterday.
		if i < 5 {
			last := now.Add(-24 * time.Hour).UTC()
			user.LastCheckin = &last
		}

		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("failed to create demo user %s: %w", name, err)
		}
		if err := store.CreateSettings(ctx, model.DefaultSettings(user.ID)); err != nil && !errors.Is(err, repository.ErrConflict) {
			return created, fmt.Errorf("failed to create demo settings for %s: %w", name, err)
		}
		created++
	}

	log.Info("demo users seeded", zap.Int("created", created))
	return created, nil
}
