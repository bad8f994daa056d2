// Package seed generates synthetic app submissions for local environments.
package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/fanvue/moderation-api/internal/models"
	"github.com/fanvue/moderation-api/pkg/config"
)

var statusCycle = []models.Status{
	models.StatusPending,
	models.StatusApproved,
	models.StatusRejected,
	models.StatusFlagged,
}

var categoryCycle = []models.Category{
	models.CategorySocial,
	models.CategoryProductivity,
	models.CategoryEntertainment,
	models.CategoryEducation,
	models.CategoryBusiness,
}

// Generate produces cfg.Count synthetic submissions. Statuses and categories
// cycle deterministically; one developer covers every five apps; the numeric
// metadata stays inside the model invariants (rating 3.0-5.0, downloads below
// 100k, file size 5-55 MB).
func Generate(cfg config.SeedConfig, now time.Time, rng *rand.Rand) []models.Submission {
	count := cfg.Count
	if count <= 0 {
		count = 1000
	}
	submissionWindow := time.Duration(cfg.SubmissionWindowDays)
	if submissionWindow <= 0 {
		submissionWindow = 30
	}
	updateWindow := time.Duration(cfg.UpdateWindowDays)
	if updateWindow <= 0 {
		updateWindow = 7
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}

	subs := make([]models.Submission, 0, count)
	for i := 0; i < count; i++ {
		devIdx := i/5 + 1
		flavor := "innovative"
		if rng.Float64() > 0.5 {
			flavor = "amazing"
		}

		submittedAt := now.Add(-time.Duration(rng.Float64() * float64(submissionWindow) * float64(24*time.Hour)))
		updatedAt := now.Add(-time.Duration(rng.Float64() * float64(updateWindow) * float64(24*time.Hour)))
		if updatedAt.Before(submittedAt) {
			updatedAt = submittedAt
		}

		subs = append(subs, models.Submission{
			ID:          uuid.NewString(),
			Name:        fmt.Sprintf("App %d", i+1),
			Description: fmt.Sprintf("This is a description for app %d. It provides %s functionality for users.", i+1, flavor),
			Status:      statusCycle[i%len(statusCycle)],
			Category:    categoryCycle[i%len(categoryCycle)],
			Version:     fmt.Sprintf("%d.%d.%d", rng.Intn(3)+1, rng.Intn(10), rng.Intn(10)),
			SubmittedAt: submittedAt.UTC(),
			UpdatedAt:   updatedAt.UTC(),
			Developer: models.Developer{
				ID:    fmt.Sprintf("dev-%d", devIdx),
				Name:  fmt.Sprintf("Developer %d", devIdx),
				Email: fmt.Sprintf("dev%d@example.com", devIdx),
			},
			Metadata: models.Metadata{
				Downloads: int64(rng.Intn(100000)),
				Rating:    math.Round((rng.Float64()*2+3)*10) / 10,
				FileSize:  float64(rng.Intn(50) + 5),
			},
		})
	}
	return subs
}
