package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
)

const tableSeedApplication = "tableside"

type bootstrapSeedDocument struct {
	Tables []tableSeed `json:"tables"`
}

type tableSeed struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
	Zone     string `json:"zone"`
	Floor    int    `json:"floor"`
}

func loadTableSeeds(seedFS fs.FS) ([]tableSeed, error) {
	seedBytes, err := fs.ReadFile(seedFS, "seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}

	var doc bootstrapSeedDocument
	if err := json.Unmarshal(seedBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode table seed file: %w", err)
	}

	if len(doc.Tables) == 0 {
		return nil, errors.New("table seed file does not contain tables")
	}

	return doc.Tables, nil
}

// ApplyTableSeeds ensures every table in seed.json exists. Each table is a
// separate seed so adding tables later only runs the new ones.
func ApplyTableSeeds(ctx context.Context, repo TableRepo, tracker seed.Tracker, seedFS fs.FS, logger apt.Logger) error {
	if repo == nil {
		return errors.New("table repository is required")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	docs, err := loadTableSeeds(seedFS)
	if err != nil {
		return err
	}

	defs := buildTableSeedDefinitions(docs, repo, logger)
	if len(defs) == 0 {
		logger.Info("No table seeds to apply")
		return nil
	}

	logger.Info("Applying table seeds", "count", len(defs))
	if err := seed.Apply(ctx, tracker, defs, tableSeedApplication); err != nil {
		return err
	}
	logger.Info("Table seeds applied")
	return nil
}

func buildTableSeedDefinitions(raw []tableSeed, repo TableRepo, logger apt.Logger) []seed.Seed {
	var defs []seed.Seed
	for _, s := range raw {
		seedData := s
		number := strings.TrimSpace(seedData.Number)
		if number == "" {
			logger.Info("Skipping seed table with empty number")
			continue
		}

		defs = append(defs, seed.Seed{
			ID:          fmt.Sprintf("2026-03-01_table_%s", seedIdentifier(number)),
			Description: fmt.Sprintf("Ensure table %s exists", number),
			Run: func(ctx context.Context) error {
				return seedData.ensureTable(ctx, repo, logger)
			},
		})
	}
	return defs
}

func seedIdentifier(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '_' || r == '/':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "seed"
	}
	return b.String()
}

func (s tableSeed) ensureTable(ctx context.Context, repo TableRepo, logger apt.Logger) error {
	number := strings.TrimSpace(s.Number)

	existing, err := repo.GetByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("lookup table %s: %w", number, err)
	}
	if existing != nil {
		logger.Debug("Seed table already exists", "number", number)
		return nil
	}

	table := NewTable(number)
	table.Capacity = s.Capacity
	table.Floor = s.Floor
	if s.Zone == ZoneAC {
		table.Zone = ZoneAC
	}
	table.CreatedBy = "seed:bootstrap"
	table.UpdatedBy = "seed:bootstrap"
	table.BeforeCreate()

	if err := repo.Create(ctx, table); err != nil {
		return fmt.Errorf("create seed table %s: %w", number, err)
	}

	logger.Info("Seed table created", "number", number, "zone", table.Zone)
	return nil
}

// SeedingFunc returns a lifecycle OnStart function that applies table seeds
// in the background.
func SeedingFunc(seedCtx context.Context, repo TableRepo, tracker seed.Tracker, seedFS fs.FS, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		go func() {
			if err := ApplyTableSeeds(seedCtx, repo, tracker, seedFS, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("table seeds failed: %v", err)
			}
		}()
		return nil
	}
}
