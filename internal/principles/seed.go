package principles

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/principlequiz/backend/internal/models"
)

// SeedFile is the on-disk format for bulk-loading principles.
//
//	principles:
//	  - id: fitts-law
//	    title: Fitts's Law
//	    type: law
//	    oneLiner: ...
type SeedFile struct {
	Principles []models.Principle `yaml:"principles"`
}

// LoadSeedFile reads and validates a YAML seed file.
func LoadSeedFile(path string) ([]models.Principle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]models.Principle, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	var errs []string
	seen := make(map[string]bool, len(file.Principles))
	for i := range file.Principles {
		p := &file.Principles[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Title = strings.TrimSpace(p.Title)

		switch {
		case p.ID == "":
			errs = append(errs, fmt.Sprintf("entry %d: missing id", i+1))
		case seen[p.ID]:
			errs = append(errs, fmt.Sprintf("entry %d: duplicate id %q", i+1, p.ID))
		}
		seen[p.ID] = true

		if p.Title == "" {
			errs = append(errs, fmt.Sprintf("entry %d: missing title", i+1))
		}
		if !models.ValidPrincipleTypes[p.Type] {
			errs = append(errs, fmt.Sprintf("entry %d: invalid type %q", i+1, p.Type))
		}
	}

	if len(errs) > 0 {
		return nil, &SeedError{Errors: errs}
	}
	return file.Principles, nil
}

// SeedError lists every problem found in a seed file.
type SeedError struct {
	Errors []string
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("invalid seed file: %s", strings.Join(e.Errors, "; "))
}

type upserter interface {
	Upsert(ctx context.Context, p models.Principle) (bool, error)
}

// Seed upserts every principle and reports how many rows were new.
func Seed(ctx context.Context, store upserter, principles []models.Principle) (inserted, updated int, err error) {
	for _, p := range principles {
		created, err := store.Upsert(ctx, p)
		if err != nil {
			return inserted, updated, err
		}
		if created {
			inserted++
		} else {
			updated++
		}
	}
	log.Printf("Seeded principles: %d inserted, %d updated", inserted, updated)
	return inserted, updated, nil
}
