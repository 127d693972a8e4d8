// Package db wires the persistent backends: Postgres holds the durable ad
// catalog, Redis carries cross-board change notifications and the optional
// history list.
package db

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/models"
)

// LoadCatalog pulls the full ad set from Postgres and swaps it into the
// in-memory catalog. The swap is all-or-nothing: a row that fails
// normalization rejects the batch and the previous snapshot stays live.
func LoadCatalog(pg *Postgres, catalog models.Catalog) (int, error) {
	ads, err := pg.LoadAds()
	if err != nil {
		return 0, fmt.Errorf("load ads: %w", err)
	}
	if err := catalog.SetAds(ads); err != nil {
		return 0, fmt.Errorf("install catalog: %w", err)
	}
	zap.L().Info("Catalog loaded from Postgres", zap.Int("ads", len(ads)))
	return len(ads), nil
}

// LoadCatalogFile installs an ad set from a local JSON file, either a bare
// array or an object with an "ads" key. Boards without a database run off
// such a file dropped next to the binary.
func LoadCatalogFile(path string, catalog models.Catalog) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog file: %w", err)
	}

	var ads []models.Ad
	if err := json.Unmarshal(raw, &ads); err != nil {
		var wrapped struct {
			Ads []models.Ad `json:"ads"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return 0, fmt.Errorf("parse catalog file %s: %w", path, err)
		}
		ads = wrapped.Ads
	}

	if err := catalog.SetAds(ads); err != nil {
		return 0, fmt.Errorf("install catalog: %w", err)
	}
	zap.L().Info("Catalog loaded from file", zap.String("path", path), zap.Int("ads", len(ads)))
	return len(ads), nil
}
