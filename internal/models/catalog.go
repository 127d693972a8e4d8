package models

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrNotFound is returned when an ad id is not present in the catalog
var ErrNotFound = errors.New("ad not found")

// Criteria maps a targeting field name to the desired context value.
// FilterAds applies the two-sided wildcard rule per field.
type Criteria map[string]string

// Catalog provides thread-safe access to the advertisement inventory.
// Reads are lock-free; writes swap an immutable snapshot, so a decision
// cycle always sees a consistent catalog.
type Catalog interface {
	// Read operations (decision path)
	GetAllAds() []Ad
	GetAdByID(id string) (Ad, error)
	FilterAds(criteria Criteria) []Ad
	GetMatchingAds(env EnvironmentalContext, audience AudienceProfile) []Ad
	Len() int

	// Write operations (load/reload/admin path)
	SetAds(ads []Ad) error
	InsertAd(ad Ad) error
	UpdateAd(ad Ad) error
	DeleteAd(id string) error
}

// catalogSnapshot is an immutable view of the catalog. ads preserves
// insertion order, which is the documented tie-break order for ranking.
type catalogSnapshot struct {
	ads  []Ad
	byID map[string]int // ad ID -> index into ads
}

// InMemoryCatalog implements Catalog with atomic snapshot updates
type InMemoryCatalog struct {
	data atomic.Pointer[catalogSnapshot]
}

// NewInMemoryCatalog creates an empty catalog
func NewInMemoryCatalog() *InMemoryCatalog {
	c := &InMemoryCatalog{}
	c.data.Store(&catalogSnapshot{
		ads:  make([]Ad, 0),
		byID: make(map[string]int),
	})
	return c
}

func buildSnapshot(ads []Ad) (*catalogSnapshot, error) {
	snap := &catalogSnapshot{
		ads:  ads,
		byID: make(map[string]int, len(ads)),
	}
	for i, ad := range ads {
		if _, dup := snap.byID[ad.ID]; dup {
			return nil, fmt.Errorf("duplicate ad_id %s", ad.ID)
		}
		snap.byID[ad.ID] = i
	}
	return snap, nil
}

// SetAds replaces the whole catalog. Each entry is normalized; a single bad
// entry rejects the batch so a partial reload never goes live.
func (c *InMemoryCatalog) SetAds(ads []Ad) error {
	normalized := make([]Ad, 0, len(ads))
	for _, ad := range ads {
		n, err := ad.Normalize()
		if err != nil {
			return err
		}
		normalized = append(normalized, n)
	}
	snap, err := buildSnapshot(normalized)
	if err != nil {
		return err
	}
	c.data.Store(snap)
	return nil
}

// GetAllAds returns the catalog in insertion order
func (c *InMemoryCatalog) GetAllAds() []Ad {
	data := c.data.Load()
	// Return a copy to prevent external modification
	result := make([]Ad, len(data.ads))
	copy(result, data.ads)
	return result
}

// GetAdByID looks up a single ad
func (c *InMemoryCatalog) GetAdByID(id string) (Ad, error) {
	data := c.data.Load()
	if i, ok := data.byID[id]; ok {
		return data.ads[i], nil
	}
	return Ad{}, ErrNotFound
}

// Len returns the number of catalog entries
func (c *InMemoryCatalog) Len() int {
	return len(c.data.Load().ads)
}

// FilterAds returns the ads matching every criterion, in insertion order.
// An empty criteria map returns the full catalog.
func (c *InMemoryCatalog) FilterAds(criteria Criteria) []Ad {
	data := c.data.Load()
	result := make([]Ad, 0, len(data.ads))
	for _, ad := range data.ads {
		if adMatchesCriteria(ad, criteria) {
			result = append(result, ad)
		}
	}
	return result
}

func adMatchesCriteria(ad Ad, criteria Criteria) bool {
	for field, want := range criteria {
		if !FieldMatches(ad.FieldValue(field), want) {
			return false
		}
	}
	return true
}

// GetMatchingAds builds criteria from the current contexts and delegates to
// FilterAds. Demographic criteria are only applied when an audience is
// present; an empty board matches on environment alone.
func (c *InMemoryCatalog) GetMatchingAds(env EnvironmentalContext, audience AudienceProfile) []Ad {
	criteria := Criteria{
		FieldTemperature: env.TemperatureCategory,
		FieldHumidity:    env.HumidityCategory,
	}
	if audience.Present {
		criteria[FieldAgeGroup] = audience.AgeGroup
		criteria[FieldGender] = audience.GenderTarget()
	}
	return c.FilterAds(criteria)
}

// InsertAd adds one ad to the end of the catalog
func (c *InMemoryCatalog) InsertAd(ad Ad) error {
	n, err := ad.Normalize()
	if err != nil {
		return err
	}
	current := c.data.Load()
	if _, exists := current.byID[n.ID]; exists {
		return fmt.Errorf("duplicate ad_id %s", n.ID)
	}
	newAds := make([]Ad, len(current.ads)+1)
	copy(newAds, current.ads)
	newAds[len(current.ads)] = n

	snap, err := buildSnapshot(newAds)
	if err != nil {
		return err
	}
	c.data.Store(snap)
	return nil
}

// UpdateAd replaces an existing ad in place, preserving its position
func (c *InMemoryCatalog) UpdateAd(ad Ad) error {
	n, err := ad.Normalize()
	if err != nil {
		return err
	}
	current := c.data.Load()
	i, ok := current.byID[n.ID]
	if !ok {
		return ErrNotFound
	}
	newAds := make([]Ad, len(current.ads))
	copy(newAds, current.ads)
	newAds[i] = n

	snap, err := buildSnapshot(newAds)
	if err != nil {
		return err
	}
	c.data.Store(snap)
	return nil
}

// DeleteAd removes an ad from the catalog
func (c *InMemoryCatalog) DeleteAd(id string) error {
	current := c.data.Load()
	if _, ok := current.byID[id]; !ok {
		return ErrNotFound
	}
	newAds := make([]Ad, 0, len(current.ads)-1)
	for _, ad := range current.ads {
		if ad.ID != id {
			newAds = append(newAds, ad)
		}
	}
	snap, err := buildSnapshot(newAds)
	if err != nil {
		return err
	}
	c.data.Store(snap)
	return nil
}
