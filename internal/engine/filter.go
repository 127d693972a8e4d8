package engine

import (
	"strings"

	"github.com/edgy2009/adboard/internal/models"
)

// Stage names recorded in traces and metrics, broadest last.
const (
	StageDemographic = "demographic"
	StageGender      = "gender"
	StageEnvironment = "environment"
	StageCatalog     = "catalog"
)

// narrowCandidates applies the staged pre-filter that runs before scoring.
// With an audience present it first demands an exact match on both
// demographic fields, then on gender alone; each empty stage falls through
// to a broader one, ending at the full catalog. Wildcard ads only enter at
// the environment stage, since the demographic stages require a specific
// value on both sides.
func narrowCandidates(catalog models.Catalog, env models.EnvironmentalContext, audience models.AudienceProfile) ([]models.Ad, string) {
	if audience.Present {
		if ads := exactDemographicMatches(catalog, audience, true); len(ads) > 0 {
			return ads, StageDemographic
		}
		if ads := exactDemographicMatches(catalog, audience, false); len(ads) > 0 {
			return ads, StageGender
		}
	}
	if ads := catalog.FilterAds(models.Criteria{
		models.FieldTemperature: env.TemperatureCategory,
		models.FieldHumidity:    env.HumidityCategory,
	}); len(ads) > 0 {
		return ads, StageEnvironment
	}
	return catalog.GetAllAds(), StageCatalog
}

// exactDemographicMatches returns ads whose gender (and, when withAge is
// set, age group) equals the audience's value exactly. A wildcard on either
// side is not an exact match, so a mixed or unknown audience leaves these
// stages empty.
func exactDemographicMatches(catalog models.Catalog, audience models.AudienceProfile, withAge bool) []models.Ad {
	gender := audience.GenderTarget()
	age := audience.AgeGroup

	var out []models.Ad
	for _, ad := range catalog.GetAllAds() {
		if !exactValueMatch(ad.Gender, gender) {
			continue
		}
		if withAge && !exactValueMatch(ad.AgeGroup, age) {
			continue
		}
		out = append(out, ad)
	}
	return out
}

func exactValueMatch(adValue, criterion string) bool {
	if models.IsWildcard(adValue) || models.IsWildcard(criterion) {
		return false
	}
	return strings.EqualFold(adValue, criterion)
}
