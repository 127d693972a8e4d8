package models

import (
	"fmt"
	"strings"
)

// Canonical targeting vocabulary. Every catalog entry is normalized to these
// values when it is loaded; see Normalize.
const (
	AgeChild  = "child"
	AgeTeen   = "teen"
	AgeAdult  = "adult"
	AgeSenior = "senior"
	AgeAll    = "all"

	GenderMale   = "male"
	GenderFemale = "female"
	GenderBoth   = "both"

	TempHot  = "hot"
	TempMild = "mild"
	TempCold = "cold"
	TempAny  = "any"

	HumidityHigh   = "high"
	HumidityMedium = "medium"
	HumidityLow    = "low"
	HumidityAny    = "any"
)

// Targeting field names used in filter criteria and analytics rows.
const (
	FieldAgeGroup    = "age_group"
	FieldGender      = "gender"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
)

// Ad is a single advertisement catalog entry. Entries are immutable at
// runtime: they are created when the catalog loads and replaced wholesale on
// reload, never mutated in place.
type Ad struct {
	ID    string `json:"ad_id"` // Unique identifier, kept as a string to match the historical export.
	Title string `json:"title"`
	// ImageFile is the asset filename relative to the configured image base
	// URL (originally an S3 bucket key).
	ImageFile string `json:"image_file"`
	// AgeGroup is the target age bucket: child, teen, adult, senior or all.
	AgeGroup string `json:"age_group"`
	// Gender is the target gender: male, female or both.
	Gender string `json:"gender"`
	// Temperature is the target temperature band: hot, mild, cold or any.
	Temperature string `json:"temperature"`
	// Humidity is the target humidity band: high, medium, low or any.
	Humidity string `json:"humidity"`
}

// IsWildcard reports whether a targeting value matches every context value.
// The catalog uses all/both/any interchangeably depending on the field; an
// empty value is treated the same way so sparse legacy entries stay valid.
func IsWildcard(v string) bool {
	switch strings.ToLower(v) {
	case AgeAll, GenderBoth, TempAny, "":
		return true
	}
	return false
}

// FieldMatches applies the two-sided wildcard rule: a wildcard on either the
// ad side or the criterion side matches, otherwise values compare
// case-insensitively.
func FieldMatches(adValue, criterion string) bool {
	if IsWildcard(adValue) || IsWildcard(criterion) {
		return true
	}
	return strings.EqualFold(adValue, criterion)
}

// Legacy synonyms observed in the historical DynamoDB export. The exporter
// was never strict about vocabulary, so the loader maps these rather than
// rejecting years of entries.
var (
	ageSynonyms = map[string]string{
		"child": AgeChild, "children": AgeChild, "kid": AgeChild, "kids": AgeChild,
		"teen": AgeTeen, "teens": AgeTeen, "teenager": AgeTeen, "teenagers": AgeTeen,
		"adult": AgeAdult, "adults": AgeAdult,
		"senior": AgeSenior, "seniors": AgeSenior, "elderly": AgeSenior,
		"all": AgeAll, "any": AgeAll, "mixed": AgeAll, "": AgeAll,
	}
	genderSynonyms = map[string]string{
		"male":   GenderMale,
		"female": GenderFemale,
		"both":   GenderBoth, "any": GenderBoth, "all": GenderBoth, "mixed": GenderBoth, "": GenderBoth,
	}
	temperatureSynonyms = map[string]string{
		"hot":  TempHot,
		"mild": TempMild, "moderate": TempMild, "warm": TempMild,
		"cold": TempCold, "rainy": TempCold,
		"any": TempAny, "all": TempAny, "": TempAny,
	}
	humiditySynonyms = map[string]string{
		"high":   HumidityHigh,
		"medium": HumidityMedium, "moderate": HumidityMedium,
		"low": HumidityLow,
		"any": HumidityAny, "all": HumidityAny, "": HumidityAny,
	}
)

// Normalize lowercases and canonicalizes the ad's targeting fields, mapping
// legacy synonyms onto the canonical vocabulary. It returns an error for a
// missing ID or a value with no canonical equivalent.
func (a Ad) Normalize() (Ad, error) {
	if strings.TrimSpace(a.ID) == "" {
		return Ad{}, fmt.Errorf("ad %q: missing ad_id", a.Title)
	}
	age, ok := ageSynonyms[strings.ToLower(strings.TrimSpace(a.AgeGroup))]
	if !ok {
		return Ad{}, fmt.Errorf("ad %s: unknown age_group %q", a.ID, a.AgeGroup)
	}
	gender, ok := genderSynonyms[strings.ToLower(strings.TrimSpace(a.Gender))]
	if !ok {
		return Ad{}, fmt.Errorf("ad %s: unknown gender %q", a.ID, a.Gender)
	}
	temp, ok := temperatureSynonyms[strings.ToLower(strings.TrimSpace(a.Temperature))]
	if !ok {
		return Ad{}, fmt.Errorf("ad %s: unknown temperature %q", a.ID, a.Temperature)
	}
	hum, ok := humiditySynonyms[strings.ToLower(strings.TrimSpace(a.Humidity))]
	if !ok {
		return Ad{}, fmt.Errorf("ad %s: unknown humidity %q", a.ID, a.Humidity)
	}
	a.AgeGroup, a.Gender, a.Temperature, a.Humidity = age, gender, temp, hum
	return a, nil
}

// FieldValue returns the ad's value for a criteria field name. Unknown field
// names return the empty string, which FieldMatches treats as a wildcard, so
// stray criteria keys never filter anything out.
func (a Ad) FieldValue(field string) string {
	switch field {
	case FieldAgeGroup:
		return a.AgeGroup
	case FieldGender:
		return a.Gender
	case FieldTemperature:
		return a.Temperature
	case FieldHumidity:
		return a.Humidity
	}
	return ""
}
