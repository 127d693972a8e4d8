package models

import (
	"errors"
	"testing"
)

func TestInMemoryCatalog_FilterAdsEmptyCriteria(t *testing.T) {
	catalog := NewTestCatalog()

	all := catalog.GetAllAds()
	filtered := catalog.FilterAds(Criteria{})

	if len(filtered) != len(all) {
		t.Fatalf("Expected %d ads, got %d", len(all), len(filtered))
	}
	for i := range all {
		if filtered[i].ID != all[i].ID {
			t.Errorf("Order changed at index %d: expected %s, got %s", i, all[i].ID, filtered[i].ID)
		}
	}
}

func TestInMemoryCatalog_GetAllAdsIdempotent(t *testing.T) {
	catalog := NewTestCatalog()

	first := catalog.GetAllAds()
	second := catalog.GetAllAds()

	if len(first) != len(second) {
		t.Fatalf("Expected identical lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Sequence differs at index %d", i)
		}
	}

	// Mutating the returned slice must not affect the catalog
	first[0].Title = "mutated"
	if got, _ := catalog.GetAdByID(first[0].ID); got.Title == "mutated" {
		t.Error("Returned slice shares backing storage with the catalog")
	}
}

func TestInMemoryCatalog_GetAdByID(t *testing.T) {
	catalog := NewTestCatalog()

	ad, err := catalog.GetAdByID("16")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ad.Title != "coca cola" {
		t.Errorf("Expected coca cola, got %s", ad.Title)
	}

	_, err = catalog.GetAdByID("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryCatalog_WildcardNeverFiltered(t *testing.T) {
	catalog := NewTestCatalog(
		Ad{ID: "w", Title: "wildcard", AgeGroup: "all", Gender: "both", Temperature: "any", Humidity: "any"},
	)

	testCases := []Criteria{
		{FieldAgeGroup: AgeChild, FieldGender: GenderMale, FieldTemperature: TempCold, FieldHumidity: HumidityLow},
		{FieldAgeGroup: AgeSenior, FieldGender: GenderFemale, FieldTemperature: TempHot, FieldHumidity: HumidityHigh},
		{FieldTemperature: TempMild},
	}
	for _, criteria := range testCases {
		if got := catalog.FilterAds(criteria); len(got) != 1 {
			t.Errorf("Wildcard ad filtered out by criteria %v", criteria)
		}
	}
}

func TestInMemoryCatalog_CriterionWildcardMatchesEverything(t *testing.T) {
	catalog := NewTestCatalog()

	// A wildcard criterion value must not narrow the catalog.
	got := catalog.FilterAds(Criteria{FieldAgeGroup: "all", FieldGender: "both"})
	if len(got) != catalog.Len() {
		t.Errorf("Expected full catalog (%d), got %d", catalog.Len(), len(got))
	}
}

func TestInMemoryCatalog_FilterAdsSpecificMatch(t *testing.T) {
	catalog := NewTestCatalog()

	got := catalog.FilterAds(Criteria{FieldTemperature: TempHot, FieldHumidity: HumidityHigh})
	// sunscreen, singapore airlines, ice cream match directly; wildcard fields
	// on other ads do not apply here since every default ad is fully
	// specified except the all/both demographics.
	wantIDs := map[string]bool{"18": true, "17": true, "13": true}
	if len(got) != len(wantIDs) {
		t.Fatalf("Expected %d ads, got %d", len(wantIDs), len(got))
	}
	for _, ad := range got {
		if !wantIDs[ad.ID] {
			t.Errorf("Unexpected ad %s in result", ad.ID)
		}
	}
}

func TestInMemoryCatalog_GetMatchingAdsTwoModes(t *testing.T) {
	catalog := NewTestCatalog()

	env := EnvironmentalContext{TemperatureCategory: TempHot, HumidityCategory: HumidityHigh}

	// Audience absent: only environmental criteria apply.
	absent := AbsentAudience()
	envOnly := catalog.GetMatchingAds(env, absent)
	if len(envOnly) != 3 {
		t.Fatalf("Expected 3 environment matches, got %d", len(envOnly))
	}

	// Audience present: demographic criteria narrow the set further.
	present := AudienceProfile{
		Present:            true,
		Count:              2,
		AgeGroup:           AgeChild,
		GenderDistribution: GenderMostlyMale,
	}
	matched := catalog.GetMatchingAds(env, present)
	// Only ice cream (child/both) survives the age criterion.
	if len(matched) != 1 || matched[0].ID != "13" {
		t.Fatalf("Expected only ad 13, got %v", matched)
	}
}

func TestInMemoryCatalog_SetAdsRejectsBadBatch(t *testing.T) {
	catalog := NewInMemoryCatalog()
	if err := catalog.SetAds(DefaultAds()); err != nil {
		t.Fatalf("Failed to load default catalog: %v", err)
	}

	bad := []Ad{
		{ID: "1", Title: "ok", AgeGroup: "adult", Gender: "male", Temperature: "hot", Humidity: "low"},
		{ID: "2", Title: "bad", AgeGroup: "martian", Gender: "male", Temperature: "hot", Humidity: "low"},
	}
	if err := catalog.SetAds(bad); err == nil {
		t.Fatal("Expected error for unknown age_group")
	}

	// The previous catalog must still be live after a rejected reload.
	if catalog.Len() != len(DefaultAds()) {
		t.Errorf("Catalog changed after failed reload: len=%d", catalog.Len())
	}
}

func TestInMemoryCatalog_CRUD(t *testing.T) {
	catalog := NewInMemoryCatalog()
	if err := catalog.SetAds(DefaultAds()); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	newAd := Ad{ID: "20", Title: "lemonade", ImageFile: "lemonade.jpg", AgeGroup: "all", Gender: "both", Temperature: "hot", Humidity: "low"}
	if err := catalog.InsertAd(newAd); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := catalog.InsertAd(newAd); err == nil {
		t.Error("Expected duplicate id error")
	}

	all := catalog.GetAllAds()
	if all[len(all)-1].ID != "20" {
		t.Error("Inserted ad should be last in insertion order")
	}

	newAd.Title = "fresh lemonade"
	if err := catalog.UpdateAd(newAd); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := catalog.GetAdByID("20")
	if got.Title != "fresh lemonade" {
		t.Errorf("Update not applied, got %s", got.Title)
	}

	if err := catalog.UpdateAd(Ad{ID: "999", AgeGroup: "all", Gender: "both", Temperature: "any", Humidity: "any"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := catalog.DeleteAd("20"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := catalog.GetAdByID("20"); !errors.Is(err, ErrNotFound) {
		t.Error("Ad still present after delete")
	}
	if err := catalog.DeleteAd("20"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestAdNormalize_LegacySynonyms(t *testing.T) {
	testCases := []struct {
		name string
		in   Ad
		want Ad
	}{
		{
			name: "dynamodb export vocabulary",
			in:   Ad{ID: "14", Title: "insurance", AgeGroup: "elderly", Gender: "BOTH", Temperature: "moderate", Humidity: "medium"},
			want: Ad{ID: "14", Title: "insurance", AgeGroup: AgeSenior, Gender: GenderBoth, Temperature: TempMild, Humidity: HumidityMedium},
		},
		{
			name: "rainy temperature maps to cold",
			in:   Ad{ID: "12", Title: "umbrella", AgeGroup: "all", Gender: "both", Temperature: "rainy", Humidity: "high"},
			want: Ad{ID: "12", Title: "umbrella", AgeGroup: AgeAll, Gender: GenderBoth, Temperature: TempCold, Humidity: HumidityHigh},
		},
		{
			name: "empty fields become wildcards",
			in:   Ad{ID: "x", Title: "sparse"},
			want: Ad{ID: "x", Title: "sparse", AgeGroup: AgeAll, Gender: GenderBoth, Temperature: TempAny, Humidity: HumidityAny},
		},
		{
			name: "plural forms",
			in:   Ad{ID: "y", Title: "p", AgeGroup: "teenagers", Gender: "female", Temperature: "warm", Humidity: "low"},
			want: Ad{ID: "y", Title: "p", AgeGroup: AgeTeen, Gender: GenderFemale, Temperature: TempMild, Humidity: HumidityLow},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Normalize()
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Normalize = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestAdNormalize_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		in   Ad
	}{
		{name: "missing id", in: Ad{Title: "no id", AgeGroup: "adult", Gender: "male", Temperature: "hot", Humidity: "low"}},
		{name: "unknown gender", in: Ad{ID: "1", AgeGroup: "adult", Gender: "robot", Temperature: "hot", Humidity: "low"}},
		{name: "unknown humidity", in: Ad{ID: "1", AgeGroup: "adult", Gender: "male", Temperature: "hot", Humidity: "soggy"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.in.Normalize(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestFieldMatches(t *testing.T) {
	testCases := []struct {
		adValue   string
		criterion string
		want      bool
	}{
		{"hot", "hot", true},
		{"hot", "cold", false},
		{"any", "cold", true},
		{"hot", "any", true},
		{"all", "child", true},
		{"male", "both", true},
		{"male", "female", false},
		{"Male", "MALE", true},
		{"", "hot", true},
	}
	for _, tc := range testCases {
		if got := FieldMatches(tc.adValue, tc.criterion); got != tc.want {
			t.Errorf("FieldMatches(%q, %q) = %v, want %v", tc.adValue, tc.criterion, got, tc.want)
		}
	}
}

func TestAudienceProfile_GenderTarget(t *testing.T) {
	testCases := []struct {
		distribution string
		want         string
	}{
		{GenderMostlyMale, GenderMale},
		{GenderMostlyFemale, GenderFemale},
		{GenderMixed, GenderBoth},
		{"", GenderBoth},
	}
	for _, tc := range testCases {
		p := AudienceProfile{GenderDistribution: tc.distribution}
		if got := p.GenderTarget(); got != tc.want {
			t.Errorf("GenderTarget(%q) = %q, want %q", tc.distribution, got, tc.want)
		}
	}
}
