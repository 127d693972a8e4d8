package models

// DefaultAds returns the stock 8-ad catalog carried over from the original
// DynamoDB export, already in canonical vocabulary. It seeds an empty
// Postgres catalog and serves as the fallback when no database is
// configured.
func DefaultAds() []Ad {
	return []Ad{
		{ID: "19", Title: "zara", ImageFile: "zara.jpg", AgeGroup: AgeAdult, Gender: GenderFemale, Temperature: TempCold, Humidity: HumidityHigh},
		{ID: "18", Title: "sunscreen", ImageFile: "sunscreen.jpg", AgeGroup: AgeTeen, Gender: GenderFemale, Temperature: TempHot, Humidity: HumidityHigh},
		{ID: "17", Title: "singapore airlines", ImageFile: "sia.jpg", AgeGroup: AgeAdult, Gender: GenderBoth, Temperature: TempHot, Humidity: HumidityHigh},
		{ID: "16", Title: "coca cola", ImageFile: "cocacola.jpg", AgeGroup: AgeAll, Gender: GenderBoth, Temperature: TempHot, Humidity: HumidityLow},
		{ID: "15", Title: "bmw", ImageFile: "bmw.jpg", AgeGroup: AgeAdult, Gender: GenderMale, Temperature: TempMild, Humidity: HumidityMedium},
		{ID: "14", Title: "insurance", ImageFile: "insurance.jpg", AgeGroup: AgeSenior, Gender: GenderBoth, Temperature: TempMild, Humidity: HumidityMedium},
		{ID: "13", Title: "ice cream", ImageFile: "icecream.jpg", AgeGroup: AgeChild, Gender: GenderBoth, Temperature: TempHot, Humidity: HumidityHigh},
		{ID: "12", Title: "umbrella", ImageFile: "umbrella.jpg", AgeGroup: AgeAll, Gender: GenderBoth, Temperature: TempCold, Humidity: HumidityHigh},
	}
}
