package weather

// Sky condition labels written into the environment feed. The casing matches
// the historical feed entries, so it is load-bearing for consumers.
const (
	Clear     = "Clear"
	Cloudy    = "Cloudy"
	Rain      = "Rain"
	HeavyRain = "Heavy Rain"
	Sunny     = "Sunny"
	Unknown   = "Unknown"
)

// PredictLocal classifies the sky condition from the board's own sensor
// reading combined with API conditions. The thresholds were tuned for the
// original deployment site (tropical, sea-level pressure); rule order
// matters, broad fallbacks come last.
func PredictLocal(sensorTemp, sensorHumidity float64, api Conditions) string {
	avgTemp := (sensorTemp + api.Temperature) / 2
	avgHumidity := (sensorHumidity + api.Humidity) / 2

	switch {
	// Clear: moderate humidity, high pressure.
	case avgTemp >= 27 && avgTemp <= 30 && avgHumidity < 70 && api.Pressure > 1010:
		return Clear
	// Cloudy: high humidity, moderate temperature.
	case avgTemp >= 25 && avgTemp <= 30 && avgHumidity >= 70 && avgHumidity < 85 && api.Pressure >= 1000 && api.Pressure <= 1010:
		return Cloudy
	// Rain: very high humidity on both sources, low pressure.
	case avgHumidity >= 85 && api.Humidity >= 85 && api.Pressure < 1000:
		return Rain
	// Heavy rain: very low pressure, extreme humidity.
	case api.Pressure < 990 && api.Humidity > 90:
		return HeavyRain
	// Sunny: very hot, lower humidity.
	case avgTemp > 30 && avgHumidity < 65:
		return Sunny
	// Clear: warm temperature, humidity ignored.
	case avgTemp >= 27 && avgTemp <= 30:
		return Clear
	// Sunny: high temperature, humidity ignored.
	case avgTemp > 31:
		return Sunny
	}
	return Unknown
}
