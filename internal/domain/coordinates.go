package domain

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Return coordinates as "lat,lon" for trip planner query parameters.
func (c Coordinates) LatLonString() string {
	return formatFloat(c.Lat) + "," + formatFloat(c.Lon)
}
