package model

import "time"

// Location is an immutable geographic fix. AccuracyM is the estimated
// horizontal accuracy in meters; zero means the accuracy is unknown.
type Location struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	Address    string    `json:"address,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Valid reports whether the coordinates are within the WGS84 domain.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// IsZero reports whether the location carries no fix at all.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0 && l.CapturedAt.IsZero()
}
