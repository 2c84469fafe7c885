package coordinator

import (
	"fmt"
	"time"
)

// Config defines coordinator timing and matching settings.
type Config struct {
	// FeedbackWindowSeconds is how long the audible/haptic cue runs before
	// it is auto-silenced.
	FeedbackWindowSeconds int `json:"feedback_window_seconds"`
	// LocationPushSeconds is the interval of the periodic location refresh
	// while an alert is active.
	LocationPushSeconds int `json:"location_push_seconds"`
	// AckTimeoutSeconds bounds the wait for a helper push acknowledgment.
	AckTimeoutSeconds int `json:"ack_timeout_seconds"`
	// HelperRadiusKm is the search radius for the nearby-helper lookup.
	HelperRadiusKm float64 `json:"helper_radius_km"`
	// FanoutWorkers bounds the contact notification parallelism.
	FanoutWorkers int `json:"fanout_workers"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.FeedbackWindowSeconds <= 0 {
		c.FeedbackWindowSeconds = 30
	}
	if c.LocationPushSeconds <= 0 {
		c.LocationPushSeconds = 7
	}
	if c.AckTimeoutSeconds <= 0 {
		c.AckTimeoutSeconds = 5
	}
	if c.HelperRadiusKm <= 0 {
		c.HelperRadiusKm = 10
	}
	if c.FanoutWorkers <= 0 {
		c.FanoutWorkers = 4
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.LocationPushSeconds < 1 {
		return fmt.Errorf("location_push_seconds must be positive")
	}
	if c.HelperRadiusKm <= 0 {
		return fmt.Errorf("helper_radius_km must be positive")
	}
	return nil
}

// FeedbackWindow returns the cue window as a duration.
func (c Config) FeedbackWindow() time.Duration {
	return time.Duration(c.FeedbackWindowSeconds) * time.Second
}

// LocationPushInterval returns the location refresh interval as a duration.
func (c Config) LocationPushInterval() time.Duration {
	return time.Duration(c.LocationPushSeconds) * time.Second
}

// AckTimeout returns the push acknowledgment timeout as a duration.
func (c Config) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutSeconds) * time.Second
}
