package coordinator

// Feedback drives the audible and haptic cue that runs while an alert is
// being raised. Stop must be safe to call multiple times and before Start.
type Feedback interface {
	Start()
	Stop()
}

// NopFeedback implements Feedback with no-op methods.
type NopFeedback struct{}

func (NopFeedback) Start() {}
func (NopFeedback) Stop()  {}
