package sms

import "context"

// SegmentLimit is the single-segment character limit of the SMS transport.
const SegmentLimit = 160

// Client represents an SMS transport capable of delivering a single-segment
// message or a multipart message to one phone number.
type Client interface {
	// Send delivers a message that fits in a single segment.
	Send(ctx context.Context, phone, text string) error

	// SendMultipart delivers a message split into segments using the
	// channel's multipart primitive. It returns an error if any segment
	// fails to deliver.
	SendMultipart(ctx context.Context, phone string, parts []string) error
}
