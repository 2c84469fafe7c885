package sms

import "errors"

// ErrNoRecipient is returned when a send is attempted without a phone number.
var ErrNoRecipient = errors.New("sms: no recipient phone number")
