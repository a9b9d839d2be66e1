package models

// Outcome is what the UI should do after an account or checkout action: show
// Message, follow Redirect, or both. Data carries the successful payload.
type Outcome struct {
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Data     any    `json:"data,omitempty"`
}
