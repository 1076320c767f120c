package model

// Notifier delivers alert messages to an external channel, such as email.
type Notifier interface {
	Send(subject, body string) error
}
