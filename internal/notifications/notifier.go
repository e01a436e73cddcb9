package notifications

import "context"

type SendPINInput struct {
	Email string
	Name  string
	PIN   string
}

// Notifier delivers a freshly issued PIN out of band. Implementations must not persist the PIN.
type Notifier interface {
	SendPIN(ctx context.Context, input SendPINInput) error
}
