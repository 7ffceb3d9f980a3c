package domain

import "context"

// Worker is a background loop started at process boot and stopped by
// cancelling its context.
type Worker interface {
	Start(ctx context.Context)
}
