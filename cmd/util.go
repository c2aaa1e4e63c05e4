package cmd

import (
	"context"
	"time"
)

// cmdContext bounds a one-shot CLI operation.
func cmdContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
