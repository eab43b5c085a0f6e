// internal/domain/push/gateway.go
package push

import "context"

// Gateway delivers one message to many recipients in a single logical call.
// Success and failure are reported per call, not per recipient.
type Gateway interface {
	Multicast(ctx context.Context, recipients []string, msg Message) error
}
