// Package rtc is the boundary to the real-time session provider. A join
// yields a one-time provider credential; a Connector spends it to establish
// the live session.
package rtc

import "context"

// Session is an established real-time session.
type Session interface {
	Close() error
}

// Connector establishes a real-time session from a provider credential.
type Connector interface {
	Connect(ctx context.Context, credential string) (Session, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, credential string) (Session, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, credential string) (Session, error) {
	return f(ctx, credential)
}
