// Package publisher defines how finished nights are announced downstream.
package publisher

import "context"

// Publisher pushes one event payload to a topic and returns a message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
