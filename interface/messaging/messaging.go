package messaging

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Publisher is an interface to publish messages
type Publisher interface {
	Publish(ctx context.Context, data ...[]byte) error
}

type Message struct {
	ID          string
	Data        []byte
	Attributes  map[string]string
	PublishTime time.Time
	TryCount    int
}

// Callback is a function that processes a Message.
type Callback func(ctx context.Context, m *Message) error

// Consumer is an interface to consume messages
type Consumer interface {
	// Pull the next message, call callback and return
	Pull(ctx context.Context, cb Callback) error
}

// PushConsumer handles the messages pushed to an http endpoint
type PushConsumer interface {
	// Consume the request, call callback and return http code
	Consume(req *http.Request, cb Callback) (int, error)
}

// EventKind is the kind of change of a coverage
type EventKind string

const (
	// SectionAdded: a section has been added to a coverage (that may have been created)
	SectionAdded EventKind = "SectionAdded"
)

// CoverageEvent notifies a change of a coverage of a store
type CoverageEvent struct {
	Store     string    `json:"store"`
	Coverage  string    `json:"coverage"`
	Section   string    `json:"section,omitempty"`
	SectionID int64     `json:"section_id"`
	Kind      EventKind `json:"kind"`
}

// MarshalEvent encodes the event as a message payload
func MarshalEvent(evt CoverageEvent) ([]byte, error) {
	return json.Marshal(evt)
}

// UnmarshalEvent decodes a message payload
func UnmarshalEvent(data []byte) (CoverageEvent, error) {
	var evt CoverageEvent
	err := json.Unmarshal(data, &evt)
	return evt, err
}

// EventCallback returns a Callback decoding the CoverageEvent of the message.
// A message that is not an event returns a non-temporary error: consumers acknowledge it.
func EventCallback(fn func(ctx context.Context, evt CoverageEvent) error) Callback {
	return func(ctx context.Context, m *Message) error {
		evt, err := UnmarshalEvent(m.Data)
		if err != nil {
			return fmt.Errorf("invalid coverage event %q: %w", m.ID, err)
		}
		if evt.Coverage == "" {
			return fmt.Errorf("invalid coverage event %q: no coverage", m.ID)
		}
		return fn(ctx, evt)
	}
}
