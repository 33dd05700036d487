// Package pubsub carries the coverage events through Google Cloud Pub/Sub
package pubsub

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/internal/utils"
)

type publisherOptions struct {
	maxRetries int
}

type PublisherOption func(o *publisherOptions)

func WithMaxRetries(maxRetries int) PublisherOption {
	return func(o *publisherOptions) {
		o.maxRetries = maxRetries
	}
}

// Publisher implements messaging.Publisher
type Publisher struct {
	client     *pubsub.Client
	topic      *pubsub.Topic
	maxRetries int
}

var _ messaging.Publisher = &Publisher{}

// NewPublisher creates a pubsub publisher
func NewPublisher(ctx context.Context, projectID, topic string, opts ...PublisherOption) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewPublisher.NewClient: %w", err)
	}

	clOpts := publisherOptions{}
	for _, o := range opts {
		o(&clOpts)
	}

	return &Publisher{client: client, topic: client.Topic(topic), maxRetries: clOpts.maxRetries}, nil
}

// Publish implements messaging.Publisher
func (p *Publisher) Publish(ctx context.Context, data ...[]byte) error {
	for retry := 0; ; retry++ {
		results := make([]*pubsub.PublishResult, len(data))
		for i, d := range data {
			results[i] = p.topic.Publish(ctx, &pubsub.Message{Data: d})
		}
		var failed [][]byte
		for i, r := range results {
			// Block until the server returns the id of the message
			if _, err := r.Get(ctx); err != nil {
				if !utils.Temporary(err) || retry >= p.maxRetries {
					return fmt.Errorf("Publish: %w", err)
				}
				failed = append(failed, data[i])
			}
		}
		if len(failed) == 0 {
			return nil
		}
		if err := utils.Backoff(ctx, time.Second, retry); err != nil {
			return err
		}
		data = failed
	}
}

// Stop flushes the pending messages and releases the client
func (p *Publisher) Stop() error {
	p.topic.Stop()
	return p.client.Close()
}
