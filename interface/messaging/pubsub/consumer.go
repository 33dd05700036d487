package pubsub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/apiv1"
	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/utils"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client consumes the coverage events of a pubsub subscription
type Client struct {
	ps                        *gcppubsub.SubscriberClient
	projectID, subscriptionID string
	processOpts               processOptions
}

var _ messaging.Consumer = &Client{}
var _ messaging.PushConsumer = &Client{}

type consumerOptions struct {
	ps *gcppubsub.SubscriberClient
}

type ConsumerOption func(o *consumerOptions)

// Pull implements messaging.Consumer
func (c *Client) Pull(ctx context.Context, cb messaging.Callback) error {
	return c.Process(ctx, cb)
}

// DefaultSubscriberClient connects to pubsub, or to the emulator if PUBSUB_EMULATOR_HOST is defined
func DefaultSubscriberClient(ctx context.Context) (*gcppubsub.SubscriberClient, error) {
	var o []option.ClientOption
	if addr := os.Getenv("PUBSUB_EMULATOR_HOST"); addr != "" {
		o = []option.ClientOption{
			option.WithEndpoint(addr),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}
	}
	return gcppubsub.NewSubscriberClient(ctx, o...)
}

func WithSubscriberClient(ps *gcppubsub.SubscriberClient) ConsumerOption {
	return func(o *consumerOptions) {
		o.ps = ps
	}
}

// NewConsumer returns a pubsub client.
func NewConsumer(projectID, subscriptionID string, opts ...ConsumerOption) (*Client, error) {
	clOpts := consumerOptions{}
	for _, o := range opts {
		o(&clOpts)
	}
	return &Client{
		ps:             clOpts.ps,
		projectID:      projectID,
		subscriptionID: subscriptionID,
		processOpts: processOptions{
			ExtensionPeriod:   time.Minute,
			OnErrorRetryDelay: -1,
		},
	}, nil
}

type processOptions struct {
	ExtensionPeriod   time.Duration
	ReturnImmediately bool
	OnErrorRetryDelay time.Duration
}

type ProcessOption func(o *processOptions)

// ExtensionPeriod is the duration by which to extend the ack deadline at a time,
// while the callback is running.
func ExtensionPeriod(t time.Duration) ProcessOption {
	if t > 10*time.Minute {
		panic("ExtensionPeriod must be <= 10 minutes")
	}
	return func(o *processOptions) {
		o.ExtensionPeriod = t
	}
}

// OnErrorRetryDelay sets the delay before the redelivery of a message whose callback failed temporarily
// (negative: the ack deadline is left as is)
func OnErrorRetryDelay(t time.Duration) ProcessOption {
	return func(o *processOptions) {
		o.OnErrorRetryDelay = t
	}
}

// ReturnImmediately will return nil immediately if there are no messages to process. If
// not set, Process will block until a message becomes available
func ReturnImmediately() ProcessOption {
	return func(o *processOptions) {
		o.ReturnImmediately = true
	}
}

func (c *Client) SetProcessOption(opts ...ProcessOption) {
	for _, o := range opts {
		o(&c.processOpts)
	}
}

func (c *Client) subscription() string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", c.projectID, c.subscriptionID)
}

// Process pulls one message and calls cb, extending the ack deadline until cb returns.
// The message is acknowledged unless cb fails with a temporary error.
func (c *Client) Process(ctx context.Context, cb messaging.Callback) error {
	if c.ps == nil {
		var err error
		if c.ps, err = DefaultSubscriberClient(context.Background()); err != nil {
			return fmt.Errorf("create subscriber client: %w", err)
		}
	}

	sub := c.subscription()
	req := pubsubpb.PullRequest{
		Subscription: sub,
		MaxMessages:  1,
	}

	var res *pubsubpb.PullResponse
	var err error
	for {
		if res, err = c.ps.Pull(ctx, &req); err != nil {
			return fmt.Errorf("ps.pull: %w", err)
		}
		if len(res.ReceivedMessages) > 0 {
			break
		}
		if c.processOpts.ReturnImmediately {
			return nil
		}
	}
	received := res.ReceivedMessages[0]
	ackIDs := []string{received.AckId}

	cbCtx, cncl := context.WithCancel(ctx)
	defer cncl()
	done := make(chan error, 1)
	go func() {
		done <- cb(cbCtx, &messaging.Message{
			ID:          received.Message.MessageId,
			Attributes:  received.Message.Attributes,
			Data:        received.Message.Data,
			PublishTime: received.Message.GetPublishTime().AsTime(),
			TryCount:    int(received.DeliveryAttempt),
		})
	}()

	var extend <-chan time.Time
	if c.processOpts.ExtensionPeriod > 0 {
		ticker := time.NewTicker(c.processOpts.ExtensionPeriod / 2)
		defer ticker.Stop()
		extend = ticker.C
	}
	for {
		select {
		case err := <-done:
			if err != nil && utils.Temporary(err) {
				log.Logger(ctx).Warn("Temporary error: " + err.Error())
				if c.processOpts.OnErrorRetryDelay < 0 {
					return nil
				}
				return c.ps.ModifyAckDeadline(ctx, &pubsubpb.ModifyAckDeadlineRequest{
					Subscription:       sub,
					AckIds:             ackIDs,
					AckDeadlineSeconds: int32(c.processOpts.OnErrorRetryDelay.Seconds()),
				})
			}
			if err != nil {
				log.Logger(ctx).Error("Fatal error: " + err.Error())
			}
			return c.ps.Acknowledge(ctx, &pubsubpb.AcknowledgeRequest{Subscription: sub, AckIds: ackIDs})
		case <-extend:
			if err := c.ps.ModifyAckDeadline(ctx, &pubsubpb.ModifyAckDeadlineRequest{
				Subscription:       sub,
				AckIds:             ackIDs,
				AckDeadlineSeconds: int32(c.processOpts.ExtensionPeriod.Seconds()),
			}); err != nil {
				log.Logger(ctx).Warn("error extending the ack deadline", zap.Error(err))
			}
		}
	}
}

// pushRequest is the body of a push subscription request
type pushRequest struct {
	Message struct {
		Attributes  map[string]string `json:"attributes"`
		Data        []byte            `json:"data"`
		ID          string            `json:"messageId"`
		PublishTime time.Time         `json:"publishTime"`
	} `json:"message"`
	Subscription    string `json:"subscription"`
	DeliveryAttempt int    `json:"deliveryAttempt"`
}

// Consume implements messaging.PushConsumer. It returns the http status expected by pubsub:
// 200 acknowledges the message, 503 requests a redelivery.
func (c *Client) Consume(req *http.Request, cb messaging.Callback) (int, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return http.StatusServiceUnavailable, fmt.Errorf("Consume.ReadAll: %w", err)
	}
	var msg pushRequest
	if err := json.Unmarshal(body, &msg); err != nil {
		return http.StatusBadRequest, fmt.Errorf("Consume.Unmarshal: %w", err)
	}
	if err := cb(req.Context(), &messaging.Message{
		ID:          msg.Message.ID,
		Data:        msg.Message.Data,
		Attributes:  msg.Message.Attributes,
		PublishTime: msg.Message.PublishTime,
		TryCount:    msg.DeliveryAttempt,
	}); err != nil {
		if utils.Temporary(err) {
			return http.StatusServiceUnavailable, err
		}
		log.Logger(req.Context()).Error("Fatal error: " + err.Error())
	}
	return http.StatusOK, nil
}
