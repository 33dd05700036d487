// Package pgqueue carries the coverage events through a postgres job queue (pgq), in the store database
package pgqueue

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/utils"
	"github.com/btubbs/pgq"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// DefaultQueue is the queue of the coverage events
const DefaultQueue = "coverstore-events"

type PublisherOption func(o *Publisher)
type ConsumerOption func(o *Consumer)

func WithMaxRetries(maxRetries int) PublisherOption {
	return func(p *Publisher) {
		p.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the first delay between two retries (doubled at each retry)
func WithRetryDelay(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.retryDelay = d
	}
}

// Publisher implements messaging.Publisher
type Publisher struct {
	enqueue    enqueueFunc
	queueName  string
	maxRetries int
	retryDelay time.Duration
}

type enqueueFunc func(queueName string, data []byte) (int, error)

// Consumer implements messaging.Consumer
type Consumer struct {
	db        *sql.DB
	worker    *pgq.Worker
	queueName string
	run       bool
}

// SetDefaultLogger makes pgq log its warnings in json (pgq uses logrus)
func SetDefaultLogger() pgq.WorkerOption {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.WarnLevel)
	logger.SetOutput(os.Stdout)
	return pgq.SetLogger(logger)
}

// SqlConnect opens the database hosting the queue and returns a worker to publish events
func SqlConnect(ctx context.Context, dbConnection string) (*sql.DB, *pgq.Worker, error) {
	db, err := sql.Open("postgres", dbConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("pgqueue.Connect: %w", err)
	}
	db.SetMaxOpenConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, utils.MakeTemporary(fmt.Errorf("pgqueue.Connect: failed to ping database: %w", err))
	}

	return db, pgq.NewWorker(db, SetDefaultLogger()), nil
}

// NewPublisher returns a pg queue publisher.
// A publisher can share its worker with another instance
func NewPublisher(w *pgq.Worker, queueName string, opts ...PublisherOption) *Publisher {
	return newPublisher(func(queueName string, data []byte) (int, error) {
		return w.EnqueueJob(queueName, data)
	}, queueName, opts...)
}

func newPublisher(enqueue enqueueFunc, queueName string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		queueName:  queueName,
		enqueue:    enqueue,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish implements messaging.Publisher
func (p *Publisher) Publish(ctx context.Context, data ...[]byte) error {
	for retry := 0; ; retry++ {
		var failed [][]byte
		for _, d := range data {
			_, err := p.enqueue(p.queueName, d)
			switch {
			case err == nil:
			case utils.Temporary(err) && retry < p.maxRetries:
				failed = append(failed, d)
			default:
				return fmt.Errorf("pgQueue.Publish: %w", err)
			}
		}
		if len(failed) == 0 {
			return nil
		}
		log.Logger(ctx).Debug("retrying to publish", zap.Int("messages", len(failed)), zap.Int("retry", retry+1))
		if err := utils.Backoff(ctx, p.retryDelay, retry); err != nil {
			return err
		}
		data = failed
	}
}

// NewConsumer returns a pg queue consumer.
// A consumer cannot share the worker with another instance
func NewConsumer(db *sql.DB, queueName string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		db:        db,
		queueName: queueName,
		worker:    pgq.NewWorker(db, SetDefaultLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pull implements messaging.Consumer. It runs the worker until Stop is called.
func (c *Consumer) Pull(ctx context.Context, cb messaging.Callback) error {
	h := handler{ctx: ctx, cb: cb}
	if err := c.worker.RegisterQueue(c.queueName, h.handle); err != nil {
		return fmt.Errorf("pgQueue.Pull.RegisterQueue: %w", err)
	}
	c.run = true
	return c.worker.Run()
}

func (c *Consumer) Stop() {
	if c.run {
		c.run = false
		c.worker.StopChan <- true
	}
}

// handler calls the callback with the job as a message
type handler struct {
	ctx context.Context
	cb  messaging.Callback
}

// handle returns an error (the job is retried by pgq) only if the callback failed temporarily
func (h handler) handle(data []byte) error {
	if err := h.cb(h.ctx, &messaging.Message{
		Data:       data,
		Attributes: map[string]string{},
		TryCount:   -1,
	}); err != nil {
		if utils.Temporary(err) {
			log.Logger(h.ctx).Warn("Temporary error: " + err.Error())
			return err
		}
		log.Logger(h.ctx).Error("Fatal error: " + err.Error())
	}
	return nil
}

// Backlog returns the number of jobs waiting in the queue
func (c *Consumer) Backlog(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, `
		SELECT count(*) FROM pgq_jobs
		WHERE
			queue_name = $1
			AND run_after < $2
			AND ran_at IS NULL;`, c.queueName, time.Now()).Scan(&count); err != nil {
		return -1, fmt.Errorf("Backlog: could not count jobs: %w", err)
	}
	return count, nil
}
