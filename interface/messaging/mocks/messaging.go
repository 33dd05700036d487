// Package mocks provides testify mocks of the messaging interfaces
package mocks

import (
	"context"
	"net/http"
	"sync"

	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/stretchr/testify/mock"
)

// Publisher is a mock of messaging.Publisher recording the published payloads
type Publisher struct {
	mock.Mock

	mu        sync.Mutex
	published [][]byte
}

var _ messaging.Publisher = &Publisher{}

// Publish calls the mock with (ctx, data) and records data on success
func (_m *Publisher) Publish(ctx context.Context, data ...[]byte) error {
	ret := _m.Called(ctx, data)

	var err error
	if rf, ok := ret.Get(0).(func(context.Context, [][]byte) error); ok {
		err = rf(ctx, data)
	} else {
		err = ret.Error(0)
	}
	if err == nil {
		_m.mu.Lock()
		_m.published = append(_m.published, data...)
		_m.mu.Unlock()
	}
	return err
}

// Events decodes the payloads published successfully
func (_m *Publisher) Events() ([]messaging.CoverageEvent, error) {
	_m.mu.Lock()
	defer _m.mu.Unlock()
	events := make([]messaging.CoverageEvent, 0, len(_m.published))
	for _, d := range _m.published {
		evt, err := messaging.UnmarshalEvent(d)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, nil
}

// Consumer is a mock of messaging.Consumer
type Consumer struct {
	mock.Mock
}

var _ messaging.Consumer = &Consumer{}

func (_m *Consumer) Pull(ctx context.Context, cb messaging.Callback) error {
	ret := _m.Called(ctx, cb)
	if rf, ok := ret.Get(0).(func(context.Context, messaging.Callback) error); ok {
		return rf(ctx, cb)
	}
	return ret.Error(0)
}

// PushConsumer is a mock of messaging.PushConsumer
type PushConsumer struct {
	mock.Mock
}

var _ messaging.PushConsumer = &PushConsumer{}

// Consume returns either (Return(code, err)) or (Return(func(req, cb) int, func(req, cb) error)).
// A nil second return value is a nil error.
func (_m *PushConsumer) Consume(req *http.Request, cb messaging.Callback) (int, error) {
	ret := _m.Called(req, cb)

	var code int
	switch rf := ret.Get(0).(type) {
	case func(*http.Request, messaging.Callback) int:
		code = rf(req, cb)
	default:
		code = ret.Int(0)
	}

	if rf, ok := ret.Get(1).(func(*http.Request, messaging.Callback) error); ok {
		return code, rf(req, cb)
	}
	return code, ret.Error(1)
}
