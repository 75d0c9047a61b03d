/*
Copyright 2024 The CloudEnvelope Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package client is a small convenience layer for producing events over
// HTTP: it fills in defaults (id, time), validates and sends.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventmesh-io/cloudenvelope/binding"
	cehttp "github.com/eventmesh-io/cloudenvelope/binding/http"
	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/format/json"
)

// Defaulter fills in an unset attribute before the event is validated.
type Defaulter func(e *event.Event)

// DefaultIDToUUID assigns a fresh UUID when the id is unset.
func DefaultIDToUUID(e *event.Event) {
	if e.ID() == "" {
		_ = e.SetID(uuid.NewString())
	}
}

// DefaultTimeToNow assigns the current time when the timestamp is unset.
func DefaultTimeToNow(e *event.Event) {
	if e.Time().IsZero() {
		_ = e.SetTime(time.Now())
	}
}

// Client sends CloudEvents to a fixed HTTP target.
type Client struct {
	sender     *cehttp.Sender
	logger     *zap.SugaredLogger
	defaulters []Defaulter
}

// Option configures a Client.
type Option func(*options)

type options struct {
	formatter  format.Formatter
	mode       binding.Mode
	logger     *zap.SugaredLogger
	defaulters []Defaulter
	sender     []cehttp.SenderOption
}

// WithFormatter replaces the default JSON formatter.
func WithFormatter(f format.Formatter) Option {
	return func(o *options) { o.formatter = f }
}

// WithMode selects binary or structured mode; the default is structured.
func WithMode(m binding.Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithLogger injects a logger; the default is zap's no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithDefaulters replaces the default defaulters (uuid id, current time).
func WithDefaulters(ds ...Defaulter) Option {
	return func(o *options) { o.defaulters = ds }
}

// WithSenderOptions passes options through to the underlying Sender.
func WithSenderOptions(opts ...cehttp.SenderOption) Option {
	return func(o *options) { o.sender = opts }
}

// New builds a Client for the target URL.
func New(target string, opts ...Option) (*Client, error) {
	o := &options{
		formatter:  json.Formatter{},
		mode:       binding.ModeStructured,
		logger:     zap.NewNop().Sugar(),
		defaulters: []Defaulter{DefaultIDToUUID, DefaultTimeToNow},
	}
	for _, opt := range opts {
		opt(o)
	}
	senderOpts := append([]cehttp.SenderOption{cehttp.WithMode(o.mode)}, o.sender...)
	sender, err := cehttp.NewSender(target, o.formatter, senderOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{sender: sender, logger: o.logger, defaulters: o.defaulters}, nil
}

// Send applies defaulters, validates and posts the event. Non-2xx
// responses are errors.
func (c *Client) Send(ctx context.Context, e *event.Event) error {
	if e == nil {
		return fmt.Errorf("event must not be nil")
	}
	for _, d := range c.defaulters {
		d(e)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	resp, err := c.sender.Send(ctx, e)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Infow("event rejected by target", "status", resp.StatusCode, "id", e.ID())
		return fmt.Errorf("event rejected with status %d", resp.StatusCode)
	}
	c.logger.Debugw("event sent", "id", e.ID(), "type", e.Type())
	return nil
}
