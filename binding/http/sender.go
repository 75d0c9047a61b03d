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

package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/eventmesh-io/cloudenvelope/binding"
	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
)

// Sender posts CloudEvents to a fixed target, retrying transient failures.
type Sender struct {
	client    *retryablehttp.Client
	target    string
	formatter format.Formatter
	mode      binding.Mode
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithMode selects binary or structured mode; the default is binary.
func WithMode(m binding.Mode) SenderOption {
	return func(s *Sender) { s.mode = m }
}

// WithRetries bounds the retry count for transient failures.
func WithRetries(max int) SenderOption {
	return func(s *Sender) { s.client.RetryMax = max }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(c *nethttp.Client) SenderOption {
	return func(s *Sender) { s.client.HTTPClient = c }
}

// NewSender builds a Sender for the target URL using the given formatter.
func NewSender(target string, f format.Formatter, opts ...SenderOption) (*Sender, error) {
	if target == "" {
		return nil, fmt.Errorf("target must not be empty")
	}
	if f == nil {
		return nil, fmt.Errorf("formatter must not be nil")
	}
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 0
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	s := &Sender{client: client, target: target, formatter: f, mode: binding.ModeBinary}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send encodes and posts the event, returning the target's response. The
// caller owns the response body.
func (s *Sender) Send(ctx context.Context, e *event.Event) (*nethttp.Response, error) {
	req, err := NewRequest(ctx, s.target, e, s.formatter, s.mode)
	if err != nil {
		return nil, err
	}
	rreq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.client.Do(rreq)
}
