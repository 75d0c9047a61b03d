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

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

// ReceiverOptions is the environment-sourced configuration of a Receiver.
type ReceiverOptions struct {
	// Port to listen on.
	Port int `envconfig:"PORT" default:"8080"`
	// Path the receiver answers on; all paths when empty.
	Path string `envconfig:"RECEIVER_PATH" default:""`
}

// LoadReceiverOptions reads ReceiverOptions from the environment.
func LoadReceiverOptions() (*ReceiverOptions, error) {
	var opts ReceiverOptions
	if err := envconfig.Process("", &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Handler is invoked for each decoded inbound event.
type Handler func(ctx context.Context, e *event.Event)

// Receiver is an http.Handler that decodes inbound CloudEvents and hands
// them to a callback. Decode failures answer 400.
type Receiver struct {
	formatter format.Formatter
	handler   Handler
	exts      []*spec.Attribute
	logger    *zap.SugaredLogger
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver)

// WithLogger injects a logger; the default is zap's no-op logger.
func WithLogger(l *zap.SugaredLogger) ReceiverOption {
	return func(r *Receiver) { r.logger = l }
}

// WithExtensions declares typed extension attributes for inbound events.
func WithExtensions(exts ...*spec.Attribute) ReceiverOption {
	return func(r *Receiver) { r.exts = exts }
}

// NewReceiver builds a Receiver around a formatter and a callback.
func NewReceiver(f format.Formatter, h Handler, opts ...ReceiverOption) (*Receiver, error) {
	if f == nil {
		return nil, fmt.Errorf("formatter must not be nil")
	}
	if h == nil {
		return nil, fmt.Errorf("handler must not be nil")
	}
	r := &Receiver{formatter: f, handler: h, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ServeHTTP implements http.Handler.
func (r *Receiver) ServeHTTP(w nethttp.ResponseWriter, req *nethttp.Request) {
	if req.Method != nethttp.MethodPost && req.Method != nethttp.MethodPut {
		w.WriteHeader(nethttp.StatusMethodNotAllowed)
		return
	}
	e, err := ReadRequest(req, r.formatter, r.exts...)
	if err != nil {
		r.logger.Infow("rejecting inbound message", zap.Error(err))
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	if err := e.Validate(); err != nil {
		r.logger.Infow("rejecting incomplete event", zap.Error(err))
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	r.handler(req.Context(), e)
	w.WriteHeader(nethttp.StatusAccepted)
}
