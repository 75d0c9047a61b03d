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

// Package amqp binds CloudEvents to AMQP 0.9.1 messages. Binary mode
// carries attributes as "cloudEvents:"-prefixed application headers and the
// content type in the message's native field.
package amqp

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/eventmesh-io/cloudenvelope/binding"
	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

const propertyPrefix = "cloudEvents:"

// NewPublishing encodes an event into an AMQP publishing.
func NewPublishing(e *event.Event, f format.Formatter, mode binding.Mode) (amqp.Publishing, error) {
	switch mode {
	case binding.ModeStructured:
		body, ct, err := f.EncodeStructured(e)
		if err != nil {
			return amqp.Publishing{}, errors.Wrap(err, "encoding structured amqp message")
		}
		return amqp.Publishing{ContentType: ct, Body: body}, nil
	case binding.ModeBinary:
		headers, ct, err := binding.Headers(e)
		if err != nil {
			return amqp.Publishing{}, errors.Wrap(err, "encoding amqp application properties")
		}
		table := amqp.Table{}
		for k, v := range headers {
			table[propertyPrefix+strings.TrimPrefix(k, binding.HeaderPrefix)] = v
		}
		body, err := f.EncodeBinaryData(e)
		if err != nil {
			return amqp.Publishing{}, errors.Wrap(err, "encoding amqp binary data")
		}
		return amqp.Publishing{
			ContentType: ct,
			Headers:     table,
			Body:        body,
			Type:        e.Type(),
		}, nil
	}
	return amqp.Publishing{}, errors.Errorf("unknown encoding mode %d", mode)
}

// FromDelivery decodes a consumed AMQP delivery into an event.
func FromDelivery(d amqp.Delivery, f format.Formatter, exts ...*spec.Attribute) (*event.Event, error) {
	if format.IsFormat(d.ContentType) {
		return f.DecodeStructured(d.Body, d.ContentType, exts...)
	}
	headers := map[string]string{}
	for k, v := range d.Headers {
		if !strings.HasPrefix(k, propertyPrefix) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, format.Errorf("amqp property %q is %T, expected string", k, v)
		}
		name := strings.ToLower(strings.TrimPrefix(k, propertyPrefix))
		headers[binding.HeaderPrefix+name] = s
	}
	if !binding.HasSpecVersionHeader(headers) {
		return nil, format.Errorf("amqp delivery is not a CloudEvent: no spec version property and content type %q", d.ContentType)
	}
	return binding.FromHeaders(headers, d.Body, d.ContentType, f, exts...)
}
