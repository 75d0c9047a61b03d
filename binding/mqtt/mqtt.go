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

// Package mqtt binds CloudEvents to MQTT 5 publish packets via paho.golang.
// Binary mode carries attributes as user properties (names verbatim, no
// prefix, per the MQTT protocol binding) and the content type in the
// packet's ContentType property.
package mqtt

import (
	"fmt"
	"strings"

	"github.com/eclipse/paho.golang/paho"

	"github.com/eventmesh-io/cloudenvelope/binding"
	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

// NewPublish encodes an event into an MQTT 5 publish packet.
func NewPublish(topic string, e *event.Event, f format.Formatter, mode binding.Mode) (*paho.Publish, error) {
	p := &paho.Publish{Topic: topic, Properties: &paho.PublishProperties{}}
	switch mode {
	case binding.ModeStructured:
		body, ct, err := f.EncodeStructured(e)
		if err != nil {
			return nil, err
		}
		p.Properties.ContentType = ct
		p.Payload = body
		return p, nil
	case binding.ModeBinary:
		headers, ct, err := binding.Headers(e)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			p.Properties.User.Add(strings.TrimPrefix(k, binding.HeaderPrefix), v)
		}
		p.Properties.ContentType = ct
		body, err := f.EncodeBinaryData(e)
		if err != nil {
			return nil, err
		}
		p.Payload = body
		return p, nil
	}
	return nil, fmt.Errorf("unknown encoding mode %d", mode)
}

// FromPublish decodes an inbound MQTT 5 publish packet into an event.
func FromPublish(p *paho.Publish, f format.Formatter, exts ...*spec.Attribute) (*event.Event, error) {
	if p == nil {
		return nil, fmt.Errorf("publish packet must not be nil")
	}
	contentType := ""
	headers := map[string]string{}
	if p.Properties != nil {
		contentType = p.Properties.ContentType
		for _, u := range p.Properties.User {
			headers[binding.HeaderPrefix+strings.ToLower(u.Key)] = u.Value
		}
	}
	if format.IsFormat(contentType) {
		return f.DecodeStructured(p.Payload, contentType, exts...)
	}
	if !binding.HasSpecVersionHeader(headers) {
		return nil, format.Errorf("mqtt publish is not a CloudEvent: no spec version property and content type %q", contentType)
	}
	return binding.FromHeaders(headers, p.Payload, contentType, f, exts...)
}
