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

// Package kafka binds CloudEvents to Kafka records via sarama. The Kafka
// protocol binding uses "ce_" header keys (Kafka header names may not
// contain "-" in some tooling) and the "content-type" record header; the
// partitionkey extension maps to the record key.
package kafka

import (
	"strings"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/eventmesh-io/cloudenvelope/binding"
	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

const (
	headerPrefix      = "ce_"
	contentTypeHeader = "content-type"

	// PartitionKeyExtension names the extension attribute carried as the
	// record key.
	PartitionKeyExtension = "partitionkey"
)

// NewProducerMessage encodes an event into a sarama producer message.
func NewProducerMessage(topic string, e *event.Event, f format.Formatter, mode binding.Mode) (*sarama.ProducerMessage, error) {
	msg := &sarama.ProducerMessage{Topic: topic}
	switch mode {
	case binding.ModeStructured:
		body, ct, err := f.EncodeStructured(e)
		if err != nil {
			return nil, errors.Wrap(err, "encoding structured kafka message")
		}
		msg.Headers = []sarama.RecordHeader{{
			Key:   []byte(contentTypeHeader),
			Value: []byte(ct),
		}}
		msg.Value = sarama.ByteEncoder(body)
	case binding.ModeBinary:
		headers, ct, err := binding.Headers(e)
		if err != nil {
			return nil, errors.Wrap(err, "encoding kafka headers")
		}
		for k, v := range headers {
			msg.Headers = append(msg.Headers, sarama.RecordHeader{
				Key:   []byte(headerPrefix + strings.TrimPrefix(k, binding.HeaderPrefix)),
				Value: []byte(v),
			})
		}
		if ct != "" {
			msg.Headers = append(msg.Headers, sarama.RecordHeader{
				Key:   []byte(contentTypeHeader),
				Value: []byte(ct),
			})
		}
		body, err := f.EncodeBinaryData(e)
		if err != nil {
			return nil, errors.Wrap(err, "encoding kafka binary data")
		}
		msg.Value = sarama.ByteEncoder(body)
	default:
		return nil, errors.Errorf("unknown encoding mode %d", mode)
	}
	if pk, err := e.Get(PartitionKeyExtension); err == nil && !pk.IsZero() {
		if s, ok := pk.AsString(); ok {
			msg.Key = sarama.StringEncoder(s)
		}
	}
	return msg, nil
}

// FromConsumerMessage decodes a consumed Kafka record into an event.
func FromConsumerMessage(msg *sarama.ConsumerMessage, f format.Formatter, exts ...*spec.Attribute) (*event.Event, error) {
	if msg == nil {
		return nil, errors.New("consumer message must not be nil")
	}
	headers := map[string]string{}
	contentType := ""
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		key := strings.ToLower(string(h.Key))
		if key == contentTypeHeader {
			contentType = string(h.Value)
			continue
		}
		if strings.HasPrefix(key, headerPrefix) {
			headers[binding.HeaderPrefix+strings.TrimPrefix(key, headerPrefix)] = string(h.Value)
		}
	}
	if format.IsFormat(contentType) {
		return f.DecodeStructured(msg.Value, contentType, exts...)
	}
	if !binding.HasSpecVersionHeader(headers) {
		return nil, format.Errorf("kafka record is not a CloudEvent: no spec version header and content type %q", contentType)
	}
	e, err := binding.FromHeaders(headers, msg.Value, contentType, f, exts...)
	if err != nil {
		return nil, err
	}
	if len(msg.Key) > 0 {
		if pk, kerr := e.Get(PartitionKeyExtension); kerr == nil && pk.IsZero() {
			if err := e.Set(PartitionKeyExtension, string(msg.Key)); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}
