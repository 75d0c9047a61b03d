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

// Package format defines the encode/decode contract every CloudEvents wire
// format implements, plus a media-type registry. Formatters are stateless
// and safe for concurrent use.
package format

import (
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

// Media-type prefixes for structured and batch mode. A concrete format
// appends its suffix, e.g. "application/cloudevents+json".
const (
	Prefix      = "application/cloudevents"
	BatchPrefix = "application/cloudevents-batch"
)

// Formatter converts events to and from one wire format. Structured and
// batch mode carry the whole envelope; binary mode carries only the data
// payload, using the event's populated attributes (notably datacontenttype)
// to pick the encoding.
type Formatter interface {
	// EncodeStructured serializes the entire event and returns the body
	// and its content type.
	EncodeStructured(e *event.Event) ([]byte, string, error)
	// DecodeStructured parses a self-contained event body. Extension
	// descriptors, when given, type extension attributes on the wire.
	DecodeStructured(body []byte, contentType string, exts ...*spec.Attribute) (*event.Event, error)

	// EncodeBatch serializes an ordered sequence of events; an empty
	// sequence produces an empty batch representation.
	EncodeBatch(evs []*event.Event) ([]byte, string, error)
	// DecodeBatch parses a batch body into events, preserving order.
	DecodeBatch(body []byte, contentType string, exts ...*spec.Attribute) ([]*event.Event, error)

	// EncodeBinaryData serializes only the event's data payload.
	EncodeBinaryData(e *event.Event) ([]byte, error)
	// DecodeBinaryData populates the event's data slot from a binary-mode
	// body, consulting the already-populated attributes.
	DecodeBinaryData(body []byte, e *event.Event) error
}

// ContentTypeInferrer is implemented by formatters that can guess a data
// content type from the payload shape when the event declares none.
type ContentTypeInferrer interface {
	InferDataContentType(data interface{}) string
}

// GetOrInferDataContentType returns the event's explicit data content type;
// otherwise, when data is present, it consults the formatter's inference
// hook. It returns "" when neither applies.
func GetOrInferDataContentType(f Formatter, e *event.Event) (string, error) {
	if e == nil {
		return "", fmt.Errorf("event must not be nil")
	}
	if ct := e.DataContentType(); ct != "" {
		return ct, nil
	}
	if e.Data() == nil {
		return "", nil
	}
	if inf, ok := f.(ContentTypeInferrer); ok {
		return inf.InferDataContentType(e.Data()), nil
	}
	return "", nil
}

// IsFormat reports whether contentType denotes a structured-mode (or batch)
// CloudEvents body.
func IsFormat(contentType string) bool {
	return strings.HasPrefix(contentType, Prefix)
}

// IsBatchFormat reports whether contentType denotes a batch-mode body.
func IsBatchFormat(contentType string) bool {
	return strings.HasPrefix(contentType, BatchPrefix)
}

var (
	mu      sync.RWMutex
	formats = map[string]Formatter{}
)

// Add registers a formatter under one or more media types (typically its
// structured and batch types).
func Add(f Formatter, mediaTypes ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, mt := range mediaTypes {
		formats[mt] = f
	}
}

// Lookup returns the formatter registered for the content type, ignoring
// media-type parameters, or nil.
func Lookup(contentType string) Formatter {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	mu.RLock()
	defer mu.RUnlock()
	return formats[mt]
}
