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

// Package http binds CloudEvents to HTTP requests and responses. Binary
// mode maps attributes to ce- headers; structured mode carries the
// formatter's body under its media type.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/eventmesh-io/cloudenvelope/binding"
	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

const contentTypeHeader = "Content-Type"

// NewRequest builds a POST request carrying the event in the given mode.
func NewRequest(ctx context.Context, target string, e *event.Event, f format.Formatter, mode binding.Mode) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, target, nil)
	if err != nil {
		return nil, err
	}
	if err := WriteRequest(e, f, mode, req); err != nil {
		return nil, err
	}
	return req, nil
}

// WriteRequest populates an existing request with the encoded event.
func WriteRequest(e *event.Event, f format.Formatter, mode binding.Mode, req *nethttp.Request) error {
	body, headers, err := encode(e, f, mode)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	return nil
}

// WriteResponse writes the encoded event to an HTTP response.
func WriteResponse(e *event.Event, f format.Formatter, mode binding.Mode, w nethttp.ResponseWriter) error {
	body, headers, err := encode(e, f, mode)
	if err != nil {
		return err
	}
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	_, err = w.Write(body)
	return err
}

func encode(e *event.Event, f format.Formatter, mode binding.Mode) ([]byte, map[string]string, error) {
	switch mode {
	case binding.ModeStructured:
		body, ct, err := f.EncodeStructured(e)
		if err != nil {
			return nil, nil, err
		}
		return body, map[string]string{contentTypeHeader: ct}, nil
	case binding.ModeBinary:
		headers, ct, err := binding.Headers(e)
		if err != nil {
			return nil, nil, err
		}
		body, err := f.EncodeBinaryData(e)
		if err != nil {
			return nil, nil, err
		}
		if ct == "" {
			ct, err = format.GetOrInferDataContentType(f, e)
			if err != nil {
				return nil, nil, err
			}
		}
		if ct != "" {
			headers[contentTypeHeader] = ct
		}
		return body, headers, nil
	}
	return nil, nil, fmt.Errorf("unknown encoding mode %d", mode)
}

// ReadRequest decodes an inbound request as a CloudEvent, detecting
// structured vs. binary mode from the content type and ce- headers.
func ReadRequest(req *nethttp.Request, f format.Formatter, exts ...*spec.Attribute) (*event.Event, error) {
	headers := flatten(req.Header)
	ct := req.Header.Get(contentTypeHeader)
	if !binding.IsCloudEvent(ct, binding.HasSpecVersionHeader(headers)) {
		return nil, format.Errorf("request is not a CloudEvent: no spec version header and content type %q", ct)
	}
	if format.IsFormat(ct) && !format.IsBatchFormat(ct) {
		return format.DecodeStructuredReader(req.Context(), f, req.Body, ct, exts...)
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	return binding.FromHeaders(headers, body, ct, f, exts...)
}

// ReadBatchRequest decodes an inbound batch-mode request.
func ReadBatchRequest(req *nethttp.Request, f format.Formatter, exts ...*spec.Attribute) ([]*event.Event, error) {
	ct := req.Header.Get(contentTypeHeader)
	if !format.IsBatchFormat(ct) {
		return nil, format.Errorf("request is not a CloudEvents batch: content type %q", ct)
	}
	return format.DecodeBatchReader(req.Context(), f, req.Body, ct, exts...)
}

func flatten(h nethttp.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[strings.ToLower(k)] = vs[0]
		}
	}
	return out
}
