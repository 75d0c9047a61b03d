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

package format

import (
	"bytes"
	"context"
	"io"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

// Stream convenience: the reader is buffered fully into memory, honoring
// context cancellation between chunks, and then handed to the byte-slice
// method. Results are identical to the byte forms.

// DecodeStructuredReader buffers r and decodes a structured-mode event.
func DecodeStructuredReader(ctx context.Context, f Formatter, r io.Reader, contentType string, exts ...*spec.Attribute) (*event.Event, error) {
	body, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	return f.DecodeStructured(body, contentType, exts...)
}

// DecodeBatchReader buffers r and decodes a batch-mode body.
func DecodeBatchReader(ctx context.Context, f Formatter, r io.Reader, contentType string, exts ...*spec.Attribute) ([]*event.Event, error) {
	body, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	return f.DecodeBatch(body, contentType, exts...)
}

// DecodeBinaryDataReader buffers r and decodes binary-mode data into e.
func DecodeBinaryDataReader(ctx context.Context, f Formatter, r io.Reader, e *event.Event) error {
	body, err := readAll(ctx, r)
	if err != nil {
		return err
	}
	return f.DecodeBinaryData(body, e)
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
