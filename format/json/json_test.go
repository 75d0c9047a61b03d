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

package json

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
	"github.com/eventmesh-io/cloudenvelope/types"
)

func fullEvent(t *testing.T) *event.Event {
	t.Helper()
	e, err := event.New()
	require.NoError(t, err)
	require.NoError(t, e.SetID("A234-1234-1234"))
	require.NoError(t, e.SetType("com.github.pull.create"))
	require.NoError(t, e.SetSource(mustURL(t, "https://github.com/cloudevents/spec/pull/123")))
	require.NoError(t, e.SetTime(time.Date(2018, 4, 5, 17, 31, 0, 0, time.UTC)))
	require.NoError(t, e.SetDataContentType("text/xml"))
	require.NoError(t, e.Set("comexampleextension1", "value"))
	e.SetData(`<much wow="xml"/>`)
	return e
}

func TestRegistered(t *testing.T) {
	if f := format.Lookup(MediaType); f == nil {
		t.Errorf("Lookup(%q) = nil", MediaType)
	}
	if f := format.Lookup(BatchMediaType); f == nil {
		t.Errorf("Lookup(%q) = nil", BatchMediaType)
	}
}

func TestStructuredRoundTrip(t *testing.T) {
	f := Formatter{}
	e := fullEvent(t)

	body, ct, err := f.EncodeStructured(e)
	require.NoError(t, err)
	assert.Equal(t, MediaType, ct)

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &obj))
	assert.Equal(t, "1.0", obj["specversion"])
	assert.Equal(t, "A234-1234-1234", obj["id"])
	assert.Equal(t, "com.github.pull.create", obj["type"])
	assert.Equal(t, "https://github.com/cloudevents/spec/pull/123", obj["source"])
	assert.Equal(t, "2018-04-05T17:31:00Z", obj["time"])
	assert.Equal(t, "text/xml", obj["datacontenttype"])
	assert.Equal(t, "value", obj["comexampleextension1"])
	assert.Equal(t, `<much wow="xml"/>`, obj["data"])
	assert.NotContains(t, obj, "data_base64")

	got, err := f.DecodeStructured(body, ct)
	require.NoError(t, err)
	assert.Equal(t, e.ID(), got.ID())
	assert.Equal(t, e.Type(), got.Type())
	assert.Equal(t, e.Source().String(), got.Source().String())
	assert.True(t, got.Time().Equal(e.Time()))
	assert.Equal(t, e.DataContentType(), got.DataContentType())
	v, err := got.Get("comexampleextension1")
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "value", s)
	assert.Equal(t, `<much wow="xml"/>`, got.Data())
}

func TestEncodeJSONData(t *testing.T) {
	f := Formatter{}
	e, err := event.New()
	require.NoError(t, err)
	require.NoError(t, e.SetID("1"))
	require.NoError(t, e.SetType("com.example.test"))
	require.NoError(t, e.SetSource(mustURL(t, "/src")))

	// A struct under an (inferred) JSON content type marshals in place.
	e.SetData(map[string]interface{}{"key": "value"})
	body, _, err := f.EncodeStructured(e)
	require.NoError(t, err)
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &obj))
	assert.JSONEq(t, `{"key":"value"}`, string(obj["data"]))

	// Raw JSON passes through untouched.
	e.SetData(json.RawMessage(`{"raw":true}`))
	body, _, err = f.EncodeStructured(e)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &obj))
	assert.JSONEq(t, `{"raw":true}`, string(obj["data"]))

	// Invalid raw JSON is rejected.
	e.SetData(json.RawMessage(`{broken`))
	_, _, err = f.EncodeStructured(e)
	assert.Error(t, err)
}

func TestEncodeBinaryPayload(t *testing.T) {
	f := Formatter{}
	e, err := event.New()
	require.NoError(t, err)
	require.NoError(t, e.SetID("1"))
	require.NoError(t, e.SetType("com.example.test"))
	require.NoError(t, e.SetSource(mustURL(t, "/src")))
	require.NoError(t, e.SetDataContentType("application/octet-stream"))
	e.SetData([]byte{0x01, 0x02, 0x03})

	body, _, err := f.EncodeStructured(e)
	require.NoError(t, err)
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &obj))
	assert.Equal(t, "AQID", obj["data_base64"])
	assert.NotContains(t, obj, "data")

	got, err := f.DecodeStructured(body, MediaType)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.Data())
}

func TestEncodeTextContentTypeRejectsNonString(t *testing.T) {
	f := Formatter{}
	e, err := event.New()
	require.NoError(t, err)
	require.NoError(t, e.SetID("1"))
	require.NoError(t, e.SetType("com.example.test"))
	require.NoError(t, e.SetSource(mustURL(t, "/src")))
	require.NoError(t, e.SetDataContentType("text/plain"))
	e.SetData(42)
	_, _, err = f.EncodeStructured(e)
	assert.Error(t, err)
}

func TestDecodeStructuredErrors(t *testing.T) {
	f := Formatter{}
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{broken`},
		{"no version", `{"id":"1"}`},
		{"unknown version", `{"specversion":"2.0","id":"1"}`},
		{"version not a string", `{"specversion":10,"id":"1"}`},
		{"data and data_base64", `{"specversion":"1.0","id":"1","data":"x","data_base64":"eA=="}`},
		{"bad timestamp", `{"specversion":"1.0","time":"not a time"}`},
		{"non-integral number extension", `{"specversion":"1.0","myext":1.5}`},
		{"object extension", `{"specversion":"1.0","myext":{"nested":true}}`},
		{"bad data_base64", `{"specversion":"1.0","data_base64":"%%%"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.DecodeStructured([]byte(tc.body), MediaType); err == nil {
				t.Errorf("DecodeStructured(%q) succeeded, want error", tc.body)
			}
		})
	}
}

func TestDecodeInfersExtensionTypes(t *testing.T) {
	f := Formatter{}
	body := `{"specversion":"1.0","id":"1","strext":"s","boolext":true,"intext":42}`
	e, err := f.DecodeStructured([]byte(body), MediaType)
	require.NoError(t, err)

	tests := []struct {
		name string
		typ  *types.Type
	}{
		{"strext", types.String},
		{"boolext", types.Boolean},
		{"intext", types.Integer},
	}
	for _, tc := range tests {
		a := e.Attribute(tc.name)
		if a == nil || a.Type() != tc.typ {
			t.Errorf("Attribute(%q) = %v, want %s extension", tc.name, a, tc.typ.Name())
			continue
		}
		if !a.IsExtension() {
			t.Errorf("Attribute(%q) is not an extension", tc.name)
		}
	}
	v, err := e.Get("intext")
	require.NoError(t, err)
	n, _ := v.AsInteger()
	assert.Equal(t, int32(42), n)
}

func TestDecodeWithExtensionDescriptors(t *testing.T) {
	f := Formatter{}
	ext, err := spec.NewExtension("sequence", types.Integer)
	require.NoError(t, err)

	// The attribute arrives as a JSON number and parses through the typed
	// descriptor.
	body := `{"specversion":"1.0","id":"1","sequence":7}`
	e, err := f.DecodeStructured([]byte(body), MediaType, ext)
	require.NoError(t, err)
	v, err := e.Get("sequence")
	require.NoError(t, err)
	n, _ := v.AsInteger()
	assert.Equal(t, int32(7), n)

	// A value the descriptor cannot accept fails the decode.
	body = `{"specversion":"1.0","id":"1","sequence":"not a number"}`
	_, err = f.DecodeStructured([]byte(body), MediaType, ext)
	assert.Error(t, err)
}

func TestDecodeOldVersions(t *testing.T) {
	f := Formatter{}
	tests := []struct {
		name    string
		body    string
		version *spec.Version
	}{{
		name:    "0.1 marker and names",
		body:    `{"cloudEventsVersion":"0.1","eventID":"1","eventType":"com.example.test","source":"/src"}`,
		version: spec.V01,
	}, {
		name:    "0.2",
		body:    `{"specversion":"0.2","id":"1","type":"com.example.test","source":"/src"}`,
		version: spec.V02,
	}, {
		name:    "0.3",
		body:    `{"specversion":"0.3","id":"1","type":"com.example.test","source":"/src"}`,
		version: spec.V03,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := f.DecodeStructured([]byte(tc.body), MediaType)
			require.NoError(t, err)
			assert.Equal(t, tc.version, e.Version())
			assert.Equal(t, "1", e.ID())
			assert.Equal(t, "com.example.test", e.Type())
			assert.True(t, e.IsValid())
		})
	}
}

func TestBatchRoundTrip(t *testing.T) {
	f := Formatter{}
	e1 := fullEvent(t)
	e2, err := event.New()
	require.NoError(t, err)
	require.NoError(t, e2.SetID("second"))
	require.NoError(t, e2.SetType("com.example.test"))
	require.NoError(t, e2.SetSource(mustURL(t, "/src")))

	body, ct, err := f.EncodeBatch([]*event.Event{e1, e2})
	require.NoError(t, err)
	assert.Equal(t, BatchMediaType, ct)

	got, err := f.DecodeBatch(body, ct)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A234-1234-1234", got[0].ID())
	assert.Equal(t, "second", got[1].ID())
}

func TestEmptyBatch(t *testing.T) {
	f := Formatter{}
	body, ct, err := f.EncodeBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, BatchMediaType, ct)
	assert.Equal(t, "[]", string(body))

	got, err := f.DecodeBatch(body, ct)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBinaryDataRoundTrip(t *testing.T) {
	f := Formatter{}
	tests := []struct {
		name        string
		contentType string
		data        interface{}
		wantBody    string
		wantDecoded interface{}
	}{{
		name:        "json payload",
		contentType: "application/json",
		data:        json.RawMessage(`{"key":"value"}`),
		wantBody:    `{"key":"value"}`,
		wantDecoded: json.RawMessage(`{"key":"value"}`),
	}, {
		name:        "text payload",
		contentType: "text/plain",
		data:        "hello world",
		wantBody:    "hello world",
		wantDecoded: "hello world",
	}, {
		name:        "binary payload",
		contentType: "application/octet-stream",
		data:        []byte{0x01, 0x02},
		wantBody:    "\x01\x02",
		wantDecoded: []byte{0x01, 0x02},
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := event.New()
			require.NoError(t, err)
			require.NoError(t, e.SetID("1"))
			require.NoError(t, e.SetDataContentType(tc.contentType))
			e.SetData(tc.data)

			body, err := f.EncodeBinaryData(e)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBody, string(body))

			decoded, err := event.New()
			require.NoError(t, err)
			require.NoError(t, decoded.SetDataContentType(tc.contentType))
			require.NoError(t, f.DecodeBinaryData(body, decoded))
			if diff := cmp.Diff(tc.wantDecoded, decoded.Data()); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeBinaryDataEmptyBody(t *testing.T) {
	f := Formatter{}
	e, err := event.New()
	require.NoError(t, err)
	e.SetData([]byte("stale"))
	require.NoError(t, f.DecodeBinaryData(nil, e))
	assert.Nil(t, e.Data())
}

func TestInferDataContentType(t *testing.T) {
	f := Formatter{}
	assert.Equal(t, "application/json", f.InferDataContentType(map[string]string{"a": "b"}))
	assert.Equal(t, "", f.InferDataContentType(nil))
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", s, err)
	}
	return u
}
