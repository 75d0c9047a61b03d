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

// Package json implements the JSON event format: a flat object carrying the
// context attributes, extension attributes as top-level keys, and either
// "data" or "data_base64" (never both).
package json

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
	"github.com/eventmesh-io/cloudenvelope/types"
)

const (
	// MediaType is the structured-mode content type.
	MediaType = format.Prefix + "+json"
	// BatchMediaType is the batch-mode content type.
	BatchMediaType = format.BatchPrefix + "+json"

	dataKey   = "data"
	data64Key = "data_base64"
)

// Formatter is the JSON implementation of format.Formatter. It is stateless
// and safe to share.
type Formatter struct{}

var _ format.Formatter = Formatter{}
var _ format.ContentTypeInferrer = Formatter{}

func init() {
	format.Add(Formatter{}, MediaType, BatchMediaType)
}

// InferDataContentType assumes JSON payloads when the event declares no
// content type.
func (Formatter) InferDataContentType(data interface{}) string {
	if data == nil {
		return ""
	}
	return "application/json"
}

// EncodeStructured implements format.Formatter.
func (f Formatter) EncodeStructured(e *event.Event) ([]byte, string, error) {
	obj, err := f.encodeObject(e)
	if err != nil {
		return nil, "", err
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, "", err
	}
	return body, MediaType, nil
}

func (f Formatter) encodeObject(e *event.Event) (map[string]json.RawMessage, error) {
	if e == nil {
		return nil, fmt.Errorf("event must not be nil")
	}
	obj := map[string]json.RawMessage{}
	version, err := json.Marshal(e.Version().String())
	if err != nil {
		return nil, err
	}
	obj[e.Version().MarkerName()] = version

	for _, name := range e.Names() {
		a := e.Attribute(name)
		v, err := e.Get(name)
		if err != nil {
			return nil, err
		}
		// Booleans and integers keep their native JSON representation;
		// every other type is carried as its canonical string.
		switch a.Type().Kind() {
		case types.KindBool:
			b, _ := v.AsBool()
			obj[name] = json.RawMessage(strconv.FormatBool(b))
		case types.KindInteger:
			n, _ := v.AsInteger()
			obj[name] = json.RawMessage(strconv.FormatInt(int64(n), 10))
		default:
			s, err := a.Format(v)
			if err != nil {
				return nil, err
			}
			raw, err := json.Marshal(s)
			if err != nil {
				return nil, err
			}
			obj[name] = raw
		}
	}
	if err := f.encodeDataInto(e, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (f Formatter) encodeDataInto(e *event.Event, obj map[string]json.RawMessage) error {
	d := e.Data()
	if d == nil {
		return nil
	}
	ct, err := format.GetOrInferDataContentType(f, e)
	if err != nil {
		return err
	}
	mt := mediaTypeOf(ct)

	// Raw JSON passes through under a JSON content type; other raw bytes
	// go to data_base64.
	if raw, ok := d.(json.RawMessage); ok {
		if isJSONType(mt) {
			if !json.Valid(raw) {
				return fmt.Errorf("data is not valid JSON under content type %q", ct)
			}
			obj[dataKey] = raw
			return nil
		}
		d = []byte(raw)
	}
	if b, ok := d.([]byte); ok {
		enc, err := json.Marshal(base64.StdEncoding.EncodeToString(b))
		if err != nil {
			return err
		}
		obj[data64Key] = enc
		return nil
	}
	switch {
	case isJSONType(mt):
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("cannot serialize data as JSON: %w", err)
		}
		obj[dataKey] = raw
	case isTextType(mt):
		s, ok := d.(string)
		if !ok {
			return fmt.Errorf("data of type %T cannot be encoded under text content type %q", d, ct)
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return err
		}
		obj[dataKey] = raw
	default:
		return fmt.Errorf("data of type %T cannot be encoded under content type %q", d, ct)
	}
	return nil
}

// DecodeStructured implements format.Formatter.
func (f Formatter) DecodeStructured(body []byte, contentType string, exts ...*spec.Attribute) (*event.Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, format.Errorf("invalid JSON: %v", err)
	}
	return f.decodeObject(raw, exts)
}

func (f Formatter) decodeObject(raw map[string]json.RawMessage, exts []*spec.Attribute) (*event.Event, error) {
	version, err := versionOf(raw)
	if err != nil {
		return nil, err
	}
	e, err := event.New(event.WithVersion(version), event.WithExtensions(exts...))
	if err != nil {
		return nil, err
	}

	if _, hasData := raw[dataKey]; hasData {
		if _, has64 := raw[data64Key]; has64 {
			return nil, format.Errorf("both data and data_base64 are present")
		}
	}

	for key, rv := range raw {
		if key == version.MarkerName() || key == dataKey || key == data64Key {
			continue
		}
		if err := decodeAttribute(e, key, rv); err != nil {
			return nil, err
		}
	}
	if err := f.decodeDataInto(e, raw); err != nil {
		return nil, err
	}
	return e, nil
}

func versionOf(raw map[string]json.RawMessage) (*spec.Version, error) {
	for _, v := range spec.Versions() {
		rv, ok := raw[v.MarkerName()]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(rv, &s); err != nil {
			return nil, format.Errorf("invalid spec version value: %v", err)
		}
		version, err := spec.Lookup(s)
		if err != nil {
			return nil, format.Errorf("%v", err)
		}
		return version, nil
	}
	return nil, format.Errorf("no spec version attribute present")
}

func decodeAttribute(e *event.Event, key string, rv json.RawMessage) error {
	if a := e.Attribute(key); a != nil {
		switch a.Type().Kind() {
		case types.KindBool:
			var b bool
			if err := json.Unmarshal(rv, &b); err != nil {
				return format.Errorf("attribute %q: expected JSON boolean: %v", key, err)
			}
			return e.Set(key, b)
		case types.KindInteger:
			var n int64
			if err := json.Unmarshal(rv, &n); err != nil {
				return format.Errorf("attribute %q: expected JSON number: %v", key, err)
			}
			return e.Set(key, n)
		default:
			var s string
			if err := json.Unmarshal(rv, &s); err != nil {
				return format.Errorf("attribute %q: expected JSON string: %v", key, err)
			}
			return e.SetFromString(key, s)
		}
	}
	// Unknown key: infer the extension type from the JSON token.
	var v interface{}
	if err := json.Unmarshal(rv, &v); err != nil {
		return format.Errorf("attribute %q: %v", key, err)
	}
	switch tv := v.(type) {
	case string:
		return e.Set(key, tv)
	case bool:
		a, err := spec.NewExtension(key, types.Boolean)
		if err != nil {
			return err
		}
		return e.SetAttribute(a, tv)
	case float64:
		n := int64(tv)
		if float64(n) != tv {
			return format.Errorf("attribute %q: non-integral number", key)
		}
		a, err := spec.NewExtension(key, types.Integer)
		if err != nil {
			return err
		}
		return e.SetAttribute(a, n)
	default:
		return format.Errorf("attribute %q: unsupported JSON value of type %T", key, v)
	}
}

func (f Formatter) decodeDataInto(e *event.Event, raw map[string]json.RawMessage) error {
	if rv, ok := raw[data64Key]; ok {
		var s string
		if err := json.Unmarshal(rv, &s); err != nil {
			return format.Errorf("data_base64: expected JSON string: %v", err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return format.Errorf("data_base64: %v", err)
		}
		e.SetData(b)
		return nil
	}
	rv, ok := raw[dataKey]
	if !ok {
		return nil
	}
	mt := mediaTypeOf(e.DataContentType())
	if isJSONType(mt) {
		e.SetData(json.RawMessage(rv))
		return nil
	}
	var s string
	if err := json.Unmarshal(rv, &s); err != nil {
		return format.Errorf("data: expected JSON string under content type %q: %v", e.DataContentType(), err)
	}
	e.SetData(s)
	return nil
}

// EncodeBatch implements format.Formatter. An empty slice encodes to an
// empty JSON array.
func (f Formatter) EncodeBatch(evs []*event.Event) ([]byte, string, error) {
	arr := make([]map[string]json.RawMessage, 0, len(evs))
	for _, e := range evs {
		obj, err := f.encodeObject(e)
		if err != nil {
			return nil, "", err
		}
		arr = append(arr, obj)
	}
	body, err := json.Marshal(arr)
	if err != nil {
		return nil, "", err
	}
	return body, BatchMediaType, nil
}

// DecodeBatch implements format.Formatter.
func (f Formatter) DecodeBatch(body []byte, contentType string, exts ...*spec.Attribute) ([]*event.Event, error) {
	var arr []map[string]json.RawMessage
	if err := json.Unmarshal(body, &arr); err != nil {
		return nil, format.Errorf("invalid JSON batch: %v", err)
	}
	evs := make([]*event.Event, 0, len(arr))
	for _, raw := range arr {
		e, err := f.decodeObject(raw, exts)
		if err != nil {
			return nil, err
		}
		evs = append(evs, e)
	}
	return evs, nil
}

// EncodeBinaryData implements format.Formatter.
func (f Formatter) EncodeBinaryData(e *event.Event) ([]byte, error) {
	d := e.Data()
	if d == nil {
		return nil, nil
	}
	ct, err := format.GetOrInferDataContentType(f, e)
	if err != nil {
		return nil, err
	}
	mt := mediaTypeOf(ct)

	if raw, ok := d.(json.RawMessage); ok {
		if isJSONType(mt) && !json.Valid(raw) {
			return nil, fmt.Errorf("data is not valid JSON under content type %q", ct)
		}
		return raw, nil
	}
	if b, ok := d.([]byte); ok {
		return b, nil
	}
	switch {
	case isJSONType(mt):
		return json.Marshal(d)
	case isTextType(mt):
		s, ok := d.(string)
		if !ok {
			return nil, fmt.Errorf("data of type %T cannot be encoded under text content type %q", d, ct)
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("data of type %T cannot be encoded under content type %q", d, ct)
	}
}

// DecodeBinaryData implements format.Formatter.
func (f Formatter) DecodeBinaryData(body []byte, e *event.Event) error {
	if e == nil {
		return fmt.Errorf("event must not be nil")
	}
	if len(body) == 0 {
		e.SetData(nil)
		return nil
	}
	mt := mediaTypeOf(e.DataContentType())
	switch {
	case isJSONType(mt):
		if !json.Valid(body) {
			return format.Errorf("binary-mode body is not valid JSON under content type %q", e.DataContentType())
		}
		e.SetData(json.RawMessage(append([]byte(nil), body...)))
	case isTextType(mt):
		e.SetData(string(body))
	default:
		e.SetData(append([]byte(nil), body...))
	}
	return nil
}

// mediaTypeOf normalizes a content type to its bare media type; an empty or
// unparsable content type defaults to application/json.
func mediaTypeOf(ct string) string {
	if ct == "" {
		return "application/json"
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

func isJSONType(mt string) bool {
	return mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json")
}

func isTextType(mt string) bool {
	return strings.HasPrefix(mt, "text/")
}
