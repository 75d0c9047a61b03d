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

// Package xml implements an XML event format. The envelope is an <event>
// element carrying the spec version as an XML attribute, one <attribute>
// child per context attribute and an optional <data> element (base64 for
// binary payloads).
package xml

import (
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"mime"
	"strings"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
	"github.com/eventmesh-io/cloudenvelope/types"
)

const (
	// MediaType is the structured-mode content type.
	MediaType = format.Prefix + "+xml"
	// BatchMediaType is the batch-mode content type.
	BatchMediaType = format.BatchPrefix + "+xml"

	base64Encoding = "base64"
)

// Formatter is the XML implementation of format.Formatter.
type Formatter struct{}

var _ format.Formatter = Formatter{}

func init() {
	format.Add(Formatter{}, MediaType, BatchMediaType)
}

type xmlEvent struct {
	XMLName     xml.Name       `xml:"event"`
	SpecVersion string         `xml:"specversion,attr"`
	Attributes  []xmlAttribute `xml:"attribute"`
	Data        *xmlData       `xml:"data"`
}

type xmlAttribute struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlData struct {
	Encoding string `xml:"encoding,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type xmlBatch struct {
	XMLName xml.Name   `xml:"batch"`
	Events  []xmlEvent `xml:"event"`
}

// EncodeStructured implements format.Formatter.
func (f Formatter) EncodeStructured(e *event.Event) ([]byte, string, error) {
	xe, err := f.toWire(e)
	if err != nil {
		return nil, "", err
	}
	body, err := xml.Marshal(xe)
	if err != nil {
		return nil, "", err
	}
	return body, MediaType, nil
}

func (f Formatter) toWire(e *event.Event) (*xmlEvent, error) {
	if e == nil {
		return nil, fmt.Errorf("event must not be nil")
	}
	xe := &xmlEvent{SpecVersion: e.Version().String()}
	for _, name := range e.Names() {
		a := e.Attribute(name)
		v, err := e.Get(name)
		if err != nil {
			return nil, err
		}
		s, err := a.Format(v)
		if err != nil {
			return nil, err
		}
		xe.Attributes = append(xe.Attributes, xmlAttribute{
			Name:  name,
			Type:  a.Type().Name(),
			Value: s,
		})
	}
	data, err := encodeData(e)
	if err != nil {
		return nil, err
	}
	xe.Data = data
	return xe, nil
}

func encodeData(e *event.Event) (*xmlData, error) {
	d := e.Data()
	if d == nil {
		return nil, nil
	}
	switch v := d.(type) {
	case string:
		return &xmlData{Value: v}, nil
	case json.RawMessage:
		return &xmlData{Value: string(v)}, nil
	case []byte:
		return &xmlData{Encoding: base64Encoding, Value: base64.StdEncoding.EncodeToString(v)}, nil
	default:
		return nil, fmt.Errorf("data of type %T cannot be encoded as XML event data", d)
	}
}

// DecodeStructured implements format.Formatter.
func (f Formatter) DecodeStructured(body []byte, contentType string, exts ...*spec.Attribute) (*event.Event, error) {
	var xe xmlEvent
	if err := xml.Unmarshal(body, &xe); err != nil {
		return nil, format.Errorf("invalid XML: %v", err)
	}
	return f.fromWire(&xe, exts)
}

func (f Formatter) fromWire(xe *xmlEvent, exts []*spec.Attribute) (*event.Event, error) {
	version, err := spec.Lookup(xe.SpecVersion)
	if err != nil {
		return nil, format.Errorf("%v", err)
	}
	e, err := event.New(event.WithVersion(version), event.WithExtensions(exts...))
	if err != nil {
		return nil, err
	}
	for _, xa := range xe.Attributes {
		if err := decodeAttribute(e, xa); err != nil {
			return nil, err
		}
	}
	if xe.Data != nil {
		if err := decodeData(e, xe.Data); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func decodeAttribute(e *event.Event, xa xmlAttribute) error {
	if a := e.Attribute(xa.Name); a != nil {
		if xa.Type != "" && xa.Type != a.Type().Name() {
			return format.Errorf("attribute %q: declared type %q does not match %q", xa.Name, xa.Type, a.Type().Name())
		}
		return e.SetFromString(xa.Name, xa.Value)
	}
	t := types.LookupType(xa.Type)
	if t == nil {
		if xa.Type != "" {
			return format.Errorf("attribute %q: unknown type %q", xa.Name, xa.Type)
		}
		t = types.String
	}
	a, err := spec.NewExtension(xa.Name, t)
	if err != nil {
		return err
	}
	v, err := a.Parse(xa.Value)
	if err != nil {
		return err
	}
	return e.SetAttribute(a, v)
}

func decodeData(e *event.Event, xd *xmlData) error {
	if xd.Encoding == base64Encoding {
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(xd.Value))
		if err != nil {
			return format.Errorf("data: %v", err)
		}
		e.SetData(b)
		return nil
	}
	if xd.Encoding != "" {
		return format.Errorf("data: unknown encoding %q", xd.Encoding)
	}
	e.SetData(xd.Value)
	return nil
}

// EncodeBatch implements format.Formatter. An empty slice produces an empty
// <batch/> element.
func (f Formatter) EncodeBatch(evs []*event.Event) ([]byte, string, error) {
	batch := xmlBatch{}
	for _, e := range evs {
		xe, err := f.toWire(e)
		if err != nil {
			return nil, "", err
		}
		batch.Events = append(batch.Events, *xe)
	}
	body, err := xml.Marshal(batch)
	if err != nil {
		return nil, "", err
	}
	return body, BatchMediaType, nil
}

// DecodeBatch implements format.Formatter.
func (f Formatter) DecodeBatch(body []byte, contentType string, exts ...*spec.Attribute) ([]*event.Event, error) {
	var batch xmlBatch
	if err := xml.Unmarshal(body, &batch); err != nil {
		return nil, format.Errorf("invalid XML batch: %v", err)
	}
	evs := make([]*event.Event, 0, len(batch.Events))
	for i := range batch.Events {
		e, err := f.fromWire(&batch.Events[i], exts)
		if err != nil {
			return nil, err
		}
		evs = append(evs, e)
	}
	return evs, nil
}

// EncodeBinaryData implements format.Formatter. Text payloads pass through
// as UTF-8, bytes pass through untouched.
func (f Formatter) EncodeBinaryData(e *event.Event) ([]byte, error) {
	d := e.Data()
	if d == nil {
		return nil, nil
	}
	switch v := d.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("data of type %T cannot be encoded in binary mode", d)
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
	mt := e.DataContentType()
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if strings.HasPrefix(mt, "text/") || mt == "application/xml" || strings.HasSuffix(mt, "+xml") {
		e.SetData(string(body))
		return nil
	}
	e.SetData(append([]byte(nil), body...))
	return nil
}
