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

package spec

import (
	"fmt"

	"github.com/eventmesh-io/cloudenvelope/types"
)

// Concept identifies a well-known attribute independent of the name a
// particular spec version gives it.
type Concept int

const (
	ConceptID Concept = iota
	ConceptSource
	ConceptType
	ConceptTime
	ConceptSubject
	ConceptDataSchema
	ConceptDataContentType

	numConcepts
)

// Concepts lists all well-known concepts in a stable order.
func Concepts() []Concept {
	cs := make([]Concept, numConcepts)
	for i := range cs {
		cs[i] = Concept(i)
	}
	return cs
}

// Version is one revision of the CloudEvents specification: a fixed table of
// canonical attribute descriptors keyed by concept. Instances are immutable
// package-level singletons.
type Version struct {
	version     string
	markerName  string
	names       map[Concept]string
	byConcept   map[Concept]*Attribute
	byName      map[string]*Attribute
	required    []*Attribute
}

// The closed set of supported spec versions. Attribute names changed across
// revisions: 0.1 used eventID/eventType/eventTime/schemaURL/contentType, 0.2
// renamed those but kept schemaurl/contenttype, 0.3 introduced subject and
// datacontenttype, 1.0 renamed schemaurl to dataschema.
var (
	V01 = newVersion("0.1", "cloudEventsVersion", map[Concept]string{
		ConceptID:              "eventID",
		ConceptSource:          "source",
		ConceptType:            "eventType",
		ConceptTime:            "eventTime",
		ConceptDataSchema:      "schemaURL",
		ConceptDataContentType: "contentType",
	})
	V02 = newVersion("0.2", SpecVersionName, map[Concept]string{
		ConceptID:              "id",
		ConceptSource:          "source",
		ConceptType:            "type",
		ConceptTime:            "time",
		ConceptDataSchema:      "schemaurl",
		ConceptDataContentType: "contenttype",
	})
	V03 = newVersion("0.3", SpecVersionName, map[Concept]string{
		ConceptID:              "id",
		ConceptSource:          "source",
		ConceptType:            "type",
		ConceptTime:            "time",
		ConceptSubject:         "subject",
		ConceptDataSchema:      "schemaurl",
		ConceptDataContentType: "datacontenttype",
	})
	V1 = newVersion("1.0", SpecVersionName, map[Concept]string{
		ConceptID:              "id",
		ConceptSource:          "source",
		ConceptType:            "type",
		ConceptTime:            "time",
		ConceptSubject:         "subject",
		ConceptDataSchema:      "dataschema",
		ConceptDataContentType: "datacontenttype",
	})

	// Latest is the default version for new events.
	Latest = V1

	allVersions = []*Version{V01, V02, V03, V1}
	byVersion   = map[string]*Version{}
)

func init() {
	for _, v := range allVersions {
		byVersion[v.version] = v
	}
}

func conceptType(c Concept) *types.Type {
	switch c {
	case ConceptSource:
		return types.URIRef
	case ConceptTime:
		return types.Timestamp
	case ConceptDataSchema:
		return types.URI
	}
	return types.String
}

func conceptRequired(c Concept) bool {
	switch c {
	case ConceptID, ConceptSource, ConceptType:
		return true
	}
	return false
}

func newVersion(version, markerName string, names map[Concept]string) *Version {
	v := &Version{
		version:    version,
		markerName: markerName,
		names:      names,
		byConcept:  make(map[Concept]*Attribute, len(names)),
		byName:     make(map[string]*Attribute, len(names)),
	}
	for _, c := range Concepts() {
		name, ok := names[c]
		if !ok {
			continue
		}
		a := &Attribute{
			name:     name,
			typ:      conceptType(c),
			required: conceptRequired(c),
		}
		v.byConcept[c] = a
		v.byName[name] = a
		if a.required {
			v.required = append(v.required, a)
		}
	}
	return v
}

// String returns the version identifier, e.g. "1.0".
func (v *Version) String() string { return v.version }

// MarkerName is the name of the spec-version marker attribute on the wire,
// e.g. "specversion" (or "cloudEventsVersion" in 0.1).
func (v *Version) MarkerName() string { return v.markerName }

// Attribute returns this version's descriptor for the given attribute name,
// or nil when the name is not a well-known attribute of this version.
func (v *Version) Attribute(name string) *Attribute { return v.byName[name] }

// AttributeFor returns the descriptor for a concept, or nil when this
// version has no such concept (e.g. subject before 0.3).
func (v *Version) AttributeFor(c Concept) *Attribute { return v.byConcept[c] }

// Name returns the version-specific attribute name for a concept.
func (v *Version) Name(c Concept) (string, bool) {
	n, ok := v.names[c]
	return n, ok
}

// Required returns the required attribute descriptors of this version.
func (v *Version) Required() []*Attribute {
	out := make([]*Attribute, len(v.required))
	copy(out, v.required)
	return out
}

// Versions returns all supported spec versions, oldest first.
func Versions() []*Version {
	out := make([]*Version, len(allVersions))
	copy(out, allVersions)
	return out
}

// Lookup resolves a version identifier string.
func Lookup(version string) (*Version, error) {
	if v, ok := byVersion[version]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unsupported CloudEvents spec version %q", version)
}
