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
	"errors"
	"fmt"
	"testing"

	"github.com/eventmesh-io/cloudenvelope/types"
)

func TestNewExtension(t *testing.T) {
	tests := []struct {
		name     string
		attrName string
		typ      *types.Type
		wantErr  bool
	}{
		{"valid", "myext", types.String, false},
		{"valid with digits", "ext2", types.Integer, false},
		{"empty name", "", types.String, true},
		{"uppercase", "myExt", types.String, true},
		{"underscore", "my_ext", types.String, true},
		{"hyphen", "my-ext", types.String, true},
		{"reserved specversion", "specversion", types.String, true},
		{"reserved data", "data", types.String, true},
		{"nil type", "myext", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := NewExtension(tc.attrName, tc.typ)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewExtension(%q) error = %v, wantErr %v", tc.attrName, err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if a.Name() != tc.attrName {
				t.Errorf("Name() = %q, want %q", a.Name(), tc.attrName)
			}
			if a.Type() != tc.typ {
				t.Errorf("Type() = %v, want %v", a.Type(), tc.typ)
			}
			if !a.IsExtension() {
				t.Error("IsExtension() = false, want true")
			}
			if a.IsRequired() {
				t.Error("IsRequired() = true, want false")
			}
		})
	}
}

func TestAttributeParseWrapsError(t *testing.T) {
	a, err := NewExtension("count", types.Integer)
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Parse("not a number")
	if err == nil {
		t.Fatal("Parse succeeded, want error")
	}
	var ae *AttributeError
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not an *AttributeError", err)
	}
	if ae.Name != "count" {
		t.Errorf("AttributeError.Name = %q, want %q", ae.Name, "count")
	}
	if ae.Err == nil {
		t.Error("AttributeError.Err is nil, want wrapped cause")
	}
}

func TestAttributeCustomValidator(t *testing.T) {
	errNegative := fmt.Errorf("value must not be negative")
	a, err := NewExtension("count", types.Integer, WithValidator(ValidatorFunc(func(v types.Value) error {
		if n, _ := v.AsInteger(); n < 0 {
			return errNegative
		}
		return nil
	})))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Parse("10"); err != nil {
		t.Errorf("Parse(%q) returned error: %v", "10", err)
	}
	if _, err := a.Parse("-1"); !errors.Is(err, errNegative) {
		t.Errorf("Parse(%q) error = %v, want wrapped %v", "-1", err, errNegative)
	}
	if err := a.Validate(types.NewInteger(-1)); !errors.Is(err, errNegative) {
		t.Errorf("Validate error = %v, want wrapped %v", err, errNegative)
	}
	if _, err := a.Format(types.NewInteger(-1)); !errors.Is(err, errNegative) {
		t.Errorf("Format error = %v, want wrapped %v", err, errNegative)
	}
	if got, err := a.Format(types.NewInteger(3)); err != nil || got != "3" {
		t.Errorf("Format = %q, %v, want %q, nil", got, err, "3")
	}
}

func TestAttributeEquality(t *testing.T) {
	strExt, _ := NewExtension("key", types.String)
	strExt2, _ := NewExtension("key", types.String)
	intExt, _ := NewExtension("key", types.Integer)
	other, _ := NewExtension("other", types.String)
	id := V1.AttributeFor(ConceptID)

	if !strExt.SameName(intExt) {
		t.Error("SameName: attributes sharing a name compared unequal")
	}
	if strExt.SameName(other) {
		t.Error("SameName: distinct names compared equal")
	}
	if !strExt.Equal(strExt2) {
		t.Error("Equal: identical name+type compared unequal")
	}
	if strExt.Equal(intExt) {
		t.Error("Equal: differing types compared equal")
	}
	if !strExt.Strict(strExt2) {
		t.Error("Strict: identical extensions compared unequal")
	}
	idExt, _ := NewExtension("id", types.String)
	if id.Strict(idExt) {
		t.Error("Strict: spec attribute equal to extension of the same name and type")
	}
	if !id.Equal(idExt) {
		t.Error("Equal: name+type should match regardless of extension flag")
	}
}
