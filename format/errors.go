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

import "fmt"

// Error is the format-class error raised on the decode path: malformed wire
// bytes, unknown or mismatched spec versions, conflicting data fields.
// Callers should treat any Error as "not a valid CloudEvent".
type Error struct {
	Err error
}

func (e *Error) Error() string { return "malformed CloudEvent: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a format-class error.
func Errorf(msg string, args ...interface{}) *Error {
	return &Error{Err: fmt.Errorf(msg, args...)}
}
