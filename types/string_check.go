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

package types

import (
	"fmt"
	"unicode/utf8"
)

// checkString enforces the CloudEvents String attribute rules: no control
// characters, no Unicode noncharacters and no unpaired surrogates. Go
// strings carry UTF-8, so an unpaired UTF-16 surrogate can only appear as an
// invalid byte sequence and is caught by the UTF-8 well-formedness check.
func checkString(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size <= 1 {
				return fmt.Errorf("malformed UTF-8 (unpaired surrogate?) at byte %d", i)
			}
		}
		if r <= 0x1f || (r >= 0x7f && r <= 0x9f) {
			return fmt.Errorf("control character U+%04X at byte %d", r, i)
		}
		if r >= 0xfdd0 && r <= 0xfdef {
			return fmt.Errorf("noncharacter U+%04X at byte %d", r, i)
		}
		if r&0xffff >= 0xfffe {
			return fmt.Errorf("noncharacter U+%04X at byte %d", r, i)
		}
	}
	return nil
}
