// Copyright 2024 The Project Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package capture turns serial captures of TIC frames into test vectors.
//
// Captures are written as text where non-printable bytes appear as a decimal
// escape in brackets, e.g. "[2][10]ADSC[9]..." for STX, LF, "ADSC", TAB.
// Line breaks in the capture are only there for readability.
package capture

import (
	"fmt"
	"strconv"
	"strings"
)

// Decode converts an escaped capture into the raw bytes it stands for.
func Decode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n', '\r':
		case '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("offset %d: unterminated escape", i)
			}
			esc := s[i+1 : i+1+end]
			n, err := strconv.ParseUint(esc, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("offset %d: invalid escape [%s]: %w", i, esc, err)
			}
			out = append(out, byte(n))
			i += end + 1
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

// CArray renders b as a C array definition named name.
func CArray(name string, b []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "static const char %s[] = {", name)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%#x", c)
	}
	sb.WriteString("};")
	return sb.String()
}
