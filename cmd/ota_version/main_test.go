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

package main

import (
	"testing"

	"github.com/ticmeter/firmware-tools/ota"
)

func TestFormat(t *testing.T) {
	for _, test := range []struct {
		version string
		hex     bool
		want    string
	}{
		{version: "v2.0.1", want: "131073"},
		{version: "v2.0.1", hex: true, want: "0x020001"},
		{version: "1.5", want: "261"},
		{version: "255.255.9", hex: true, want: "0xffff09"},
		// Only the first ten characters are read.
		{version: "255.255.255", hex: true, want: "0xffff19"},
	} {
		t.Run(test.version, func(t *testing.T) {
			v, err := ota.ParseVersion(test.version)
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", test.version, err)
			}
			if got := format(v, test.hex); got != test.want {
				t.Fatalf("format(%#x, %v) = %q, want %q", v, test.hex, got, test.want)
			}
		})
	}
}
