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

package capture

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	for _, test := range []struct {
		desc    string
		in      string
		want    []byte
		wantErr bool
	}{
		{
			desc: "frame start",
			in:   "[2][10]ADSC[9]0[13]\n[10]VTIC[9]02[9]J[13]\n[3]",
			want: []byte("\x02\nADSC\t0\r\nVTIC\t02\tJ\r\x03"),
		}, {
			desc: "space escapes",
			in:   "[32][32]HP",
			want: []byte("  HP"),
		}, {
			desc: "bracket edge values",
			in:   "[0][255]",
			want: []byte{0, 255},
		}, {
			desc: "empty",
			in:   "",
			want: []byte{},
		}, {
			desc:    "unterminated",
			in:      "AB[12",
			wantErr: true,
		}, {
			desc:    "not a number",
			in:      "[x]",
			wantErr: true,
		}, {
			desc:    "out of range",
			in:      "[256]",
			wantErr: true,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			got, err := Decode(test.in)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Decode(%q) = %v, wantErr: %v", test.in, err, test.wantErr)
			}
			if test.wantErr {
				return
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("Decode(%q) diff (-want +got):\n%s", test.in, diff)
			}
		})
	}
}

func TestCArray(t *testing.T) {
	b, err := Decode("[2][10]A[3]")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := CArray("trame", b), "static const char trame[] = {0x2,0xa,0x41,0x3};"; got != want {
		t.Fatalf("CArray = %q, want %q", got, want)
	}
	if got, want := CArray("empty", nil), "static const char empty[] = {};"; got != want {
		t.Fatalf("CArray = %q, want %q", got, want)
	}
}
