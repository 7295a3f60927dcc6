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

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func u16(v uint16) *Uint16 {
	u := Uint16(v)
	return &u
}

func TestLoad(t *testing.T) {
	for _, test := range []struct {
		desc    string
		yaml    string
		want    *Profile
		wantErr bool
	}{
		{
			desc: "full",
			yaml: "manufacturer_id: 0x131b\nimage_type: 1\nfile_version: v2.0.1\nheader_string: TICMeter\ncompression: zlib\n",
			want: &Profile{
				ManufacturerID: u16(0x131b),
				ImageType:      u16(1),
				FileVersion:    "v2.0.1",
				HeaderString:   "TICMeter",
				Compression:    "zlib",
			},
		}, {
			desc: "partial",
			yaml: "image_type: 0o17\n",
			want: &Profile{ImageType: u16(15)},
		}, {
			desc:    "out of range",
			yaml:    "manufacturer_id: 0x10000\n",
			wantErr: true,
		}, {
			desc:    "unknown key",
			yaml:    "manufacturer: 4\n",
			wantErr: true,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "profile.yaml")
			if err := os.WriteFile(p, []byte(test.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := Load(p)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Load() = %v, wantErr: %v", err, test.wantErr)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("Load() diff (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load(missing) succeeded")
	}
}
