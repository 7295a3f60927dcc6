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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ticmeter/firmware-tools/ota"
)

func TestParseFileVersion(t *testing.T) {
	for _, test := range []struct {
		desc    string
		v       string
		strict  bool
		want    uint32
		wantErr bool
	}{
		{desc: "decimal integer", v: "2", want: 2},
		{desc: "hex integer", v: "0x00020001", want: 0x020001},
		{desc: "version string", v: "v2.0.1", want: 0x020001},
		{desc: "two components", v: "1.5", want: 0x0105},
		{desc: "invalid embeds sentinel", v: "garbage", want: ota.InvalidVersion},
		{desc: "invalid strict", v: "garbage", strict: true, wantErr: true},
		{desc: "valid strict", v: "3.1.4", strict: true, want: 0x030104},
	} {
		t.Run(test.desc, func(t *testing.T) {
			got, err := parseFileVersion(test.v, test.strict)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("parseFileVersion(%q, %v) = %v, wantErr: %v", test.v, test.strict, err, test.wantErr)
			}
			if !test.wantErr && got != test.want {
				t.Fatalf("parseFileVersion(%q, %v) = %#x, want %#x", test.v, test.strict, got, test.want)
			}
		})
	}
}

func TestUint16Flag(t *testing.T) {
	for _, test := range []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{in: "0x131b", want: 0x131b},
		{in: "4891", want: 4891},
		{in: "0o17", want: 15},
		{in: "0x10000", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
	} {
		t.Run(test.in, func(t *testing.T) {
			var f uint16Flag
			err := f.Set(test.in)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Set(%q) = %v, wantErr: %v", test.in, err, test.wantErr)
			}
			if test.wantErr {
				if f.set {
					t.Fatalf("Set(%q) failed but marked the flag as set", test.in)
				}
				return
			}
			if f.v != test.want || !f.set {
				t.Fatalf("Set(%q) = %#x (set %v), want %#x", test.in, f.v, f.set, test.want)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	firmware := bytes.Repeat([]byte{0xe9, 0x03}, 300)
	storage := []byte("<html><body>TICMeter</body></html>")
	fwPath := filepath.Join(dir, "TICMeter.bin")
	stPath := filepath.Join(dir, "storage.bin")
	for p, b := range map[string][]byte{fwPath: firmware, stPath: storage} {
		if err := os.WriteFile(p, b, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	cfg := ota.Config{
		ManufacturerID: 0x131b,
		ImageType:      1,
		FileVersion:    0x020001,
		HeaderString:   "TICMeter",
		Compression:    ota.CompressionZlib,
	}

	out := filepath.Join(dir, "TICMeter.ota")
	img, err := create(cfg, fwPath, stPath, out)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	parsed, err := ota.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(img, parsed); diff != "" {
		t.Errorf("written image diff (-built +read):\n%s", diff)
	}
	for tag, want := range map[uint16][]byte{ota.TagUpgradeImage: firmware, ota.TagStorage: storage} {
		got, err := parsed.Payload(tag, ota.CompressionZlib)
		if err != nil {
			t.Fatalf("Payload(%s): %v", ota.TagName(tag), err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Payload(%s) did not round trip", ota.TagName(tag))
		}
	}

	missing := filepath.Join(dir, "missing.ota")
	if _, err := create(cfg, filepath.Join(dir, "nope.bin"), "", missing); err == nil {
		t.Fatalf("create with a missing input succeeded")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Errorf("create left an output behind after failing: %v", err)
	}
}
