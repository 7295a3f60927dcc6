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

package partition

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ticmeter/firmware-tools/api"
)

const testTable = `# ESP-IDF Partition Table
# Name,   Type, SubType, Offset,  Size, Flags
nvs,      data, nvs,     0x9000,  0x6000,
otadata,  data, ota,     0xf000,  0x2000,
phy_init, data, phy,     0x11000, 0x1000,
ota_0,    app,  ota_0,   0x20000, 1600K,
ota_1,    app,  ota_1,   ,        1600K,
storage,  data, spiffs,  ,        512K, readonly
zb_storage, data, fat,   ,        16K, encrypted:readonly
`

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader(testTable))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Table{
		{Name: "nvs", Type: "data", SubType: "nvs", Offset: 0x9000, Size: 0x6000},
		{Name: "otadata", Type: "data", SubType: "ota", Offset: 0xf000, Size: 0x2000},
		{Name: "phy_init", Type: "data", SubType: "phy", Offset: 0x11000, Size: 0x1000},
		{Name: "ota_0", Type: "app", SubType: "ota_0", Offset: 0x20000, Size: 1600 << 10},
		// 0x20000 + 0x190000 = 0x1b0000, already 64K aligned.
		{Name: "ota_1", Type: "app", SubType: "ota_1", Offset: 0x1b0000, Size: 1600 << 10},
		{Name: "storage", Type: "data", SubType: "spiffs", Offset: 0x340000, Size: 512 << 10, Flags: []string{"readonly"}},
		{Name: "zb_storage", Type: "data", SubType: "fat", Offset: 0x3c0000, Size: 16 << 10, Flags: []string{"encrypted", "readonly"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse diff (-want +got):\n%s", diff)
	}
}

func TestParseAlignment(t *testing.T) {
	got, err := Parse(strings.NewReader("nvs, data, nvs, , 0x5000\nfactory, app, factory, , 1M\nextra, data, 0x99, , 0x800\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var offsets []uint32
	for _, p := range got {
		offsets = append(offsets, p.Offset)
	}
	if diff := cmp.Diff([]uint32{0x9000, 0x10000, 0x110000}, offsets); diff != "" {
		t.Fatalf("offsets diff (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		desc  string
		table string
	}{
		{desc: "empty", table: "# only a comment\n"},
		{desc: "too few columns", table: "nvs, data, nvs, 0x9000\n"},
		{desc: "bad size", table: "nvs, data, nvs, 0x9000, lots\n"},
		{desc: "bad offset", table: "nvs, data, nvs, here, 0x1000\n"},
		{desc: "duplicate", table: "nvs, data, nvs, , 0x1000\nnvs, data, nvs, , 0x1000\n"},
		{desc: "overlap", table: "a, data, nvs, 0x9000, 0x2000\nb, data, nvs, 0xa000, 0x1000\n"},
		{desc: "empty name", table: ", data, nvs, 0x9000, 0x1000\n"},
	} {
		t.Run(test.desc, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(test.table)); err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", test.table)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	for _, test := range []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "4096", want: 4096},
		{in: "0x1000", want: 0x1000},
		{in: "64K", want: 64 << 10},
		{in: "4M", want: 4 << 20},
		{in: "0x10k", want: 16 << 10},
		{in: "5000M", wantErr: true},
		{in: "", wantErr: true},
		{in: "K", wantErr: true},
	} {
		t.Run(test.in, func(t *testing.T) {
			got, err := ParseSize(test.in)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("ParseSize(%q) = %v, wantErr: %v", test.in, err, test.wantErr)
			}
			if got != test.want {
				t.Fatalf("ParseSize(%q) = %#x, want %#x", test.in, got, test.want)
			}
		})
	}
}

func TestManifest(t *testing.T) {
	table, err := Parse(strings.NewReader(testTable))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts := ManifestOptions{
		Name:       "ESP Linky TIC",
		Version:    "2.0",
		ChipFamily: "ESP32-C6",
		BaseURL:    "https://example.com/dl/",
		Files:      DefaultFiles,
	}
	got, err := Manifest(table, opts)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	want := api.FlashManifest{
		Name:                  "ESP Linky TIC",
		Version:               "2.0",
		NewInstallPromptErase: true,
		Builds: []api.FlashBuild{{
			ChipFamily: "ESP32-C6",
			Parts: []api.FlashPart{
				{Path: "https://example.com/dl/bootloader.bin", Offset: 0},
				{Path: "https://example.com/dl/partition-table.bin", Offset: 0x8000},
				{Path: "https://example.com/dl/ota_data_initial.bin", Offset: 0xf000},
				{Path: "https://example.com/dl/TICMeter.bin", Offset: 0x20000},
				{Path: "https://example.com/dl/storage.bin", Offset: 0x340000},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Manifest diff (-want +got):\n%s", diff)
	}

	opts.Files = append(opts.Files, FileMapping{Partition: "missing", File: "x.bin"})
	if _, err := Manifest(table, opts); err == nil {
		t.Fatalf("Manifest with unknown partition succeeded")
	}
}
