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
	"fmt"

	"github.com/ticmeter/firmware-tools/api"
)

const (
	// BootloaderFile and TableFile are the build outputs flashed ahead of
	// any partition.
	BootloaderFile = "bootloader.bin"
	TableFile      = "partition-table.bin"
)

// FileMapping names the image file flashed into a partition.
type FileMapping struct {
	Partition string
	File      string
}

// DefaultFiles is what a release of the firmware ships for its partitions.
var DefaultFiles = []FileMapping{
	{Partition: "otadata", File: "ota_data_initial.bin"},
	{Partition: "storage", File: "storage.bin"},
	{Partition: "ota_0", File: "TICMeter.bin"},
}

// ManifestOptions describe the manifest besides the partition layout.
type ManifestOptions struct {
	Name       string
	Version    string
	ChipFamily string
	// BaseURL is prepended to every file name.
	BaseURL string
	// HomeAssistantDomain and FundingURL are copied verbatim when set.
	HomeAssistantDomain string
	FundingURL          string
	// BootloaderOffset is 0 on the ESP32-C6 and ESP32-H2.
	BootloaderOffset uint32
	Files            []FileMapping
}

// Manifest builds a flashing manifest: the bootloader, the partition table,
// then every mapped partition in table order.
func Manifest(t Table, opts ManifestOptions) (api.FlashManifest, error) {
	parts := []api.FlashPart{
		{Path: opts.BaseURL + BootloaderFile, Offset: opts.BootloaderOffset},
		{Path: opts.BaseURL + TableFile, Offset: TableOffset},
	}

	files := make(map[string]string, len(opts.Files))
	for _, f := range opts.Files {
		if _, ok := t.Lookup(f.Partition); !ok {
			return api.FlashManifest{}, fmt.Errorf("partition %q is not in the partition table", f.Partition)
		}
		files[f.Partition] = f.File
	}
	for _, p := range t {
		if f, ok := files[p.Name]; ok {
			parts = append(parts, api.FlashPart{Path: opts.BaseURL + f, Offset: p.Offset})
		}
	}

	return api.FlashManifest{
		Name:                  opts.Name,
		Version:               opts.Version,
		HomeAssistantDomain:   opts.HomeAssistantDomain,
		FundingURL:            opts.FundingURL,
		NewInstallPromptErase: true,
		Builds: []api.FlashBuild{{
			ChipFamily: opts.ChipFamily,
			Parts:      parts,
		}},
	}, nil
}
