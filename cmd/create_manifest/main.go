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

// create_manifest is a tool to generate the web flasher manifest of a
// firmware build from its partition table.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/partition"
)

var (
	partitions = flag.String("partitions", "partitions.csv", "Path to the partition table CSV")
	output     = flag.String("output", "", "Path to write the manifest to, stdout if empty")
	baseURL    = flag.String("base_url", "", "URL prefix of every flashed file")
	name       = flag.String("name", "TICMeter", "Product name shown by the flasher")
	version    = flag.String("version", "", "Firmware version shown by the flasher")
	chipFamily = flag.String("chip_family", "ESP32-C6", "Chip family the build targets")
	haDomain   = flag.String("home_assistant_domain", "", "Optional Home Assistant integration domain")
	fundingURL = flag.String("funding_url", "", "Optional funding URL")
	bootOffset = flag.Uint("bootloader_offset", 0, "Flash offset of the bootloader")
)

var parts partFlag

func init() {
	flag.Var(&parts, "part", "Partition to flash as name=file, may be repeated; defaults to the release layout")
}

// partFlag collects repeated --part name=file flags.
type partFlag []partition.FileMapping

func (p *partFlag) String() string {
	if p == nil {
		return ""
	}
	s := make([]string, 0, len(*p))
	for _, m := range *p {
		s = append(s, m.Partition+"="+m.File)
	}
	return strings.Join(s, ",")
}

func (p *partFlag) Set(v string) error {
	n, f, ok := strings.Cut(v, "=")
	if !ok || n == "" || f == "" {
		return fmt.Errorf("want name=file, got %q", v)
	}
	*p = append(*p, partition.FileMapping{Partition: n, File: f})
	return nil
}

func main() {
	flag.Parse()
	if err := checkFlags(); err != nil {
		glog.Exitf("Invalid flag(s):\n%s", err)
	}

	f, err := os.Open(*partitions)
	if err != nil {
		glog.Exitf("Failed to open partition table: %v", err)
	}
	table, err := partition.Parse(f)
	f.Close()
	if err != nil {
		glog.Exitf("Failed to parse %q: %v", *partitions, err)
	}
	for _, p := range table {
		glog.V(1).Infof("%-12s %-5s %-8s %#08x %#08x", p.Name, p.Type, p.SubType, p.Offset, p.Size)
	}

	files := []partition.FileMapping(parts)
	if len(files) == 0 {
		files = partition.DefaultFiles
	}
	m, err := partition.Manifest(table, partition.ManifestOptions{
		Name:                *name,
		Version:             *version,
		ChipFamily:          *chipFamily,
		BaseURL:             *baseURL,
		HomeAssistantDomain: *haDomain,
		FundingURL:          *fundingURL,
		BootloaderOffset:    uint32(*bootOffset),
		Files:               files,
	})
	if err != nil {
		glog.Exitf("Failed to build manifest: %v", err)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		glog.Exitf("Failed to marshal manifest: %v", err)
	}
	if *output == "" {
		fmt.Println(string(b))
		return
	}
	if err := os.WriteFile(*output, append(b, '\n'), 0o644); err != nil {
		glog.Exitf("Failed to write manifest: %v", err)
	}
	glog.Infof("Wrote manifest with %d parts to %q", len(m.Builds[0].Parts), *output)
}

func checkFlags() error {
	errs := make([]string, 0)
	checkEmpty := func(n, s string) {
		if s == "" {
			errs = append(errs, fmt.Sprintf("--%s can't be empty", n))
		}
	}
	checkEmpty("partitions", *partitions)
	checkEmpty("name", *name)
	checkEmpty("version", *version)
	checkEmpty("chip_family", *chipFamily)
	if *bootOffset >= partition.TableOffset {
		errs = append(errs, fmt.Sprintf("--bootloader_offset %#x must be below the partition table at %#x", *bootOffset, partition.TableOffset))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}
	return nil
}
