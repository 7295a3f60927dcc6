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

// inspect_ota is a tool to print the header and sub-elements of a Zigbee OTA
// upgrade file, and optionally extract the sub-element payloads.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/ota"
)

var (
	extractDir  = flag.String("extract_dir", "", "If set, write each sub-element payload to <extract_dir>/<tag>.bin")
	compression = flag.String("compress", "none", "Compression the payloads were built with: none or zlib")
)

// report is what inspect_ota prints.
type report struct {
	Header      ota.Header `json:"header"`
	FileVersion string     `json:"file_version"`
	// FileVersionMajorMinor is set when the file version could also have
	// been built from a two component "X.Y" version.
	FileVersionMajorMinor string       `json:"file_version_major_minor,omitempty"`
	SubElements           []subElement `json:"sub_elements"`
}

// subElement describes one sub-element; Preview is the hex encoding of the
// first bytes of its stored data.
type subElement struct {
	Tag     uint16 `json:"tag"`
	Name    string `json:"name"`
	Length  int    `json:"length"`
	Preview string `json:"preview"`
}

const previewLen = 16

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		glog.Exitf("Usage: %s [flags] FILE", os.Args[0])
	}
	c, err := ota.ParseCompression(*compression)
	if err != nil {
		glog.Exitf("Invalid --compress: %v", err)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		glog.Exitf("Failed to read OTA file: %v", err)
	}
	img, err := ota.Parse(raw)
	if err != nil {
		glog.Exitf("Failed to parse %q: %v", flag.Arg(0), err)
	}

	b, err := json.MarshalIndent(describe(img), "", "  ")
	if err != nil {
		glog.Exitf("Failed to marshal report: %v", err)
	}
	fmt.Println(string(b))

	if *extractDir != "" {
		if err := extract(img, c, *extractDir); err != nil {
			glog.Exitf("Failed to extract payloads: %v", err)
		}
	}
}

func describe(img *ota.Image) report {
	r := report{
		Header:                img.Header,
		FileVersion:           ota.FormatVersion(img.Header.FileVersion),
		FileVersionMajorMinor: ota.FormatVersionMajorMinor(img.Header.FileVersion),
		SubElements:           make([]subElement, 0, len(img.SubElements)),
	}
	for _, s := range img.SubElements {
		p := s.Data
		if len(p) > previewLen {
			p = p[:previewLen]
		}
		r.SubElements = append(r.SubElements, subElement{
			Tag:     s.Tag,
			Name:    ota.TagName(s.Tag),
			Length:  len(s.Data),
			Preview: hex.EncodeToString(p),
		})
	}
	return r
}

// extract writes each sub-element payload, decoded with c, to dir.
func extract(img *ota.Image, c ota.Compression, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range img.SubElements {
		data, err := ota.Decompress(s.Data, c)
		if err != nil {
			return fmt.Errorf("%s: %w", ota.TagName(s.Tag), err)
		}
		name := filepath.Join(dir, fmt.Sprintf("%04x.bin", s.Tag))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return err
		}
		glog.V(1).Infof("Wrote %d bytes of %s to %q", len(data), ota.TagName(s.Tag), name)
	}
	return nil
}
