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

// Package profile loads OTA build profiles: YAML files holding the image
// identity of a product so it need not be repeated on every command line.
//
//	manufacturer_id: 0x131b
//	image_type: 0x0001
//	header_string: TICMeter
//	compression: zlib
package profile

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Profile holds defaults for create_ota. Unset fields are nil or empty.
type Profile struct {
	ManufacturerID *Uint16 `yaml:"manufacturer_id"`
	ImageType      *Uint16 `yaml:"image_type"`
	FileVersion    string  `yaml:"file_version"`
	HeaderString   string  `yaml:"header_string"`
	Compression    string  `yaml:"compression"`
}

// Uint16 is a 16-bit integer that may be written in any base, e.g. 0x131b.
type Uint16 uint16

// UnmarshalYAML implements yaml.Unmarshaler.
func (u *Uint16) UnmarshalYAML(n *yaml.Node) error {
	v, err := strconv.ParseUint(n.Value, 0, 16)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a 16-bit integer: %v", n.Line, n.Value, err)
	}
	*u = Uint16(v)
	return nil
}

// Load reads the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %q: %w", path, err)
	}
	p := &Profile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %q: %w", path, err)
	}
	return p, nil
}
