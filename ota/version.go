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

package ota

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// InvalidVersion is the file_version the firmware reports for a version
// string it could not parse. FileVersion returns it for the same inputs.
const InvalidVersion uint32 = 0xFFFFFFFF

// maxVersionLen bounds how much of a version string is looked at, after the
// "v" prefix. Longer strings are cut, so "255.255.255" reads as "255.255.25".
const maxVersionLen = 10

// ParseVersion converts a firmware version string such as "v2.0.1" or
// "1.5-dev" into the numeric file_version used in OTA headers.
//
// Three components encode as major<<16 | minor<<8 | revision, two as
// major<<8 | minor. Components are OR-ed together without range checks, so a
// minor above 255 spills into the major byte; this matches what the firmware
// computes for its own version. Components must be plain decimal digits.
func ParseVersion(version string) (uint32, error) {
	if version == "" {
		return InvalidVersion, errors.New("empty version")
	}

	v := version
	if v[0] == 'v' || v[0] == 'V' {
		v = v[1:]
	}
	if len(v) > maxVersionLen {
		v = v[:maxVersionLen]
	}
	v, _, _ = strings.Cut(v, "-")

	parts := strings.Split(v, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return InvalidVersion, fmt.Errorf("invalid version format %q: want 2 or 3 components, got %d", version, len(parts))
	}
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return InvalidVersion, fmt.Errorf("invalid version format %q: %w", version, err)
		}
		nums[i] = n
	}

	var hex uint64
	if len(nums) == 3 {
		hex = nums[0]<<16 | nums[1]<<8 | nums[2]
	} else {
		hex = nums[0]<<8 | nums[1]
	}
	return uint32(hex), nil
}

// FileVersion is ParseVersion for callers that tolerate bad input: errors
// are logged and InvalidVersion is returned.
func FileVersion(version string) uint32 {
	v, err := ParseVersion(version)
	if err != nil {
		glog.Errorf("Invalid version: %v", err)
		return InvalidVersion
	}
	return v
}

// FormatVersion renders a three component file_version as "X.Y.Z".
func FormatVersion(v uint32) string {
	if v == InvalidVersion {
		return "invalid"
	}
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}

// FormatVersionMajorMinor renders v as the two component "X.Y" it encodes
// when it fits in 16 bits, and "" otherwise. A file_version does not record
// how many components it was built from.
func FormatVersionMajorMinor(v uint32) string {
	if v > 0xffff {
		return ""
	}
	return fmt.Sprintf("%d.%d", v>>8, v&0xff)
}
