// Copyright 2021 The Project Authors. All Rights Reserved.
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

// Package api contains public structures describing firmware releases.
package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
)

const (
	// FirmwareArtifactName is the name of the OTA image which is expected
	// to be present in the ArtifactSHA256 map of valid FirmwareRelease instances.
	FirmwareArtifactName = "TICMeter.ota"
)

// FirmwareRelease represents a firmware release, and contains what a device
// or an installer needs to check that the artifacts it was handed are the
// ones that were published.
type FirmwareRelease struct {
	// Description is a human readable description of the firmware release.
	Description string `json:"description"`

	// PlatformID identifies the hardware platform this release targets.
	// e.g. "ESP32-C6"
	PlatformID string `json:"platform_id"`

	// Revision identifies the revision of this release.
	// e.g. "v2.0.1"
	Revision string `json:"revision"`

	// ManufacturerID, ImageType and FileVersion are copied from the header
	// of the OTA image.
	ManufacturerID uint16 `json:"manufacturer_id"`
	ImageType      uint16 `json:"image_type"`
	FileVersion    uint32 `json:"file_version"`

	// ArtifactSHA256 contains the SHA256 hashes of the named release artifacts.
	ArtifactSHA256 map[string][]byte `json:"artifact_sha256"`

	// ArtifactRoot is the RFC 6962 Merkle tree root over ArtifactSHA256,
	// one leaf per artifact in name order.
	ArtifactRoot []byte `json:"artifact_root"`

	// ToolChain identifies the toolchain used to build the release.
	ToolChain string `json:"tool_chain"`

	// BuildArgs identifies the set of build arguments used to build the firmware from the source.
	BuildArgs map[string]string `json:"build_args,omitempty"`
}

// SemVer parses Revision, with or without a leading "v".
func (r FirmwareRelease) SemVer() (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(strings.TrimPrefix(r.Revision, "v"), "V"))
}

// Validate checks the fields every release must carry.
func (r FirmwareRelease) Validate() error {
	errs := make([]string, 0)
	if r.Revision == "" {
		errs = append(errs, "revision must not be empty")
	} else if _, err := r.SemVer(); err != nil {
		errs = append(errs, fmt.Sprintf("revision %q is not a semantic version: %v", r.Revision, err))
	}
	if len(r.ArtifactSHA256) == 0 {
		errs = append(errs, "no artifacts")
	}
	for name, h := range r.ArtifactSHA256 {
		if len(h) != 32 {
			errs = append(errs, fmt.Sprintf("artifact %q has a %d byte hash", name, len(h)))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}
	return nil
}
