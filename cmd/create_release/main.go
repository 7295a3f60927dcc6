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

// create_release is a tool to create a release manifest from the artifacts
// of a firmware build.
//
// The OTA image named by --ota is always included, and its header supplies
// the manufacturer ID, image type and file version of the release. When
// --private_key is set the manifest is written as a signed note.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/api"
	"github.com/ticmeter/firmware-tools/api/verify"
	"github.com/ticmeter/firmware-tools/ota"
	"golang.org/x/mod/sumdb/note"
)

var (
	otaFile        = flag.String("ota", "", "Path to the OTA image of the release")
	revision       = flag.String("revision", "", "Release revision, e.g. v2.0.1")
	description    = flag.String("description", "", "Human readable description of the release")
	platformID     = flag.String("platform_id", "ESP32-C6", "Hardware platform the release targets")
	toolChain      = flag.String("tool_chain", "", "Toolchain used to build the release")
	privateKeyFile = flag.String("private_key", "", "Optional path to a note signer key to sign the manifest with")
	output         = flag.String("output", "", "Path to write the manifest to, stdout if empty")
)

var (
	artifacts artifactFlag
	buildArgs buildArgFlag
)

func init() {
	flag.Var(&artifacts, "artifact", "Additional release artifact, may be repeated")
	flag.Var(&buildArgs, "build_arg", "Build argument as key=value, may be repeated")
}

type artifactFlag []string

func (a *artifactFlag) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(*a, ",")
}

func (a *artifactFlag) Set(v string) error {
	*a = append(*a, v)
	return nil
}

type buildArgFlag map[string]string

func (b *buildArgFlag) String() string {
	if b == nil {
		return ""
	}
	s := make([]string, 0, len(*b))
	for k, v := range *b {
		s = append(s, k+"="+v)
	}
	return strings.Join(s, ",")
}

func (b *buildArgFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("want key=value, got %q", v)
	}
	if *b == nil {
		*b = make(buildArgFlag)
	}
	(*b)[k] = val
	return nil
}

func main() {
	flag.Parse()
	if err := checkFlags(); err != nil {
		glog.Exitf("Invalid flag(s):\n%s", err)
	}

	fr, err := createRelease(*otaFile, artifacts)
	if err != nil {
		glog.Exitf("Failed to create release: %v", err)
	}
	glog.Info("Created FirmwareRelease struct")

	pp, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		glog.Exitf("Failed to marshal release: %v", err)
	}
	out := append(pp, '\n')
	if *privateKeyFile != "" {
		if out, err = sign(out, *privateKeyFile); err != nil {
			glog.Exitf("Failed to sign release: %v", err)
		}
	}

	// Write to stdout in case we're being piped.
	if *output == "" {
		fmt.Print(string(out))
		return
	}
	if err := os.WriteFile(*output, out, 0o644); err != nil {
		glog.Exitf("Failed to write manifest: %v", err)
	}
	glog.Infof("Wrote manifest for %s to %q", fr.Revision, *output)
}

// createRelease hashes the OTA image and the extra artifacts, and populates
// a FirmwareRelease from them and the flags.
func createRelease(otaPath string, extra []string) (api.FirmwareRelease, error) {
	raw, err := os.ReadFile(otaPath)
	if err != nil {
		return api.FirmwareRelease{}, fmt.Errorf("failed to read OTA image: %v", err)
	}
	img, err := ota.Parse(raw)
	if err != nil {
		return api.FirmwareRelease{}, fmt.Errorf("failed to parse OTA image %q: %v", otaPath, err)
	}
	if img.Header.FileVersion == ota.InvalidVersion {
		return api.FirmwareRelease{}, fmt.Errorf("OTA image %q carries the invalid file version %#x", otaPath, ota.InvalidVersion)
	}

	fr := api.FirmwareRelease{
		Description:    *description,
		PlatformID:     *platformID,
		Revision:       *revision,
		ManufacturerID: img.Header.ManufacturerID,
		ImageType:      img.Header.ImageType,
		FileVersion:    img.Header.FileVersion,
		ToolChain:      *toolChain,
		BuildArgs:      buildArgs,
		ArtifactSHA256: make(map[string][]byte),
	}
	sum := sha256.Sum256(raw)
	fr.ArtifactSHA256[api.FirmwareArtifactName] = sum[:]

	glog.Info("Hashing release artifacts...")
	for _, a := range extra {
		name := filepath.Base(a)
		if _, dup := fr.ArtifactSHA256[name]; dup {
			return api.FirmwareRelease{}, fmt.Errorf("duplicate artifact name %q", name)
		}
		h, err := hashFile(a)
		if err != nil {
			return api.FirmwareRelease{}, err
		}
		glog.V(1).Infof("%x  %s", h, name)
		fr.ArtifactSHA256[name] = h
	}

	if fr.ArtifactRoot, err = verify.ArtifactRoot(fr.ArtifactSHA256); err != nil {
		return api.FirmwareRelease{}, err
	}
	if err := fr.Validate(); err != nil {
		return api.FirmwareRelease{}, err
	}
	if sv, _ := fr.SemVer(); !revisionMatches(sv, fr.FileVersion) {
		glog.Warningf("Revision %s does not match the OTA file version %#x (%s)", fr.Revision, fr.FileVersion, versionForms(fr.FileVersion))
	}
	return fr, nil
}

// revisionMatches reports whether v is the file version create_ota encodes
// for the revision, either from all three components or, for an X.Y.0
// revision, from the two component "X.Y".
func revisionMatches(sv *semver.Version, v uint32) bool {
	three := uint32(sv.Major)<<16 | uint32(sv.Minor)<<8 | uint32(sv.Patch)
	two := uint32(sv.Major)<<8 | uint32(sv.Minor)
	return v == three || (sv.Patch == 0 && v == two)
}

func versionForms(v uint32) string {
	if mm := ota.FormatVersionMajorMinor(v); mm != "" {
		return ota.FormatVersion(v) + " or " + mm
	}
	return ota.FormatVersion(v)
}

// hashFile returns the SHA256 of the contents of the file at path.
func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %v", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %q: %v", path, err)
	}
	return h.Sum(nil), nil
}

// sign wraps text in a note signed with the key stored in keyFile.
func sign(text []byte, keyFile string) ([]byte, error) {
	k, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %v", err)
	}
	signer, err := note.NewSigner(strings.TrimSpace(string(k)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise key: %v", err)
	}
	return note.Sign(&note.Note{Text: string(text)}, signer)
}

func checkFlags() error {
	errs := make([]string, 0)
	checkEmpty := func(n, s string) {
		if s == "" {
			errs = append(errs, fmt.Sprintf("--%s can't be empty", n))
		}
	}
	checkEmpty("ota", *otaFile)
	checkEmpty("revision", *revision)
	checkEmpty("platform_id", *platformID)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}
	return nil
}
