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

// verify_release is a tool to verify a signed release manifest, and the
// artifacts it was handed, before they are flashed or served.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/api"
	"github.com/ticmeter/firmware-tools/api/verify"
	"github.com/ticmeter/firmware-tools/ota"
	"golang.org/x/mod/sumdb/note"
)

var (
	publicKeyFile = flag.String("public_key", "", "Path to file containing the public key used to sign the manifest")
	manifest      = flag.String("manifest", "", "Path to the signed manifest")
)

var artifacts artifactFlag

func init() {
	flag.Var(&artifacts, "artifact", "Artifact to check against the manifest, may be repeated")
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

func main() {
	flag.Parse()
	if err := validateFlags(); err != nil {
		glog.Exitf("Invalid flag(s):\n%s", err)
	}

	msg, err := os.ReadFile(*manifest)
	if err != nil {
		glog.Exitf("failed to read manifest file: %v", err)
	}
	k, err := os.ReadFile(*publicKeyFile)
	if err != nil {
		glog.Exitf("failed to read public key file: %v", err)
	}
	v, err := note.NewVerifier(strings.TrimSpace(string(k)))
	if err != nil {
		glog.Exitf("failed to initialise key: %v", err)
	}

	glog.Info("Verifying release...")
	fr, err := verifyRelease(msg, v, artifacts)
	if err != nil {
		glog.Exitf("Failed to verify release: %v", err)
	}

	pp, _ := json.MarshalIndent(fr, "", "  ")
	fmt.Println(string(pp))
}

// verifyRelease checks the signed manifest and the artifacts against it.
// The firmware artifact, when given, must also carry the identity the
// release claims in its OTA header.
func verifyRelease(msg []byte, v note.Verifier, paths []string) (*api.FirmwareRelease, error) {
	names := artifactNames(paths)
	hashes := make(map[string][]byte, len(paths))
	var otaImage []byte
	for i, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact: %v", err)
		}
		if _, dup := hashes[names[i]]; dup {
			return nil, fmt.Errorf("artifact %q given twice", names[i])
		}
		if names[i] == api.FirmwareArtifactName {
			otaImage = b
		}
		h := sha256.Sum256(b)
		hashes[names[i]] = h[:]
	}

	fr, err := verify.Release(msg, v, hashes)
	if err != nil {
		return nil, err
	}
	if otaImage == nil {
		return fr, nil
	}

	img, err := ota.Parse(otaImage)
	if err != nil {
		return nil, fmt.Errorf("firmware artifact: %v", err)
	}
	h := img.Header
	if h.ManufacturerID != fr.ManufacturerID || h.ImageType != fr.ImageType || h.FileVersion != fr.FileVersion {
		return nil, fmt.Errorf("OTA header %#04x/%#04x/%s disagrees with release %#04x/%#04x/%s",
			h.ManufacturerID, h.ImageType, ota.FormatVersion(h.FileVersion),
			fr.ManufacturerID, fr.ImageType, ota.FormatVersion(fr.FileVersion))
	}
	return fr, nil
}

// artifactNames returns the name each artifact is recorded under in a
// release: its base name, except that a lone .ota image stands for the
// firmware whatever its file name.
func artifactNames(paths []string) []string {
	names := make([]string, len(paths))
	otaIdx := -1
	otas := 0
	for i, p := range paths {
		names[i] = filepath.Base(p)
		if strings.EqualFold(filepath.Ext(p), ".ota") {
			otaIdx = i
			otas++
		}
	}
	if otas == 1 {
		names[otaIdx] = api.FirmwareArtifactName
	}
	return names
}

func validateFlags() error {
	errs := make([]string, 0)
	checkEmpty := func(n, s string) {
		if s == "" {
			errs = append(errs, fmt.Sprintf("--%s can't be empty", n))
		}
	}
	checkEmpty("public_key", *publicKeyFile)
	checkEmpty("manifest", *manifest)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}
	return nil
}
