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

// Package verify provides verification functions for signed firmware releases.
package verify

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ticmeter/firmware-tools/api"
	"golang.org/x/mod/sumdb/note"
)

// Release opens a signed FirmwareRelease note and checks it against the
// artifacts the caller holds.
//
// For a release to be considered good, we need to:
//  1. check the signature on the note
//  2. check that the release is well formed
//  3. recompute ArtifactRoot from the artifact hashes it commits to
//  4. check that every provided artifact hash is present in the release, and
//     identical to the value the release claims it should be.
func Release(signed []byte, frSigV note.Verifier, artifactHashes map[string][]byte) (*api.FirmwareRelease, error) {
	fr := &api.FirmwareRelease{}
	{
		n, err := note.Open(signed, note.VerifierList(frSigV))
		if err != nil {
			return nil, fmt.Errorf("invalid signature on FirmwareRelease: %v", err)
		}
		if err := json.Unmarshal([]byte(n.Text), fr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal FirmwareRelease: %v", err)
		}
	}

	if err := fr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid FirmwareRelease: %v", err)
	}

	root, err := ArtifactRoot(fr.ArtifactSHA256)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(root, fr.ArtifactRoot) {
		return nil, fmt.Errorf("FirmwareRelease claims artifact root %x, artifacts hash to %x", fr.ArtifactRoot, root)
	}

	for artifact, expected := range artifactHashes {
		h, ok := fr.ArtifactSHA256[artifact]
		if !ok {
			return nil, fmt.Errorf("FirmwareRelease does not commit to artifact hash for %q", artifact)
		}
		if !bytes.Equal(expected, h) {
			return nil, fmt.Errorf("expected artifact hash for %q is %x, but FirmwareRelease claims %x", artifact, expected, h)
		}
	}

	return fr, nil
}
