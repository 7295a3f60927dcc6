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

package verify

import (
	"errors"
	"fmt"
	"sort"

	"github.com/transparency-dev/merkle/compact"
	"github.com/transparency-dev/merkle/rfc6962"
)

// hashArtifact returns the Merkle leaf hash for a named artifact.
func hashArtifact(name string, sha256 []byte) []byte {
	leaf := make([]byte, 0, len(name)+1+len(sha256))
	leaf = append(leaf, name...)
	leaf = append(leaf, 0)
	leaf = append(leaf, sha256...)
	return rfc6962.DefaultHasher.HashLeaf(leaf)
}

// ArtifactRoot returns the root of the Merkle tree with one leaf per
// artifact, in name order.
func ArtifactRoot(artifactHashes map[string][]byte) ([]byte, error) {
	if len(artifactHashes) == 0 {
		return nil, errors.New("no artifacts to commit to")
	}
	names := make([]string, 0, len(artifactHashes))
	for n := range artifactHashes {
		names = append(names, n)
	}
	sort.Strings(names)

	tree := (&compact.RangeFactory{Hash: rfc6962.DefaultHasher.HashChildren}).NewEmptyRange(0)
	for i, n := range names {
		if err := tree.Append(hashArtifact(n, artifactHashes[n]), nil); err != nil {
			return nil, fmt.Errorf("error while appending artifact %d: %v", i, err)
		}
	}
	root, err := tree.GetRootHash(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get root from compact tree: %v", err)
	}
	return root, nil
}
