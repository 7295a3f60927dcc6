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

package api

// FlashManifest is the manifest read by the ESP Web Tools installer to flash
// a device from the browser.
type FlashManifest struct {
	Name                  string       `json:"name"`
	Version               string       `json:"version"`
	HomeAssistantDomain   string       `json:"home_assistant_domain,omitempty"`
	FundingURL            string       `json:"funding_url,omitempty"`
	NewInstallPromptErase bool         `json:"new_install_prompt_erase"`
	Builds                []FlashBuild `json:"builds"`
}

// FlashBuild lists the images to write for one chip family.
type FlashBuild struct {
	ChipFamily string      `json:"chipFamily"`
	Parts      []FlashPart `json:"parts"`
}

// FlashPart is a single image and the flash offset it is written to.
type FlashPart struct {
	Path   string `json:"path"`
	Offset uint32 `json:"offset"`
}
