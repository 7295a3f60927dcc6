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

// create_ota is a tool to package a firmware image, and optionally a storage
// partition image, into a Zigbee OTA upgrade file.
//
// Usage:
//
//	create_ota --manufacturer_id=0x131b --image_type=1 --file_version=v2.0.1 \
//	  build/TICMeter.bin [build/storage.bin] build/TICMeter.ota
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/internal/profile"
	"github.com/ticmeter/firmware-tools/ota"
)

var (
	manufacturerID uint16Flag
	imageType      uint16Flag

	fileVersion   = flag.String("file_version", "", "File version: an integer in any base, or a version string such as v2.0.1")
	headerString  = flag.String("header_string", "", "Header string, truncated to 32 bytes")
	compression   = flag.String("compress", "none", "Payload compression: none or zlib")
	strictVersion = flag.Bool("strict_version", false, "Fail on an unparseable version string instead of embedding 0xFFFFFFFF")
	profileFile   = flag.String("profile", "", "Optional YAML build profile supplying defaults for the flags above")
)

func init() {
	flag.Var(&manufacturerID, "manufacturer_id", "Manufacturer ID, any base")
	flag.Var(&imageType, "image_type", "Image type ID, any base")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] INPUT [STORAGE] OUTPUT\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	cfg, err := configFromFlags()
	if err != nil {
		glog.Exitf("Invalid flag(s):\n%s", err)
	}

	args := flag.Args()
	if len(args) != 2 && len(args) != 3 {
		flag.Usage()
		glog.Exitf("Expected INPUT [STORAGE] OUTPUT, got %d arguments", len(args))
	}
	input, output := args[0], args[len(args)-1]
	storage := ""
	if len(args) == 3 {
		storage = args[1]
	}

	img, err := create(cfg, input, storage, output)
	if err != nil {
		glog.Exitf("Failed to create OTA image: %v", err)
	}
	glog.Infof("Header length: %d", img.Header.HeaderLength)
	glog.Infof("Sub-elements length: %d", img.SubElementsSize())
	glog.Infof("Image size: %d", img.Header.ImageSize)
	glog.Infof("Wrote %s (file version %s) to %q", ota.TagName(ota.TagUpgradeImage), ota.FormatVersion(cfg.FileVersion), output)
}

// create reads the payloads, builds the image in memory, and only then
// writes output.
func create(cfg ota.Config, input, storage, output string) (*ota.Image, error) {
	firmware, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware: %w", err)
	}
	var storageData []byte
	if storage != "" {
		if storageData, err = os.ReadFile(storage); err != nil {
			return nil, fmt.Errorf("failed to read storage image: %w", err)
		}
	}

	img, err := ota.Build(cfg, firmware, storageData)
	if err != nil {
		return nil, err
	}
	raw, err := img.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(output, raw, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", output, err)
	}
	return img, nil
}

// configFromFlags merges the optional profile with the flags, flags winning.
func configFromFlags() (ota.Config, error) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	p := &profile.Profile{}
	if *profileFile != "" {
		var err error
		if p, err = profile.Load(*profileFile); err != nil {
			return ota.Config{}, err
		}
	}

	errs := make([]string, 0)
	var cfg ota.Config
	switch {
	case manufacturerID.set:
		cfg.ManufacturerID = manufacturerID.v
	case p.ManufacturerID != nil:
		cfg.ManufacturerID = uint16(*p.ManufacturerID)
	default:
		errs = append(errs, "--manufacturer_id is required")
	}
	switch {
	case imageType.set:
		cfg.ImageType = imageType.v
	case p.ImageType != nil:
		cfg.ImageType = uint16(*p.ImageType)
	default:
		errs = append(errs, "--image_type is required")
	}

	version := p.FileVersion
	if set["file_version"] {
		version = *fileVersion
	}
	if version == "" {
		errs = append(errs, "--file_version is required")
	} else if v, err := parseFileVersion(version, *strictVersion); err != nil {
		errs = append(errs, fmt.Sprintf("--file_version: %v", err))
	} else {
		cfg.FileVersion = v
	}

	cfg.HeaderString = p.HeaderString
	if set["header_string"] {
		cfg.HeaderString = *headerString
	}
	if len(cfg.HeaderString) > ota.HeaderStringSize {
		glog.Warningf("Header string %q truncated to %d bytes", cfg.HeaderString, ota.HeaderStringSize)
	}

	comp := p.Compression
	if set["compress"] || comp == "" {
		comp = *compression
	}
	c, err := ota.ParseCompression(comp)
	if err != nil {
		errs = append(errs, fmt.Sprintf("--compress: %v", err))
	}
	cfg.Compression = c

	if len(errs) > 0 {
		return ota.Config{}, errors.New(strings.Join(errs, "\n"))
	}
	return cfg, nil
}

// parseFileVersion accepts a raw integer in any base, or a version string.
// Unparseable version strings become ota.InvalidVersion unless strict is set.
func parseFileVersion(s string, strict bool) (uint32, error) {
	if v, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(v), nil
	}
	if strict {
		return ota.ParseVersion(s)
	}
	return ota.FileVersion(s), nil
}
