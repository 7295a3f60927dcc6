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

// Package ota builds and parses Zigbee OTA upgrade files.
//
// An upgrade file is a fixed little-endian header followed by a sequence of
// tagged, length-prefixed sub-elements. The firmware consumes two of them:
// the application image (TagUpgradeImage) and the contents of the "storage"
// data partition (TagStorage).
package ota

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic is the upgrade_file_id identifying an OTA upgrade file.
	Magic uint32 = 0x0BEEF11E
	// HeaderVersion is the only header version this package produces or accepts.
	HeaderVersion uint16 = 0x0100
	// StackVersion is the Zigbee stack version written into every header.
	StackVersion uint16 = 2

	// HeaderStringSize is the fixed width of the header_string field.
	HeaderStringSize = 32
	// MinHeaderSize is the size of a header with no optional fields.
	MinHeaderSize = 56
)

// Field control bits announcing optional header fields.
const (
	FieldControlSecurityCredential uint16 = 1 << 0
	FieldControlDeviceSpecific     uint16 = 1 << 1
	FieldControlHardwareVersions   uint16 = 1 << 2
)

var (
	// ErrBadMagic is returned when data does not start with the OTA magic.
	ErrBadMagic = errors.New("not an OTA upgrade file")
	// ErrTruncated is returned when data ends before a declared field does.
	ErrTruncated = errors.New("truncated OTA data")
	// ErrSizeMismatch is returned when a length field disagrees with the data.
	ErrSizeMismatch = errors.New("OTA length field mismatch")
)

// Header is the OTA upgrade file header.
type Header struct {
	// UpgradeFileID must be Magic.
	UpgradeFileID uint32 `json:"upgrade_file_id"`
	HeaderVersion uint16 `json:"header_version"`
	// HeaderLength is the serialized size of the header, optional fields included.
	HeaderLength uint16 `json:"header_length"`
	FieldControl uint16 `json:"field_control"`

	ManufacturerID uint16 `json:"manufacturer_id"`
	ImageType      uint16 `json:"image_type"`
	FileVersion    uint32 `json:"file_version"`
	StackVersion   uint16 `json:"stack_version"`

	// HeaderString is a free text label; only the first HeaderStringSize
	// bytes are serialized.
	HeaderString string `json:"header_string"`

	// ImageSize is the size of the whole file: header plus sub-elements.
	ImageSize uint32 `json:"image_size"`

	// Optional fields, serialized only when the matching FieldControl bit is set.
	SecurityCredentialVersion uint8  `json:"security_credential_version,omitempty"`
	UpgradeFileDestination    uint64 `json:"upgrade_file_destination,omitempty"`
	MinHardwareVersion        uint16 `json:"min_hardware_version,omitempty"`
	MaxHardwareVersion        uint16 `json:"max_hardware_version,omitempty"`
}

// headerString returns the label as it appears on the wire: truncated to
// HeaderStringSize bytes and padded with NULs.
func (h *Header) headerString() [HeaderStringSize]byte {
	var s [HeaderStringSize]byte
	copy(s[:], h.HeaderString)
	return s
}

// Size returns the number of bytes MarshalBinary will produce.
func (h *Header) Size() int {
	n := MinHeaderSize
	if h.FieldControl&FieldControlSecurityCredential != 0 {
		n++
	}
	if h.FieldControl&FieldControlDeviceSpecific != 0 {
		n += 8
	}
	if h.FieldControl&FieldControlHardwareVersions != 0 {
		n += 4
	}
	return n
}

// MarshalBinary serializes the header exactly as its fields are set; it does
// not fill in HeaderLength or ImageSize.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, h.Size()))

	fixed := struct {
		UpgradeFileID  uint32
		HeaderVersion  uint16
		HeaderLength   uint16
		FieldControl   uint16
		ManufacturerID uint16
		ImageType      uint16
		FileVersion    uint32
		StackVersion   uint16
		HeaderString   [HeaderStringSize]byte
		ImageSize      uint32
	}{
		UpgradeFileID:  h.UpgradeFileID,
		HeaderVersion:  h.HeaderVersion,
		HeaderLength:   h.HeaderLength,
		FieldControl:   h.FieldControl,
		ManufacturerID: h.ManufacturerID,
		ImageType:      h.ImageType,
		FileVersion:    h.FileVersion,
		StackVersion:   h.StackVersion,
		HeaderString:   h.headerString(),
		ImageSize:      h.ImageSize,
	}
	if err := binary.Write(buf, binary.LittleEndian, &fixed); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	if h.FieldControl&FieldControlSecurityCredential != 0 {
		buf.WriteByte(h.SecurityCredentialVersion)
	}
	if h.FieldControl&FieldControlDeviceSpecific != 0 {
		buf.Write(binary.LittleEndian.AppendUint64(nil, h.UpgradeFileDestination))
	}
	if h.FieldControl&FieldControlHardwareVersions != 0 {
		buf.Write(binary.LittleEndian.AppendUint16(nil, h.MinHardwareVersion))
		buf.Write(binary.LittleEndian.AppendUint16(nil, h.MaxHardwareVersion))
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary parses a header from the start of data. Trailing bytes
// after the header are ignored.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < MinHeaderSize {
		return fmt.Errorf("header needs %d bytes, have %d: %w", MinHeaderSize, len(data), ErrTruncated)
	}
	le := binary.LittleEndian
	if m := le.Uint32(data[0:]); m != Magic {
		return fmt.Errorf("upgrade_file_id %#08x: %w", m, ErrBadMagic)
	}

	hdr := Header{
		UpgradeFileID:  le.Uint32(data[0:]),
		HeaderVersion:  le.Uint16(data[4:]),
		HeaderLength:   le.Uint16(data[6:]),
		FieldControl:   le.Uint16(data[8:]),
		ManufacturerID: le.Uint16(data[10:]),
		ImageType:      le.Uint16(data[12:]),
		FileVersion:    le.Uint32(data[14:]),
		StackVersion:   le.Uint16(data[18:]),
		HeaderString:   string(bytes.TrimRight(data[20:20+HeaderStringSize], "\x00")),
		ImageSize:      le.Uint32(data[52:]),
	}
	if hdr.HeaderVersion != HeaderVersion {
		return fmt.Errorf("unsupported header version %#04x", hdr.HeaderVersion)
	}

	size := hdr.Size()
	if len(data) < size {
		return fmt.Errorf("header with field control %#04x needs %d bytes, have %d: %w", hdr.FieldControl, size, len(data), ErrTruncated)
	}
	if int(hdr.HeaderLength) != size {
		return fmt.Errorf("header_length %d, field control %#04x implies %d: %w", hdr.HeaderLength, hdr.FieldControl, size, ErrSizeMismatch)
	}

	off := MinHeaderSize
	if hdr.FieldControl&FieldControlSecurityCredential != 0 {
		hdr.SecurityCredentialVersion = data[off]
		off++
	}
	if hdr.FieldControl&FieldControlDeviceSpecific != 0 {
		hdr.UpgradeFileDestination = le.Uint64(data[off:])
		off += 8
	}
	if hdr.FieldControl&FieldControlHardwareVersions != 0 {
		hdr.MinHardwareVersion = le.Uint16(data[off:])
		hdr.MaxHardwareVersion = le.Uint16(data[off+2:])
	}

	*h = hdr
	return nil
}
