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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Sub-element tags.
const (
	TagUpgradeImage       uint16 = 0x0000
	TagECDSASignature     uint16 = 0x0001
	TagECDSACertificate   uint16 = 0x0002
	TagImageIntegrityCode uint16 = 0x0003
	TagPictureData        uint16 = 0x0004
	// TagStorage carries the image of the "storage" data partition.
	TagStorage uint16 = 0x0100
)

// subElementHeaderSize is the tag plus length prefix of every sub-element.
const subElementHeaderSize = 6

// ErrNoSubElement is returned by Payload when the image lacks the requested tag.
var ErrNoSubElement = errors.New("no such sub-element")

// TagName returns a human readable name for a sub-element tag.
func TagName(tag uint16) string {
	switch tag {
	case TagUpgradeImage:
		return "upgrade image"
	case TagECDSASignature:
		return "ECDSA signature"
	case TagECDSACertificate:
		return "ECDSA signing certificate"
	case TagImageIntegrityCode:
		return "image integrity code"
	case TagPictureData:
		return "picture data"
	case TagStorage:
		return "storage"
	}
	if tag >= 0xf000 {
		return fmt.Sprintf("manufacturer specific %#04x", tag)
	}
	return fmt.Sprintf("unknown %#04x", tag)
}

// SubElement is a tagged payload inside an OTA image.
type SubElement struct {
	Tag  uint16
	Data []byte
}

// Size returns the serialized size of the sub-element.
func (s SubElement) Size() int {
	return subElementHeaderSize + len(s.Data)
}

func (s SubElement) appendTo(b []byte) ([]byte, error) {
	if uint64(len(s.Data)) > math.MaxUint32 {
		return nil, fmt.Errorf("sub-element %s: %d bytes exceeds the 32-bit length field", TagName(s.Tag), len(s.Data))
	}
	b = binary.LittleEndian.AppendUint16(b, s.Tag)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Data)))
	return append(b, s.Data...), nil
}

// Image is a complete OTA upgrade file.
type Image struct {
	Header      Header
	SubElements []SubElement
}

// Config holds everything needed to build an image besides the payloads.
type Config struct {
	ManufacturerID uint16
	ImageType      uint16
	FileVersion    uint32
	// HeaderString is truncated to HeaderStringSize bytes.
	HeaderString string
	// Compression is applied to every payload.
	Compression Compression
}

// Build assembles an image from a firmware payload and an optional storage
// partition payload. When storage is present its sub-element precedes the
// firmware one; the firmware switches partitions on each sub-element tag so
// either order installs, and storage first means the new application is
// written last.
func Build(cfg Config, firmware, storage []byte) (*Image, error) {
	label := cfg.HeaderString
	if len(label) > HeaderStringSize {
		label = label[:HeaderStringSize]
	}

	img := &Image{
		Header: Header{
			UpgradeFileID:  Magic,
			HeaderVersion:  HeaderVersion,
			HeaderLength:   0,
			FieldControl:   0,
			ManufacturerID: cfg.ManufacturerID,
			ImageType:      cfg.ImageType,
			FileVersion:    cfg.FileVersion,
			StackVersion:   StackVersion,
			HeaderString:   label,
			ImageSize:      0,
		},
	}

	if storage != nil {
		data, err := Compress(storage, cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("storage payload: %w", err)
		}
		img.SubElements = append(img.SubElements, SubElement{Tag: TagStorage, Data: data})
	}
	data, err := Compress(firmware, cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("firmware payload: %w", err)
	}
	img.SubElements = append(img.SubElements, SubElement{Tag: TagUpgradeImage, Data: data})

	if err := img.updateLengths(); err != nil {
		return nil, err
	}
	return img, nil
}

// updateLengths sets HeaderLength and ImageSize from the serialized sizes
// of the header and sub-elements.
func (img *Image) updateLengths() error {
	hdr, err := img.Header.MarshalBinary()
	if err != nil {
		return err
	}
	img.Header.HeaderLength = uint16(len(hdr))

	subs, err := img.marshalSubElements()
	if err != nil {
		return err
	}
	total := uint64(img.Header.HeaderLength) + uint64(len(subs))
	if total > math.MaxUint32 {
		return fmt.Errorf("image of %d bytes exceeds the 32-bit image_size field", total)
	}
	img.Header.ImageSize = uint32(total)
	return nil
}

func (img *Image) marshalSubElements() ([]byte, error) {
	size := 0
	for _, s := range img.SubElements {
		size += s.Size()
	}
	b := make([]byte, 0, size)
	for _, s := range img.SubElements {
		var err error
		if b, err = s.appendTo(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// SubElementsSize returns the serialized size of all sub-elements.
func (img *Image) SubElementsSize() int {
	n := 0
	for _, s := range img.SubElements {
		n += s.Size()
	}
	return n
}

// MarshalBinary serializes the header followed by the sub-elements, in order.
func (img *Image) MarshalBinary() ([]byte, error) {
	hdr, err := img.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	subs, err := img.marshalSubElements()
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(hdr)+len(subs)))
	buf.Write(hdr)
	buf.Write(subs)
	return buf.Bytes(), nil
}

// Parse decodes a complete OTA upgrade file.
func Parse(data []byte) (*Image, error) {
	img := &Image{}
	if err := img.Header.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if uint64(img.Header.ImageSize) != uint64(len(data)) {
		return nil, fmt.Errorf("image_size %d, file is %d bytes: %w", img.Header.ImageSize, len(data), ErrSizeMismatch)
	}

	rest := data[img.Header.HeaderLength:]
	for len(rest) > 0 {
		if len(rest) < subElementHeaderSize {
			return nil, fmt.Errorf("%d trailing bytes cannot hold a sub-element header: %w", len(rest), ErrTruncated)
		}
		tag := binary.LittleEndian.Uint16(rest)
		n := binary.LittleEndian.Uint32(rest[2:])
		rest = rest[subElementHeaderSize:]
		if uint64(n) > uint64(len(rest)) {
			return nil, fmt.Errorf("sub-element %s declares %d bytes, %d remain: %w", TagName(tag), n, len(rest), ErrTruncated)
		}
		img.SubElements = append(img.SubElements, SubElement{Tag: tag, Data: rest[:n:n]})
		rest = rest[n:]
	}
	return img, nil
}

// Payload returns the data of the first sub-element with the given tag,
// decoded with c.
func (img *Image) Payload(tag uint16, c Compression) ([]byte, error) {
	for _, s := range img.SubElements {
		if s.Tag == tag {
			return Decompress(s.Data, c)
		}
	}
	return nil, fmt.Errorf("%s: %w", TagName(tag), ErrNoSubElement)
}
