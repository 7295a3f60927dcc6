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

// Package partition reads ESP-IDF partition tables in their CSV form.
package partition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// TableOffset is where the bootloader expects the partition table.
	TableOffset = 0x8000
	// FirstOffset is where the first partition without an explicit offset goes.
	FirstOffset = TableOffset + 0x1000

	appAlign  = 0x10000
	dataAlign = 0x1000
)

// Partition is one row of a partition table.
type Partition struct {
	Name    string
	Type    string
	SubType string
	Offset  uint32
	Size    uint32
	Flags   []string
}

// IsApp reports whether the partition holds an application image.
func (p Partition) IsApp() bool {
	return p.Type == "app" || p.Type == "0" || p.Type == "0x0" || p.Type == "0x00"
}

// Table is a parsed partition table, in file order.
type Table []Partition

// Lookup returns the partition with the given name.
func (t Table) Lookup(name string) (Partition, bool) {
	for _, p := range t {
		if p.Name == name {
			return p, true
		}
	}
	return Partition{}, false
}

// Parse reads a partition table CSV. Lines starting with '#' are comments.
// Partitions without an offset are placed after the previous one, aligned
// to 64KiB for apps and 4KiB for data.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var t Table
	next := uint32(FirstOffset)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read partition table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 columns, got %d", line, len(rec))
		}

		p := Partition{
			Name:    rec[0],
			Type:    rec[1],
			SubType: rec[2],
		}
		if p.Name == "" {
			return nil, fmt.Errorf("line %d: empty partition name", line)
		}
		if _, dup := t.Lookup(p.Name); dup {
			return nil, fmt.Errorf("line %d: duplicate partition %q", line, p.Name)
		}

		if p.Size, err = ParseSize(rec[4]); err != nil {
			return nil, fmt.Errorf("line %d: size of %q: %w", line, p.Name, err)
		}
		if rec[3] == "" {
			align := uint32(dataAlign)
			if p.IsApp() {
				align = appAlign
			}
			p.Offset = (next + align - 1) &^ (align - 1)
		} else if p.Offset, err = ParseSize(rec[3]); err != nil {
			return nil, fmt.Errorf("line %d: offset of %q: %w", line, p.Name, err)
		}
		if p.Offset < next && len(t) > 0 {
			return nil, fmt.Errorf("line %d: %q at %#x overlaps the previous partition ending at %#x", line, p.Name, p.Offset, next)
		}
		next = p.Offset + p.Size

		if len(rec) > 5 {
			for _, f := range strings.Split(rec[5], ":") {
				if f = strings.TrimSpace(f); f != "" {
					p.Flags = append(p.Flags, f)
				}
			}
		}
		t = append(t, p)
	}
	if len(t) == 0 {
		return nil, errors.New("partition table has no entries")
	}
	return t, nil
}

// ParseSize parses a partition offset or size: decimal, 0x-prefixed hex,
// optionally followed by a K or M multiplier.
func ParseSize(s string) (uint32, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1 << 10
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult = 1 << 20
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	if n*mult > 1<<32-1 {
		return 0, fmt.Errorf("%s%s does not fit in 32 bits", s, suffix(mult))
	}
	return uint32(n * mult), nil
}

func suffix(mult uint64) string {
	switch mult {
	case 1 << 10:
		return "K"
	case 1 << 20:
		return "M"
	}
	return ""
}
