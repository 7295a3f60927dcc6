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

package main

import (
	"strconv"
)

// uint16Flag is a flag.Value accepting an unsigned 16-bit integer in any
// base Go understands (0x1234, 0o17, 0b1, 42).
type uint16Flag struct {
	v   uint16
	set bool
}

func (f *uint16Flag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return "0x" + strconv.FormatUint(uint64(f.v), 16)
}

func (f *uint16Flag) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return err
	}
	f.v, f.set = uint16(v), true
	return nil
}
