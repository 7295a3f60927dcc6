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

// ota_version prints the 32-bit OTA file version a version string maps to.
//
// It exits with a non-zero status when the string is not a valid version,
// so build scripts can refuse to package an image with the 0xFFFFFFFF
// sentinel.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/ota"
)

var hexOutput = flag.Bool("hex", false, "Print the version as 0x-prefixed hex instead of decimal")

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		glog.Exitf("Usage: %s [--hex] VERSION", os.Args[0])
	}
	v, err := ota.ParseVersion(flag.Arg(0))
	if err != nil {
		glog.Exitf("%q: %v", flag.Arg(0), err)
	}
	fmt.Println(format(v, *hexOutput))
}

func format(v uint32, hex bool) string {
	if hex {
		return fmt.Sprintf("0x%06x", v)
	}
	return fmt.Sprintf("%d", v)
}
