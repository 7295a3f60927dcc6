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

// trace2c is a tool to turn an escaped TIC serial capture into a C array
// for the firmware's decoder tests.
//
// Usage:
//
//	trace2c [--name=trace] [FILE]
//
// The capture is read from stdin when FILE is omitted.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/capture"
)

var name = flag.String("name", "trace", "Name of the generated C array")

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	switch flag.NArg() {
	case 0:
	case 1:
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			glog.Exitf("Failed to open capture: %v", err)
		}
		defer f.Close()
		in = f
	default:
		glog.Exitf("Usage: %s [--name=trace] [FILE]", os.Args[0])
	}

	out, err := convert(in, *name)
	if err != nil {
		glog.Exitf("Failed to convert capture: %v", err)
	}
	fmt.Print(out)
}

// convert decodes the capture read from r and renders it as a C array
// followed by a comment giving its length.
func convert(r io.Reader, name string) (string, error) {
	s, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b, err := capture.Decode(string(s))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n// %s: %d bytes\n", capture.CArray(name, b), name, len(b)), nil
}
