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

// minify_web is a tool to produce the minified copy of the web interface
// that is packed into the storage partition image.
//
// Usage:
//
//	minify_web [--src=web] [--dst=build/web]
package main

import (
	"flag"
	"fmt"

	"github.com/cheggaaa/pb/v3"
	"github.com/golang/glog"
	"github.com/ticmeter/firmware-tools/webasset"
)

var (
	src      = flag.String("src", "web", "Directory holding the web interface sources")
	dst      = flag.String("dst", "build/web", "Directory to recreate with the minified files")
	progress = flag.Bool("progress", true, "Show a progress bar")
)

func main() {
	flag.Parse()
	if *src == "" || *dst == "" {
		glog.Exit("--src and --dst can't be empty")
	}

	mn := webasset.New()
	if *progress {
		n, err := webasset.CountFiles(*src)
		if err != nil {
			glog.Exitf("Failed to scan %q: %v", *src, err)
		}
		bar := pb.StartNew(n)
		mn.OnFile = func(string) { bar.Increment() }
		defer bar.Finish()
	}

	st, err := mn.Tree(*src, *dst)
	if err != nil {
		glog.Exitf("Failed to minify web interface: %v", err)
	}
	glog.Infof("Minified %d of %d files into %q", st.Minified, st.Files, *dst)
	fmt.Println(summary(st))
}

func summary(st webasset.Stats) string {
	return fmt.Sprintf("Compress files from %d bytes to %d bytes (gain %.2f%%)", st.SourceBytes, st.OutputBytes, st.Gain())
}
