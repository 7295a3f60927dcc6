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

// Package webasset shrinks the web interface before it is packed into the
// storage partition image.
package webasset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/golang/glog"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const (
	mediaHTML = "text/html"
	mediaCSS  = "text/css"
	mediaJS   = "application/javascript"
)

// Stats summarises a Tree run.
type Stats struct {
	Files       int
	Minified    int
	SourceBytes int64
	OutputBytes int64
}

// Gain returns the size reduction as a percentage of the source size.
func (s Stats) Gain() float64 {
	if s.SourceBytes == 0 {
		return 0
	}
	return float64(s.SourceBytes-s.OutputBytes) / float64(s.SourceBytes) * 100
}

// Minifier minifies HTML, CSS and JavaScript and copies everything else.
type Minifier struct {
	m *minify.M

	// OnFile, if set, is called with the source-relative path of each file
	// after it has been written.
	OnFile func(rel string)
}

// New returns a Minifier that strips comments and insignificant whitespace.
func New() *Minifier {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.Add(mediaHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return &Minifier{m: m}
}

// mediaType returns the media type minified for a file name, or "" for
// files copied verbatim.
func mediaType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return mediaHTML
	case ".css":
		return mediaCSS
	case ".js":
		return mediaJS
	}
	return ""
}

// Minify returns the minified form of a file's content, chosen by the
// file's extension. Unknown types are returned unchanged.
func (mn *Minifier) Minify(name string, b []byte) ([]byte, error) {
	mt := mediaType(name)
	if mt == "" {
		return b, nil
	}
	out, err := mn.m.Bytes(mt, b)
	if err != nil {
		return nil, fmt.Errorf("failed to minify %q: %w", name, err)
	}
	return out, nil
}

// Tree recreates dst as a minified copy of src.
func (mn *Minifier) Tree(src, dst string) (Stats, error) {
	if err := checkDisjoint(src, dst); err != nil {
		return Stats{}, err
	}
	if err := os.RemoveAll(dst); err != nil {
		return Stats{}, fmt.Errorf("failed to clear %q: %w", dst, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return Stats{}, fmt.Errorf("failed to create %q: %w", dst, err)
	}

	var st Stats
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if !d.Type().IsRegular() {
			glog.V(1).Infof("Skipping %q: not a regular file", p)
			return nil
		}

		in, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		small, err := mn.Minify(p, in)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, small, 0o644); err != nil {
			return err
		}

		st.Files++
		if mediaType(p) != "" {
			st.Minified++
		}
		st.SourceBytes += int64(len(in))
		st.OutputBytes += int64(len(small))
		glog.V(1).Infof("%s: %d -> %d bytes", rel, len(in), len(small))
		if mn.OnFile != nil {
			mn.OnFile(rel)
		}
		return nil
	})
	if err != nil {
		return st, fmt.Errorf("failed to minify %q into %q: %w", src, dst, err)
	}
	return st, nil
}

// CountFiles returns the number of regular files below root.
func CountFiles(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}

// checkDisjoint refuses to clear a destination that is, or contains, the source.
func checkDisjoint(src, dst string) error {
	s, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	d, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if s == d || strings.HasPrefix(s, d+string(filepath.Separator)) {
		return fmt.Errorf("destination %q would overwrite source %q", dst, src)
	}
	if strings.HasPrefix(d, s+string(filepath.Separator)) {
		return fmt.Errorf("destination %q is inside source %q", dst, src)
	}
	return nil
}
