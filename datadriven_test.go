// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package markdown_test

import (
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/extension"
	"zombiezen.com/go/markdown/format"
)

// TestDataDriven runs the scripts in testdata.
// Each input is parsed as a document ending in a newline.
//
//	parse [ext=name,...]               dump the tree without spans
//	html [ext=name,...] [softbreak=b] [filter]
//	normalize [ext=name,...]           format.Normalize output
//	roundtrip [ext=name,...]           "ok" if format.RoundTrip reproduces the input
func TestDataDriven(t *testing.T) {
	registry := extension.Registry()
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			cfg := &markdown.Config{TrackTrivia: true}
			for _, arg := range d.CmdArgs {
				switch arg.Key {
				case "ext":
					cfg.Extensions = append(cfg.Extensions, arg.Vals...)
				case "softbreak":
					d.ScanArgs(t, "softbreak", &cfg.HTML.SoftBreak)
				case "filter":
					cfg.HTML.FilterTags = true
				default:
					d.Fatalf(t, "unknown argument %s", arg.Key)
				}
			}
			pl, err := cfg.NewPipeline(registry, nil)
			if err != nil {
				d.Fatalf(t, "%v", err)
			}
			source := d.Input + "\n"
			doc := pl.Parse(source)

			sb := new(strings.Builder)
			switch d.Cmd {
			case "parse":
				err = markdown.DumpWith(sb, doc.Root(), nil)
			case "html":
				var r *markdown.HTMLRenderer
				r, err = cfg.HTMLRenderer(registry)
				if err == nil {
					err = r.Render(sb, doc)
				}
			case "normalize":
				err = format.Normalize(sb, doc)
			case "roundtrip":
				err = format.RoundTrip(sb, doc)
				if err == nil && sb.String() == source {
					return "ok"
				}
			default:
				d.Fatalf(t, "unknown command %s", d.Cmd)
			}
			if err != nil {
				return "error: " + err.Error()
			}
			return sb.String()
		})
	})
}
