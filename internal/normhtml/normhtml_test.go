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

package normhtml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "CollapseSpaces", in: "<p>a  \t b</p>", want: "<p>a b</p>"},
		{name: "CollapseNewline", in: "<p>a  \t\nb</p>", want: "<p>a b</p>"},
		{name: "LeadingSpace", in: " <p>a  b</p>", want: "<p>a b</p>"},
		{name: "TrailingSpace", in: "<p>a  b</p> ", want: "<p>a b</p>"},
		{name: "Indented", in: "\n\t<p>\n\t\ta  b\t\t</p>\n\t", want: "<p>a b</p>"},
		{name: "InlineKeepsSpace", in: "<i>a  b</i> ", want: "<i>a b</i> "},
		{name: "SelfClosing", in: "<br />", want: "<br>"},
		{name: "BreakNewline", in: "a<br />\nb", want: "a<br>b"},
		{name: "SortAttributes", in: `<a title="bar" HREF="foo">x</a>`, want: `<a href="foo" title="bar">x</a>`},
		{name: "EmptyAttribute", in: `<input disabled="" type="checkbox">`, want: `<input disabled type="checkbox">`},
		{name: "Entities", in: "&forall;&amp;&gt;&lt;&quot;", want: "\u2200&amp;&gt;&lt;&quot;"},
		{name: "Pre", in: "<pre><code>a  b\n</code></pre>\n", want: "<pre><code>a  b\n</code></pre>"},
		{name: "Comment", in: "<!-- x  y -->", want: "<!-- x  y -->"},
		{name: "Nested", in: "<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n", want: "<ul><li>a</li><li>b</li></ul>"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.want, String(test.in)); diff != "" {
				t.Errorf("String(%q) (-want +got):\n%s", test.in, diff)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal([]byte("<p>a\nb</p>\n"), []byte("<p>a b</p>")) {
		t.Error("Equal reported a difference in insignificant whitespace")
	}
	if Equal([]byte("<p>a</p>"), []byte("<p>b</p>")) {
		t.Error("Equal did not report a difference in text")
	}
}
