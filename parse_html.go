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

package markdown

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// scanHTMLTag parses an [HTML tag] starting at s[i],
// which must be a '<'.
// It returns the index just past the closing '>'
// or -1 if s[i:] does not begin with an HTML tag.
//
// [HTML tag]: https://spec.commonmark.org/0.31.2/#raw-html
func scanHTMLTag(s string, i int) (end int) {
	const (
		cdataPrefix = "<![CDATA["
		cdataSuffix = "]]>"
	)

	if i >= len(s) || s[i] != '<' {
		return -1
	}
	rest := s[i:]
	switch {
	case strings.HasPrefix(rest, "<?"):
		// Processing instruction.
		j := strings.Index(rest[2:], "?>")
		if j < 0 {
			return -1
		}
		return i + 2 + j + len("?>")
	case strings.HasPrefix(rest, "<!--"):
		// Comment.
		switch {
		case strings.HasPrefix(rest, "<!-->"):
			return i + len("<!-->")
		case strings.HasPrefix(rest, "<!--->"):
			return i + len("<!--->")
		}
		j := strings.Index(rest[4:], "-->")
		if j < 0 {
			return -1
		}
		return i + 4 + j + len("-->")
	case strings.HasPrefix(rest, cdataPrefix):
		j := strings.Index(rest[len(cdataPrefix):], cdataSuffix)
		if j < 0 {
			return -1
		}
		return i + len(cdataPrefix) + j + len(cdataSuffix)
	case strings.HasPrefix(rest, "<!"):
		// Declaration.
		if len(rest) < 3 || !isASCIILetter(rest[2]) {
			return -1
		}
		j := strings.IndexByte(rest[2:], '>')
		if j < 0 {
			return -1
		}
		return i + 2 + j + 1
	case strings.HasPrefix(rest, "</"):
		return scanHTMLClosingTag(s, i+2)
	default:
		return scanHTMLOpenTag(s, i+1)
	}
}

// scanHTMLOpenTag parses an [open tag] sans the leading '<'.
//
// [open tag]: https://spec.commonmark.org/0.31.2/#open-tag
func scanHTMLOpenTag(s string, i int) (end int) {
	i = scanHTMLTagName(s, i)
	if i < 0 {
		return -1
	}
	for {
		beforeSpace := i
		i = skipHTMLSpace(s, i)
		if i >= len(s) {
			return -1
		}
		switch s[i] {
		case '/':
			if i+1 >= len(s) || s[i+1] != '>' {
				return -1
			}
			return i + 2
		case '>':
			return i + 1
		}
		if i == beforeSpace {
			return -1
		}
		i = scanHTMLAttribute(s, i)
		if i < 0 {
			return -1
		}
	}
}

// scanHTMLClosingTag parses a [closing tag] sans the leading "</".
//
// [closing tag]: https://spec.commonmark.org/0.31.2/#closing-tag
func scanHTMLClosingTag(s string, i int) (end int) {
	i = scanHTMLTagName(s, i)
	if i < 0 {
		return -1
	}
	i = skipHTMLSpace(s, i)
	if i >= len(s) || s[i] != '>' {
		return -1
	}
	return i + 1
}

func scanHTMLTagName(s string, i int) (end int) {
	if i >= len(s) || !isASCIILetter(s[i]) {
		return -1
	}
	for i++; i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || s[i] == '-'); i++ {
	}
	return i
}

func scanHTMLAttribute(s string, i int) (end int) {
	// Attribute name.
	if i >= len(s) {
		return -1
	}
	if c := s[i]; !isASCIILetter(c) && c != '_' && c != ':' {
		return -1
	}
	for i++; i < len(s) && (isASCIILetter(s[i]) || isASCIIDigit(s[i]) || strings.IndexByte("_.:-", s[i]) >= 0); i++ {
	}

	// Attribute value specification.
	// Don't consume space unless it is followed by an equal sign,
	// since it will cause future attributes to fail.
	j := skipHTMLSpace(s, i)
	if j >= len(s) || s[j] != '=' {
		return i
	}
	j = skipHTMLSpace(s, j+1)
	if j >= len(s) {
		return -1
	}
	switch c := s[j]; {
	case c == '\'' || c == '"':
		k := strings.IndexByte(s[j+1:], c)
		if k < 0 {
			return -1
		}
		return j + 1 + k + 1
	case isUnquotedAttributeValueChar(c):
		for j++; j < len(s) && isUnquotedAttributeValueChar(s[j]); j++ {
		}
		return j
	default:
		return -1
	}
}

func skipHTMLSpace(s string, i int) int {
	for i < len(s) && isSpaceTabOrLineEnding(s[i]) {
		i++
	}
	return i
}

func isUnquotedAttributeValueChar(c byte) bool {
	return !isSpaceTabOrLineEnding(c) && strings.IndexByte("\"'=<>`", c) < 0
}

// htmlBlockCondition is one of the [HTML block] start and end conditions.
//
// [HTML block]: https://spec.commonmark.org/0.31.2/#html-blocks
type htmlBlockCondition struct {
	startCondition        func(line string) bool
	endCondition          func(line string) bool
	canInterruptParagraph bool
	endsAtBlankLine       bool
}

var htmlBlockConditions = []htmlBlockCondition{
	{
		startCondition: func(line string) bool {
			return htmlBlockTagPrefix(line[1:], htmlBlockStarters1)
		},
		endCondition: func(line string) bool {
			for _, ender := range htmlBlockEnders1 {
				if caseInsensitiveContains(line, ender) {
					return true
				}
			}
			return false
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line string) bool {
			return strings.HasPrefix(line, "<!--")
		},
		endCondition: func(line string) bool {
			return strings.Contains(line, "-->")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line string) bool {
			return strings.HasPrefix(line, "<?")
		},
		endCondition: func(line string) bool {
			return strings.Contains(line, "?>")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line string) bool {
			return strings.HasPrefix(line, "<!") && len(line) >= 3 && isASCIILetter(line[2])
		},
		endCondition: func(line string) bool {
			return strings.Contains(line, ">")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line string) bool {
			return strings.HasPrefix(line, "<![CDATA[")
		},
		endCondition: func(line string) bool {
			return strings.Contains(line, "]]>")
		},
		canInterruptParagraph: true,
	},
	{
		startCondition: func(line string) bool {
			line = strings.TrimPrefix(line[1:], "/")
			for _, starter := range htmlBlockStarters6 {
				if hasCaseInsensitivePrefix(line, starter) {
					rest := line[len(starter):]
					if rest == "" || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' || strings.HasPrefix(rest, "/>") {
						return true
					}
				}
			}
			return false
		},
		canInterruptParagraph: true,
		endsAtBlankLine:       true,
	},
	{
		startCondition: func(line string) bool {
			var end int
			if strings.HasPrefix(line, "</") {
				end = scanHTMLClosingTag(line, 2)
			} else {
				if htmlBlockTagPrefix(line[1:], htmlBlockStarters1) {
					return false
				}
				end = scanHTMLOpenTag(line, 1)
			}
			return end >= 0 && isBlankLine(line[end:])
		},
		canInterruptParagraph: false,
		endsAtBlankLine:       true,
	},
}

// htmlBlockTagPrefix reports whether s starts with one of the given tag names
// followed by whitespace, '>', or the end of the line.
func htmlBlockTagPrefix(s string, names []string) bool {
	for _, name := range names {
		if hasCaseInsensitivePrefix(s, name) {
			rest := s[len(name):]
			if rest == "" || isSpaceTabOrLineEnding(rest[0]) || rest[0] == '>' {
				return true
			}
		}
	}
	return false
}

var (
	htmlBlockStarters1 = []string{
		atom.Pre.String(),
		atom.Script.String(),
		atom.Style.String(),
		atom.Textarea.String(),
	}
	htmlBlockEnders1 = []string{
		"</pre>",
		"</script>",
		"</style>",
		"</textarea>",
	}

	htmlBlockStarters6 = []string{
		atom.Address.String(),
		atom.Article.String(),
		atom.Aside.String(),
		atom.Base.String(),
		atom.Basefont.String(),
		atom.Blockquote.String(),
		atom.Body.String(),
		atom.Caption.String(),
		atom.Center.String(),
		atom.Col.String(),
		atom.Colgroup.String(),
		atom.Dd.String(),
		atom.Details.String(),
		atom.Dialog.String(),
		atom.Dir.String(),
		atom.Div.String(),
		atom.Dl.String(),
		atom.Dt.String(),
		atom.Fieldset.String(),
		atom.Figcaption.String(),
		atom.Figure.String(),
		atom.Footer.String(),
		atom.Form.String(),
		atom.Frame.String(),
		atom.Frameset.String(),
		atom.H1.String(),
		atom.H2.String(),
		atom.H3.String(),
		atom.H4.String(),
		atom.H5.String(),
		atom.H6.String(),
		atom.Head.String(),
		atom.Header.String(),
		atom.Hr.String(),
		atom.Html.String(),
		atom.Iframe.String(),
		atom.Legend.String(),
		atom.Li.String(),
		atom.Link.String(),
		atom.Main.String(),
		atom.Menu.String(),
		atom.Menuitem.String(),
		atom.Nav.String(),
		atom.Noframes.String(),
		atom.Ol.String(),
		atom.Optgroup.String(),
		atom.Option.String(),
		atom.P.String(),
		atom.Param.String(),
		"search",
		atom.Section.String(),
		atom.Summary.String(),
		atom.Table.String(),
		atom.Tbody.String(),
		atom.Td.String(),
		atom.Tfoot.String(),
		atom.Th.String(),
		atom.Thead.String(),
		atom.Title.String(),
		atom.Tr.String(),
		atom.Track.String(),
		atom.Ul.String(),
	}
)
