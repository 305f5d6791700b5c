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

package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"zombiezen.com/go/markdown"
)

// treeStyles colors the output of the ast command.
type treeStyles struct {
	header lipgloss.Style
	block  lipgloss.Style
	inline lipgloss.Style
	detail lipgloss.Style
	trivia lipgloss.Style
}

func newTreeStyles(colorEnabled bool) *treeStyles {
	if !colorEnabled {
		plain := lipgloss.NewStyle()
		return &treeStyles{
			header: plain,
			block:  plain,
			inline: plain,
			detail: plain,
			trivia: plain,
		}
	}
	return &treeStyles{
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		block:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		inline: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		detail: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		trivia: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// dump writes the tree rooted at n like [markdown.DumpWith],
// coloring each node's kind.
func (s *treeStyles) dump(w io.Writer, n markdown.Node, opts *markdown.DumpOptions) error {
	sb := new(strings.Builder)
	if err := markdown.DumpWith(sb, n, opts); err != nil {
		return err
	}
	out := new(strings.Builder)
	for _, line := range strings.SplitAfter(sb.String(), "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimLeft(line, " ")
		out.WriteString(line[:len(line)-len(body)])
		body = strings.TrimSuffix(body, "\n")
		kind, rest, _ := strings.Cut(body, " ")
		switch {
		case strings.HasPrefix(kind, "~"):
			out.WriteString(s.trivia.Render(body))
		case isInlineKindName(kind):
			out.WriteString(s.inline.Render(kind))
		default:
			out.WriteString(s.block.Render(kind))
		}
		if rest != "" && !strings.HasPrefix(kind, "~") {
			out.WriteString(" ")
			out.WriteString(s.detail.Render(rest))
		}
		out.WriteString("\n")
	}
	if _, err := io.WriteString(w, out.String()); err != nil {
		return errors.Wrap(err, "write tree")
	}
	return nil
}

var inlineKindNames = func() map[string]bool {
	m := make(map[string]bool)
	for k := markdown.DocumentKind; ; k++ {
		name := k.String()
		if strings.HasPrefix(name, "Kind(") {
			break
		}
		if k.IsInline() {
			m[name] = true
		}
	}
	return m
}()

func isInlineKindName(name string) bool {
	return inlineKindNames[name]
}

// isColorEnabled reports whether output to w should be colored.
// mode is one of "auto", "always", or "never".
// In auto mode, color is enabled only if w is a terminal
// and NO_COLOR is not set.
func isColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		if f, ok := w.(*os.File); ok {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		return false
	}
}
