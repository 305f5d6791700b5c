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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/markdown"
)

func execute(t *testing.T, stdin string, args ...string) (stdout string, err error) {
	t.Helper()
	cmd := newRootCommand()
	out := new(strings.Builder)
	cmd.SetOut(out)
	cmd.SetErr(new(strings.Builder))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o666))
	return path
}

func TestHTML(t *testing.T) {
	got, err := execute(t, "# Hi\n\n*there*\n", "html")
	require.NoError(t, err)
	if diff := cmp.Diff("<h1>Hi</h1>\n<p><em>there</em></p>\n", got); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestHTMLExtension(t *testing.T) {
	got, err := execute(t, "~~gone~~\n", "html", "--ext=strikethrough")
	require.NoError(t, err)
	require.Equal(t, "<p><del>gone</del></p>\n", got)
}

func TestUnknownExtension(t *testing.T) {
	_, err := execute(t, "", "html", "--ext=bogus")
	require.True(t, errors.Is(err, markdown.ErrUnknownExtension), "err = %v", err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "mdparse.yaml", "extensions: [autoid]\nhtml:\n  softBreak: harden\n")
	got, err := execute(t, "# Title\n\na\nb\n", "html", "--config", configPath)
	require.NoError(t, err)
	want := "<h1 id=\"title\">Title</h1>\n<p>a<br />\nb</p>\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "mdparse.yaml", "bogusKey: 1\n")
	_, err := execute(t, "", "html", "--config", configPath)
	require.Error(t, err)
}

func TestMultipleFilesKeepOrder(t *testing.T) {
	dir := t.TempDir()
	var args []string
	var want strings.Builder
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		args = append(args, writeFile(t, dir, name+".md", name+"\n"))
		want.WriteString("<p>" + name + "</p>\n")
	}
	got, err := execute(t, "", append([]string{"html"}, args...)...)
	require.NoError(t, err)
	require.Equal(t, want.String(), got)
}

func TestMissingFile(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.md", "fine\n")
	got, err := execute(t, "", "html", filepath.Join(dir, "missing.md"), ok)
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist), "err = %v", err)
	require.Equal(t, "<p>fine</p>\n", got)
}

func TestAST(t *testing.T) {
	got, err := execute(t, "hi *you*\n", "ast", "--color=never", "--spans=false")
	require.NoError(t, err)
	want := "Document\n" +
		"  Paragraph\n" +
		"    InlineRoot\n" +
		"      Text \"hi \"\n" +
		"      Emphasis\n" +
		"        Text \"you\"\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestFmt(t *testing.T) {
	got, err := execute(t, "Title\n=====\n* * *\n    code\n", "fmt")
	require.NoError(t, err)
	want := "# Title\n\n___\n\n```\ncode\n```\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestFmtWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.md", "Title\n-----\n")
	got, err := execute(t, "", "fmt", "-w", path)
	require.NoError(t, err)
	require.Empty(t, got)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "## Title\n", string(data))
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.md", "> quote\r\n\n  - a\n  - b\n\n```\ncode\n```")
	got, err := execute(t, "", "roundtrip", "--ext=containers", path)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestIsColorEnabled(t *testing.T) {
	require.True(t, isColorEnabled("always", new(strings.Builder)))
	require.False(t, isColorEnabled("never", os.Stdout))
	require.False(t, isColorEnabled("auto", new(strings.Builder)))
}
