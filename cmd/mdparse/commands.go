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
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/format"
	"zombiezen.com/go/markdown/internal/logging"
)

// errRoundTripMismatch is returned by the roundtrip command
// when a file is not reproduced exactly.
// The diff has already been printed.
var errRoundTripMismatch = errors.New("round trip mismatch")

func newHTMLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "html [FILE [...]]",
		Short: "Render Markdown as HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := a.pipeline(false)
			if err != nil {
				return err
			}
			r, err := a.cfg.HTMLRenderer(a.registry)
			if err != nil {
				return err
			}
			return a.processFiles(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), args, pl, func(_ sourceFile, doc *markdown.Document) ([]byte, error) {
				buf := new(bytes.Buffer)
				err := r.Render(buf, doc)
				return buf.Bytes(), err
			})
		},
	}
}

func newASTCommand(a *app) *cobra.Command {
	var opts markdown.DumpOptions
	c := &cobra.Command{
		Use:   "ast [FILE [...]]",
		Short: "Print the syntax tree of Markdown files",
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := a.pipeline(opts.Trivia)
			if err != nil {
				return err
			}
			styles := newTreeStyles(isColorEnabled(a.color, cmd.OutOrStdout()))
			multiple := len(args) > 1
			return a.processFiles(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), args, pl, func(f sourceFile, doc *markdown.Document) ([]byte, error) {
				buf := new(bytes.Buffer)
				if multiple {
					buf.WriteString(styles.header.Render(f.displayName()))
					buf.WriteString("\n")
				}
				if err := styles.dump(buf, doc.Root(), &opts); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			})
		},
	}
	c.Flags().BoolVar(&opts.Spans, "spans", true, "show source spans")
	c.Flags().BoolVar(&opts.Trivia, "trivia", false, "show trivia segments")
	return c
}

func newFmtCommand(a *app) *cobra.Command {
	var write bool
	c := &cobra.Command{
		Use:   "fmt [FILE [...]]",
		Short: "Reformat Markdown in a canonical style",
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := a.pipeline(false)
			if err != nil {
				return err
			}
			return a.processFiles(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), args, pl, func(f sourceFile, doc *markdown.Document) ([]byte, error) {
				buf := new(bytes.Buffer)
				if err := format.Normalize(buf, doc); err != nil {
					return nil, err
				}
				if !write || f.path == "-" {
					return buf.Bytes(), nil
				}
				if buf.String() == f.content {
					return nil, nil
				}
				a.logger.Info("reformatted", logging.FieldPath, f.path)
				if err := os.WriteFile(f.path, buf.Bytes(), 0o666); err != nil {
					return nil, errors.Wrap(err, "write formatted file")
				}
				return nil, nil
			})
		},
	}
	c.Flags().BoolVarP(&write, "write", "w", false, "write result to source files instead of stdout")
	return c
}

func newRoundTripCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip [FILE [...]]",
		Short: "Check that files are reproduced exactly from their syntax trees",
		Long: `roundtrip parses each file with trivia tracking enabled
and reassembles it from the syntax tree.
It prints a unified diff and exits with status 1
for any file that is not reproduced byte for byte.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := a.pipeline(true)
			if err != nil {
				return err
			}
			return a.processFiles(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), args, pl, func(f sourceFile, doc *markdown.Document) ([]byte, error) {
				got := new(bytes.Buffer)
				if err := format.RoundTrip(got, doc); err != nil {
					return nil, err
				}
				if got.String() == f.content {
					a.logger.Debug("round trip ok", logging.FieldPath, f.displayName())
					return nil, nil
				}
				diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
					A:        difflib.SplitLines(f.content),
					B:        difflib.SplitLines(got.String()),
					FromFile: f.displayName(),
					ToFile:   f.displayName() + " (round trip)",
					Context:  3,
				})
				if err != nil {
					return nil, errors.Wrap(err, "diff")
				}
				return []byte(diff), errors.Wrapf(errRoundTripMismatch, "%s", f.displayName())
			})
		},
	}
}
