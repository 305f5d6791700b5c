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
	"context"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/extension"
	"zombiezen.com/go/markdown/internal/logging"
)

// app holds the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string
	extensions []string
	color      string

	cfg      *markdown.Config
	registry markdown.ExtensionRegistry
	logger   *log.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{registry: extension.Registry()}
	rootCmd := &cobra.Command{
		Use:   "mdparse",
		Short: "Parse CommonMark documents",
		Long: `mdparse parses CommonMark documents.

Each subcommand takes a list of files.
With no files or a file named "-", it reads standard input.
Files are processed concurrently and written out in argument order.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringSliceVar(&a.extensions, "ext", nil, "extensions to enable (strikethrough, autoid, containers)")
	rootCmd.PersistentFlags().StringVar(&a.color, "color", "auto", "colorize output: auto, always, never")

	rootCmd.AddCommand(
		newHTMLCommand(a),
		newASTCommand(a),
		newFmtCommand(a),
		newRoundTripCommand(a),
	)
	return rootCmd
}

func (a *app) init(stderr io.Writer) error {
	if a.configPath != "" {
		cfg, err := markdown.LoadConfigFile(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = new(markdown.Config)
	}
	for _, name := range a.extensions {
		if _, ok := a.registry[name]; !ok {
			return errors.Wrapf(markdown.ErrUnknownExtension, "--ext=%s", name)
		}
		a.cfg.Extensions = append(a.cfg.Extensions, name)
	}
	level := a.cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = logging.NewWriter(stderr, level)
	logging.SetDefault(a.logger)
	if a.configPath != "" {
		a.logger.Debug("loaded config", logging.FieldConfig, a.configPath, "extensions", a.cfg.Extensions)
	}
	return nil
}

// pipeline builds a parser from the configuration.
// Engine trace events are only sent to the logger at debug level.
func (a *app) pipeline(trackTrivia bool) (*markdown.Pipeline, error) {
	cfg := *a.cfg
	cfg.TrackTrivia = cfg.TrackTrivia || trackTrivia
	var engineLogger *log.Logger
	if a.logger.GetLevel() <= log.DebugLevel {
		engineLogger = a.logger
	}
	return cfg.NewPipeline(a.registry, engineLogger)
}

// A sourceFile is a Markdown input.
type sourceFile struct {
	path    string
	content string
}

func (f sourceFile) displayName() string {
	if f.path == "-" {
		return "<stdin>"
	}
	return f.path
}

// processFunc converts a parsed document to output.
type processFunc func(f sourceFile, doc *markdown.Document) ([]byte, error)

// processFiles parses each of the named files with pl,
// calling fn on each concurrently,
// then writes the outputs to w in the order of paths.
// All outputs are written even if some files fail;
// the first error is returned.
func (a *app) processFiles(ctx context.Context, w io.Writer, stdin io.Reader, paths []string, pl *markdown.Pipeline, fn processFunc) error {
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	outputs := make([][]byte, len(paths))
	errs := make([]error, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			f, err := readSource(stdin, path)
			if err != nil {
				errs[i] = err
				return nil
			}
			a.logger.Debug("parsing", logging.FieldPath, f.displayName())
			outputs[i], errs[i] = fn(f, pl.Parse(f.content))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var firstErr error
	for i, out := range outputs {
		if _, err := w.Write(out); err != nil {
			return errors.Wrap(err, "write output")
		}
		if errs[i] != nil {
			if !errors.Is(errs[i], errRoundTripMismatch) {
				a.logger.Error("failed", logging.FieldPath, paths[i], logging.FieldError, errs[i])
			}
			if firstErr == nil {
				firstErr = errs[i]
			}
		}
	}
	return firstErr
}

func readSource(stdin io.Reader, path string) (sourceFile, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return sourceFile{}, errors.Wrapf(err, "read %s", path)
	}
	return sourceFile{path: path, content: string(data)}, nil
}
