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
	"bytes"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is a serializable description of a [Pipeline] and [HTMLRenderer].
//
// An example configuration file:
//
//	trackTrivia: true
//	maxNestingDepth: 64
//	extensions: [strikethrough, autoid]
//	logLevel: debug
//	html:
//	  softBreak: space
//	  filterTags: true
type Config struct {
	TrackTrivia           bool       `yaml:"trackTrivia,omitempty"`
	PreciseSourceLocation bool       `yaml:"preciseSourceLocation,omitempty"`
	MaxNestingDepth       int        `yaml:"maxNestingDepth,omitempty"`
	Extensions            []string   `yaml:"extensions,omitempty"`
	LogLevel              string     `yaml:"logLevel,omitempty"`
	HTML                  HTMLConfig `yaml:"html,omitempty"`
}

// HTMLConfig holds the [HTMLRenderer] options of a [Config].
type HTMLConfig struct {
	// SoftBreak is one of "preserve", "space", or "harden".
	SoftBreak  string `yaml:"softBreak,omitempty"`
	IgnoreRaw  bool   `yaml:"ignoreRaw,omitempty"`
	FilterTags bool   `yaml:"filterTags,omitempty"`
}

// An ExtensionRegistry maps configuration names to extensions.
type ExtensionRegistry map[string]Extension

// ParseConfig parses a YAML configuration.
// Unknown keys are an error.
func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.MaxNestingDepth < 0 {
		return nil, errors.Newf("parse config: maxNestingDepth must be non-negative (got %d)", cfg.MaxNestingDepth)
	}
	if _, err := ParseSoftBreakBehavior(cfg.HTML.SoftBreak); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// LoadConfigFile reads and parses the YAML configuration file at path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// Marshal serializes the configuration to YAML.
func (cfg *Config) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return buf.Bytes(), nil
}

// NewPipeline builds a pipeline from the configuration,
// looking up extensions by name in registry.
// logger may be nil.
func (cfg *Config) NewPipeline(registry ExtensionRegistry, logger *log.Logger) (*Pipeline, error) {
	b := NewPipelineBuilder()
	b.TrackTrivia = cfg.TrackTrivia
	b.PreciseSourceLocation = cfg.PreciseSourceLocation
	b.MaxNestingDepth = cfg.MaxNestingDepth
	b.Logger = logger
	for _, name := range cfg.Extensions {
		ext, ok := registry[name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownExtension, "build pipeline: %q", name)
		}
		if err := b.Use(ext); err != nil {
			return nil, errors.Wrap(err, "build pipeline")
		}
	}
	pl, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build pipeline")
	}
	return pl, nil
}

// HTMLRenderer returns a renderer with the configuration's HTML options.
// Extensions in registry that implement [HTMLExtension]
// add their handlers to the renderer.
func (cfg *Config) HTMLRenderer(registry ExtensionRegistry) (*HTMLRenderer, error) {
	softBreak, err := ParseSoftBreakBehavior(cfg.HTML.SoftBreak)
	if err != nil {
		return nil, err
	}
	r := &HTMLRenderer{
		SoftBreakBehavior: softBreak,
		IgnoreRaw:         cfg.HTML.IgnoreRaw,
	}
	if cfg.HTML.FilterTags {
		r.FilterTag = FilterTagGFM
	}
	for _, name := range cfg.Extensions {
		ext, ok := registry[name].(HTMLExtension)
		if !ok {
			continue
		}
		if r.Handlers == nil {
			r.Handlers = DefaultHTMLHandlers()
		}
		if err := ext.SetupHTML(r.Handlers); err != nil {
			return nil, errors.Wrapf(err, "set up html for extension %q", name)
		}
	}
	return r, nil
}

// An HTMLExtension is an [Extension] that also renders its nodes to HTML.
type HTMLExtension interface {
	Extension
	SetupHTML(handlers *Dispatcher[*HTMLContext]) error
}
