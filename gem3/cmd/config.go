// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"os"

	"github.com/MarziehLenjani/gem3-mapper/gem3/buffer"
	"github.com/MarziehLenjani/gem3-mapper/gem3/filtering"
	"github.com/MarziehLenjani/gem3-mapper/gem3/paired"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/wfa"
	"github.com/spf13/cobra"
)

// Config is the content of a config file.
type Config struct {
	Alignment   AlignmentConfig   `toml:"alignment"`
	Filtering   FilteringConfig   `toml:"filtering"`
	Paired      PairedConfig      `toml:"paired"`
	Accelerator AcceleratorConfig `toml:"accelerator"`
}

// AlignmentConfig holds the alignment section.
type AlignmentConfig struct {
	// the maximum edit distance, as a fraction of the query length if < 1
	MaxDistance float64 `toml:"max_distance"`
	Local       bool    `toml:"local"` // report local matches
}

// FilteringConfig holds the filtering section.
type FilteringConfig struct {
	MaxReportedMatches int     `toml:"max_reported_matches"`
	CacheSize          int     `toml:"cache_size"`
	LocalFallback      bool    `toml:"local_fallback"`
	MinLocalCoverage   float64 `toml:"min_local_coverage"`
	Mismatch           uint32  `toml:"mismatch"`
	GapOpen            uint32  `toml:"gap_open"`
	GapExt             uint32  `toml:"gap_ext"`
}

// PairedConfig holds the paired section.
type PairedConfig struct {
	Concordant        string `toml:"concordant"`
	Discordant        string `toml:"discordant"`
	MinTemplateLength int    `toml:"min_template_length"`
	MaxTemplateLength int    `toml:"max_template_length"`
	DiscordantSearch  bool   `toml:"discordant_search"`
	MaxPairs          int    `toml:"max_pairs"`
}

// AcceleratorConfig holds the accelerator section.
type AcceleratorConfig struct {
	Backend    string `toml:"backend"`
	Emulated   bool   `toml:"emulated"`
	Buffers    int    `toml:"buffers"`
	BufferSize int    `toml:"buffer_size"`
	Devices    int    `toml:"devices"`
}

// DefaultConfig returns a config with the default values of all packages.
func DefaultConfig() *Config {
	f := filtering.DefaultOptions
	p := paired.DefaultOptions
	b := buffer.DefaultOptions
	return &Config{
		Alignment: AlignmentConfig{
			MaxDistance: 0.08,
		},
		Filtering: FilteringConfig{
			MaxReportedMatches: f.MaxReportedMatches,
			CacheSize:          f.CacheSize,
			LocalFallback:      f.LocalFallback,
			MinLocalCoverage:   f.MinLocalCoverage,
			Mismatch:           f.Penalties.Mismatch,
			GapOpen:            f.Penalties.GapOpen,
			GapExt:             f.Penalties.GapExt,
		},
		Paired: PairedConfig{
			Concordant:        orientationsString(p.ConcordantOrientations),
			Discordant:        orientationsString(p.DiscordantOrientations),
			MinTemplateLength: p.MinTemplateLength,
			MaxTemplateLength: p.MaxTemplateLength,
			DiscordantSearch:  p.DiscordantSearch,
			MaxPairs:          p.MaxPairs,
		},
		Accelerator: AcceleratorConfig{
			Backend:    b.Backend,
			Emulated:   b.Emulated,
			Buffers:    b.NumBuffers,
			BufferSize: b.BufferSize,
			Devices:    b.NumDevices,
		},
	}
}

func orientationsString(list []paired.Orientation) string {
	var s string
	for i, o := range list {
		if i > 0 {
			s += ","
		}
		s += o.String()
	}
	return s
}

// loadConfig reads a TOML file over the default values.
// An empty file name returns the default config.
func loadConfig(file string) (*Config, error) {
	cfg := DefaultConfig()
	if file == "" {
		return cfg, nil
	}

	file, err := homedir.Expand(file)
	if err != nil {
		return nil, errors.Wrapf(err, "expand path: %s", file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file: %s", file)
	}
	if err = toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file: %s", file)
	}
	return cfg, nil
}

// overrideConfig applies the flags changed in the command line.
func overrideConfig(cmd *cobra.Command, cfg *Config) {
	changed := func(flag string) bool {
		f := cmd.Flags().Lookup(flag)
		return f != nil && f.Changed
	}

	if changed("max-distance") {
		cfg.Alignment.MaxDistance = getFlagFloat64(cmd, "max-distance")
	}
	if changed("local") {
		cfg.Alignment.Local = getFlagBool(cmd, "local")
	}

	if changed("max-matches") {
		cfg.Filtering.MaxReportedMatches = getFlagInt(cmd, "max-matches")
	}
	if changed("cache-size") {
		cfg.Filtering.CacheSize = getFlagPositiveInt(cmd, "cache-size")
	}
	if changed("local-fallback") {
		cfg.Filtering.LocalFallback = getFlagBool(cmd, "local-fallback")
	}
	if changed("min-local-coverage") {
		cfg.Filtering.MinLocalCoverage = getFlagFloat64(cmd, "min-local-coverage")
	}

	if changed("orientation") {
		cfg.Paired.Concordant = getFlagString(cmd, "orientation")
	}
	if changed("min-tlen") {
		cfg.Paired.MinTemplateLength = getFlagNonNegativeInt(cmd, "min-tlen")
	}
	if changed("max-tlen") {
		cfg.Paired.MaxTemplateLength = getFlagNonNegativeInt(cmd, "max-tlen")
	}
	if changed("no-discordant") {
		cfg.Paired.DiscordantSearch = !getFlagBool(cmd, "no-discordant")
	}

	if changed("backend") {
		cfg.Accelerator.Backend = getFlagString(cmd, "backend")
	}
	if changed("no-emulation") {
		cfg.Accelerator.Emulated = !getFlagBool(cmd, "no-emulation")
	}
	if changed("buffer-size") {
		cfg.Accelerator.BufferSize = getFlagPositiveInt(cmd, "buffer-size")
	}
}

// maxDistance returns the maximum edit distance of a query.
func (c *AlignmentConfig) maxDistance(qlen int) int {
	if c.MaxDistance < 1 {
		return int(c.MaxDistance * float64(qlen))
	}
	return int(c.MaxDistance)
}

// options converts the config to options of the packages, and checks them.
func (c *Config) options() (*filtering.Options, *paired.Options, *buffer.Options, error) {
	if c.Alignment.MaxDistance < 0 {
		return nil, nil, nil, errors.Errorf("invalid maximum distance: %f", c.Alignment.MaxDistance)
	}

	fopt := &filtering.Options{
		MaxReportedMatches: c.Filtering.MaxReportedMatches,
		CacheSize:          c.Filtering.CacheSize,
		LocalFallback:      c.Filtering.LocalFallback || c.Alignment.Local,
		MinLocalCoverage:   c.Filtering.MinLocalCoverage,
		Penalties: &wfa.Penalties{
			Mismatch: c.Filtering.Mismatch,
			GapOpen:  c.Filtering.GapOpen,
			GapExt:   c.Filtering.GapExt,
		},
	}
	if err := filtering.CheckOptions(fopt); err != nil {
		return nil, nil, nil, err
	}

	conc, err := paired.ParseOrientations(c.Paired.Concordant)
	if err != nil {
		return nil, nil, nil, err
	}
	disc, err := paired.ParseOrientations(c.Paired.Discordant)
	if err != nil {
		return nil, nil, nil, err
	}
	popt := &paired.Options{
		ConcordantOrientations: conc,
		DiscordantOrientations: disc,
		MinTemplateLength:      c.Paired.MinTemplateLength,
		MaxTemplateLength:      c.Paired.MaxTemplateLength,
		DiscordantSearch:       c.Paired.DiscordantSearch,
		MaxPairs:               c.Paired.MaxPairs,
	}
	if err = paired.CheckOptions(popt); err != nil {
		return nil, nil, nil, err
	}

	bopt := &buffer.Options{
		Backend:    c.Accelerator.Backend,
		Emulated:   c.Accelerator.Emulated,
		NumBuffers: c.Accelerator.Buffers,
		BufferSize: c.Accelerator.BufferSize,
		NumDevices: c.Accelerator.Devices,
	}
	if err = buffer.CheckOptions(bopt); err != nil {
		return nil, nil, nil, err
	}

	return fopt, popt, bopt, nil
}
