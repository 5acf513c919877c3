// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads glass configuration from TOML or YAML files.
//
// Every file is applied on top of Default, so a file only needs the keys
// it changes. A bloom preset named in the file provides the base bloom
// values; bloom keys in the same file override the preset.
//
//	[window]
//	width = 1920
//	height = 1080
//	present_mode = "mailbox"
//
//	[post_process.bloom]
//	preset = "old-school"
//	intensity = 0.1
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownFormat is returned for files that are neither TOML nor
	// YAML.
	ErrUnknownFormat = errors.New("config: unknown file format")

	// ErrInvalid is returned by Validate and by Load for values out of
	// range.
	ErrInvalid = errors.New("config: invalid configuration")
)

// Format is a configuration file encoding.
type Format uint8

const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}

// FormatOf selects the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Config is the complete file configuration.
type Config struct {
	// Windowless runs without windows; the loop does not stop when the
	// last window closes.
	Windowless bool `toml:"windowless" yaml:"windowless"`

	Device      Device      `toml:"device" yaml:"device"`
	Window      Window      `toml:"window" yaml:"window"`
	PostProcess PostProcess `toml:"post_process" yaml:"post_process"`
}

// Device configures the GPU device.
type Device struct {
	// Backend is "vulkan" or "noop".
	Backend string `toml:"backend" yaml:"backend"`

	// PowerPreference is "high-performance", "low-power" or "none".
	PowerPreference string `toml:"power_preference" yaml:"power_preference"`

	MaxPushConstantSize uint32 `toml:"max_push_constant_size" yaml:"max_push_constant_size"`

	// TargetBudgetMiB caps offscreen render target memory. Zero is
	// unlimited.
	TargetBudgetMiB uint64 `toml:"target_budget_mib" yaml:"target_budget_mib"`
}

// Window configures newly opened windows.
type Window struct {
	Width  uint32 `toml:"width" yaml:"width"`
	Height uint32 `toml:"height" yaml:"height"`

	// PresentMode is "fifo", "mailbox" or "immediate".
	PresentMode string `toml:"present_mode" yaml:"present_mode"`

	// ClearColor is the linear RGBA color of the HDR target each frame.
	ClearColor [4]float64 `toml:"clear_color" yaml:"clear_color"`

	ExitOnEsc bool `toml:"exit_on_esc" yaml:"exit_on_esc"`
}

// PostProcess configures bloom and tonemapping.
type PostProcess struct {
	Bloom   Bloom   `toml:"bloom" yaml:"bloom"`
	Tonemap Tonemap `toml:"tonemap" yaml:"tonemap"`

	Dither       bool   `toml:"dither" yaml:"dither"`
	MipFloor     uint32 `toml:"mip_floor" yaml:"mip_floor"`
	MaxMipLevels uint32 `toml:"max_mip_levels" yaml:"max_mip_levels"`
}

// Bloom mirrors postprocess.BloomSettings.
type Bloom struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Preset is "natural", "old-school" or "screen-blur".
	Preset string `toml:"preset" yaml:"preset"`

	Intensity                  float32 `toml:"intensity" yaml:"intensity"`
	LowFrequencyBoost          float32 `toml:"low_frequency_boost" yaml:"low_frequency_boost"`
	LowFrequencyBoostCurvature float32 `toml:"low_frequency_boost_curvature" yaml:"low_frequency_boost_curvature"`
	HighPassFrequency          float32 `toml:"high_pass_frequency" yaml:"high_pass_frequency"`
	Threshold                  float32 `toml:"threshold" yaml:"threshold"`
	ThresholdSoftness          float32 `toml:"threshold_softness" yaml:"threshold_softness"`

	// Composite is "energy-conserving" or "additive".
	Composite string `toml:"composite" yaml:"composite"`
}

// Tonemap mirrors postprocess.ColorGrading.
type Tonemap struct {
	Off            bool    `toml:"off" yaml:"off"`
	Exposure       float32 `toml:"exposure" yaml:"exposure"`
	Gamma          float32 `toml:"gamma" yaml:"gamma"`
	PreSaturation  float32 `toml:"pre_saturation" yaml:"pre_saturation"`
	PostSaturation float32 `toml:"post_saturation" yaml:"post_saturation"`
}

func bloomFrom(name string, s postprocess.BloomSettings, enabled bool) Bloom {
	return Bloom{
		Enabled:                    enabled,
		Preset:                     name,
		Intensity:                  s.Intensity,
		LowFrequencyBoost:          s.LowFrequencyBoost,
		LowFrequencyBoostCurvature: s.LowFrequencyBoostCurvature,
		HighPassFrequency:          s.HighPassFrequency,
		Threshold:                  s.Threshold,
		ThresholdSoftness:          s.ThresholdSoftness,
		Composite:                  s.Composite.String(),
	}
}

// Default is the configuration of a windowed application with bloom.
func Default() Config {
	g := postprocess.DefaultColorGrading()
	return Config{
		Device: Device{
			Backend:             device.BackendVulkan.String(),
			PowerPreference:     "high-performance",
			MaxPushConstantSize: device.ExtendedMaxPushConstantSize,
		},
		Window: Window{
			Width:       1280,
			Height:      720,
			PresentMode: surface.PresentModeFifo.String(),
			ClearColor:  [4]float64{0, 0, 0, 1},
			ExitOnEsc:   true,
		},
		PostProcess: PostProcess{
			Bloom: bloomFrom("natural", postprocess.Natural(), true),
			Tonemap: Tonemap{
				Exposure:       g.Exposure,
				Gamma:          g.Gamma,
				PreSaturation:  g.PreSaturation,
				PostSaturation: g.PostSaturation,
			},
			Dither:       true,
			MipFloor:     postprocess.DefaultMipFloor,
			MaxMipLevels: postprocess.DefaultMaxMipLevels,
		},
	}
}

// Windowless runs compute-only work without surfaces.
func Windowless() Config {
	c := Default()
	c.Windowless = true
	c.Window.ExitOnEsc = false
	c.PostProcess.Bloom.Enabled = false
	return c
}

// Performance trades bloom quality and vsync for latency.
func Performance() Config {
	c := Default()
	c.Device.TargetBudgetMiB = 256
	c.Window.PresentMode = surface.PresentModeImmediate.String()
	c.PostProcess.Dither = false
	c.PostProcess.MipFloor = 16
	c.PostProcess.MaxMipLevels = 5
	return c
}

// Preset returns the named configuration preset: "default",
// "windowless" or "performance".
func Preset(name string) (Config, bool) {
	switch strings.ToLower(name) {
	case "", "default":
		return Default(), true
	case "windowless":
		return Windowless(), true
	case "performance":
		return Performance(), true
	default:
		return Config{}, false
	}
}

// Load reads and validates a TOML or YAML file.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes data on top of Default and validates the result.
func Parse(data []byte, format Format) (Config, error) {
	base := Default()
	if err := decode(data, format, &base); err != nil {
		return Config{}, err
	}

	// A preset replaces the default bloom values, then the file is
	// applied again so its explicit bloom keys win.
	if name := base.PostProcess.Bloom.Preset; name != "natural" {
		preset, ok := postprocess.Preset(name)
		if !ok {
			return Config{}, fmt.Errorf("%w: unknown bloom preset %q", ErrInvalid, name)
		}
		c := Default()
		c.PostProcess.Bloom = bloomFrom(name, preset, true)
		if err := decode(data, format, &c); err != nil {
			return Config{}, err
		}
		base = c
	}

	if err := base.Validate(); err != nil {
		return Config{}, err
	}
	return base, nil
}

func decode(data []byte, format Format, c *Config) error {
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: yaml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	return nil
}

// Marshal encodes c.
func Marshal(c Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("config: toml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("config: yaml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

// Validate reports every out-of-range value, joined into one error
// wrapping ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := parseBackend(c.Device.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := parsePowerPreference(c.Device.PowerPreference); err != nil {
		errs = append(errs, err)
	}
	if n := c.Device.MaxPushConstantSize; n != 0 && (n%4 != 0 || n > 4096) {
		bad("device.max_push_constant_size %d must be a multiple of 4 up to 4096", n)
	}
	if _, err := parsePresentMode(c.Window.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if !c.Windowless && (c.Window.Width == 0 || c.Window.Height == 0) {
		bad("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}

	b := c.PostProcess.Bloom
	if _, err := parseComposite(b.Composite); err != nil {
		errs = append(errs, err)
	}
	if b.Intensity < 0 {
		bad("bloom.intensity %v is negative", b.Intensity)
	}
	if b.LowFrequencyBoostCurvature < 0 || b.LowFrequencyBoostCurvature >= 1 {
		bad("bloom.low_frequency_boost_curvature %v must be in [0,1)", b.LowFrequencyBoostCurvature)
	}
	if b.HighPassFrequency <= 0 || b.HighPassFrequency > 1 {
		bad("bloom.high_pass_frequency %v must be in (0,1]", b.HighPassFrequency)
	}
	if b.Threshold < 0 {
		bad("bloom.threshold %v is negative", b.Threshold)
	}
	if b.ThresholdSoftness < 0 || b.ThresholdSoftness > 1 {
		bad("bloom.threshold_softness %v must be in [0,1]", b.ThresholdSoftness)
	}
	if c.PostProcess.Tonemap.Gamma <= 0 {
		bad("tonemap.gamma %v must be positive", c.PostProcess.Tonemap.Gamma)
	}
	if c.PostProcess.MaxMipLevels > postprocess.DefaultMaxMipLevels {
		bad("post_process.max_mip_levels %d exceeds %d", c.PostProcess.MaxMipLevels, postprocess.DefaultMaxMipLevels)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func parseBackend(s string) (device.Backend, error) {
	switch strings.ToLower(s) {
	case "", "vulkan":
		return device.BackendVulkan, nil
	case "noop":
		return device.BackendNoop, nil
	default:
		return 0, fmt.Errorf("device.backend %q is not vulkan or noop", s)
	}
}

func parsePowerPreference(s string) (device.PowerPreference, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return device.PowerPreferenceNone, nil
	case "low-power":
		return device.PowerPreferenceLowPower, nil
	case "high-performance":
		return device.PowerPreferenceHighPerformance, nil
	default:
		return 0, fmt.Errorf("device.power_preference %q is not none, low-power or high-performance", s)
	}
}

func parsePresentMode(s string) (surface.PresentMode, error) {
	switch strings.ToLower(s) {
	case "", "fifo":
		return surface.PresentModeFifo, nil
	case "mailbox":
		return surface.PresentModeMailbox, nil
	case "immediate":
		return surface.PresentModeImmediate, nil
	default:
		return 0, fmt.Errorf("window.present_mode %q is not fifo, mailbox or immediate", s)
	}
}

func parseComposite(s string) (postprocess.CompositeMode, error) {
	switch strings.ToLower(s) {
	case "", "energy-conserving":
		return postprocess.EnergyConserving, nil
	case "additive":
		return postprocess.Additive, nil
	default:
		return 0, fmt.Errorf("bloom.composite %q is not energy-conserving or additive", s)
	}
}

// DeviceConfig converts the device section. c must be valid.
func (c Config) DeviceConfig() device.Config {
	cfg := device.DefaultConfig()
	cfg.Backend, _ = parseBackend(c.Device.Backend)
	cfg.PowerPreference, _ = parsePowerPreference(c.Device.PowerPreference)
	if c.Device.MaxPushConstantSize != 0 {
		cfg.MaxPushConstantSize = c.Device.MaxPushConstantSize
	}
	return cfg
}

// TargetBudget is the render target budget in bytes.
func (c Config) TargetBudget() uint64 { return c.Device.TargetBudgetMiB << 20 }

// PresentMode converts window.present_mode. c must be valid.
func (c Config) PresentMode() surface.PresentMode {
	m, _ := parsePresentMode(c.Window.PresentMode)
	return m
}

// PostProcessSettings converts the post_process section. c must be
// valid.
func (c Config) PostProcessSettings() postprocess.Settings {
	p := c.PostProcess
	composite, _ := parseComposite(p.Bloom.Composite)
	return postprocess.Settings{
		BloomEnabled: p.Bloom.Enabled,
		Bloom: postprocess.BloomSettings{
			Intensity:                  p.Bloom.Intensity,
			LowFrequencyBoost:          p.Bloom.LowFrequencyBoost,
			LowFrequencyBoostCurvature: p.Bloom.LowFrequencyBoostCurvature,
			HighPassFrequency:          p.Bloom.HighPassFrequency,
			Threshold:                  p.Bloom.Threshold,
			ThresholdSoftness:          p.Bloom.ThresholdSoftness,
			Composite:                  composite,
		},
		Grading: postprocess.ColorGrading{
			Off:            p.Tonemap.Off,
			Exposure:       p.Tonemap.Exposure,
			Gamma:          p.Tonemap.Gamma,
			PreSaturation:  p.Tonemap.PreSaturation,
			PostSaturation: p.Tonemap.PostSaturation,
		},
		Dither:       p.Dither,
		MipFloor:     p.MipFloor,
		MaxMipLevels: p.MaxMipLevels,
	}
}
