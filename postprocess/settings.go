// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postprocess

import (
	"fmt"

	"github.com/chewxy/math32"
)

// CompositeMode selects how bloom is blended onto the HDR target.
type CompositeMode uint8

const (
	// EnergyConserving lerps toward the blurred image. Total brightness
	// is preserved.
	EnergyConserving CompositeMode = iota

	// Additive adds the blurred image on top.
	Additive
)

func (m CompositeMode) String() string {
	switch m {
	case EnergyConserving:
		return "energy-conserving"
	case Additive:
		return "additive"
	default:
		return fmt.Sprintf("composite(%d)", uint8(m))
	}
}

// BloomSettings controls the bloom effect.
type BloomSettings struct {
	// Intensity is the baseline blend factor of every level.
	Intensity float32

	// LowFrequencyBoost adds weight to the small, blurry levels.
	LowFrequencyBoost float32

	// LowFrequencyBoostCurvature shapes the boost across levels, in [0,1).
	LowFrequencyBoostCurvature float32

	// HighPassFrequency is the fraction of levels, from the largest, that
	// contribute at all. 1 keeps every level.
	HighPassFrequency float32

	// Threshold is the brightness below which pixels do not bloom. Zero
	// disables thresholding.
	Threshold float32

	// ThresholdSoftness widens the knee around Threshold, in [0,1].
	ThresholdSoftness float32

	Composite CompositeMode
}

// Natural is the default bloom preset.
func Natural() BloomSettings {
	return BloomSettings{
		Intensity:                  0.15,
		LowFrequencyBoost:          0.7,
		LowFrequencyBoostCurvature: 0.95,
		HighPassFrequency:          1.0,
		Composite:                  EnergyConserving,
	}
}

// OldSchool imitates the thresholded additive bloom of older games.
func OldSchool() BloomSettings {
	return BloomSettings{
		Intensity:                  0.05,
		LowFrequencyBoost:          0.7,
		LowFrequencyBoostCurvature: 0.95,
		HighPassFrequency:          1.0,
		Threshold:                  0.6,
		ThresholdSoftness:          0.2,
		Composite:                  Additive,
	}
}

// ScreenBlur blurs the whole screen strongly.
func ScreenBlur() BloomSettings {
	return BloomSettings{
		Intensity:                  1.0,
		LowFrequencyBoost:          0,
		LowFrequencyBoostCurvature: 0,
		HighPassFrequency:          1.0 / 3.0,
		Composite:                  EnergyConserving,
	}
}

// Preset returns the bloom preset with the given name: "natural",
// "old-school" or "screen-blur".
func Preset(name string) (BloomSettings, bool) {
	switch name {
	case "natural", "":
		return Natural(), true
	case "old-school", "oldschool":
		return OldSchool(), true
	case "screen-blur", "screenblur":
		return ScreenBlur(), true
	default:
		return BloomSettings{}, false
	}
}

// BlendFactor is the weight with which level mip is composited, out of
// levels 0..maxMip.
func (s BloomSettings) BlendFactor(mip, maxMip float32) float32 {
	var t float32
	if maxMip > 0 {
		t = mip / maxMip
	}
	boost := (1 - math32.Pow(1-t, 1/(1-s.LowFrequencyBoostCurvature))) * s.LowFrequencyBoost
	highPass := 1 - clamp01((t-s.HighPassFrequency)/s.HighPassFrequency)
	if s.Composite == EnergyConserving {
		boost *= 1 - s.Intensity
	}
	return (s.Intensity + boost) * highPass
}

// Threshold returns the soft-threshold parameters the downsample shader
// expects: threshold, threshold minus knee, twice the knee and the
// quadratic curve factor.
func Threshold(threshold, softness float32) [4]float32 {
	knee := threshold * clamp01(softness)
	return [4]float32{
		threshold,
		threshold - knee,
		2 * knee,
		0.25 / (knee + 0.00001),
	}
}

// ColorGrading controls the tonemap stage.
type ColorGrading struct {
	// Off bypasses tonemapping; the HDR image is copied unchanged.
	Off bool

	// Exposure in stops. The image is scaled by 2^Exposure.
	Exposure float32

	// Gamma applied before tonemapping; 1 is linear.
	Gamma float32

	// PreSaturation is applied before the tonemap curve, PostSaturation
	// after it; 1 leaves saturation unchanged.
	PreSaturation  float32
	PostSaturation float32
}

// DefaultColorGrading leaves the image unchanged apart from the tonemap
// curve.
func DefaultColorGrading() ColorGrading {
	return ColorGrading{Gamma: 1, PreSaturation: 1, PostSaturation: 1}
}

// Default level limits.
const (
	DefaultMipFloor     = 8
	DefaultMaxMipLevels = 16
)

// Settings configures a Chain for one frame.
type Settings struct {
	BloomEnabled bool
	Bloom        BloomSettings
	Grading      ColorGrading

	// Dither adds sub-LSB noise to hide banding in the display image.
	Dither bool

	// MipFloor is the smallest width or height of a bloom level.
	MipFloor uint32

	// MaxMipLevels caps the number of bloom levels.
	MaxMipLevels uint32
}

// DefaultSettings enables Natural bloom, default grading and dithering.
func DefaultSettings() Settings {
	return Settings{
		BloomEnabled: true,
		Bloom:        Natural(),
		Grading:      DefaultColorGrading(),
		Dither:       true,
		MipFloor:     DefaultMipFloor,
		MaxMipLevels: DefaultMaxMipLevels,
	}
}

func (s Settings) normalized() Settings {
	if s.MipFloor == 0 {
		s.MipFloor = DefaultMipFloor
	}
	if s.MaxMipLevels == 0 {
		s.MaxMipLevels = DefaultMaxMipLevels
	}
	return s
}

// Size is a width and height in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// MipLevels returns the bloom level sizes for a width x height HDR
// target. Level 0 is half resolution and each level halves again. A
// level is added only while both dimensions are at least floor, and at
// most maxLevels are returned.
func MipLevels(width, height, floor, maxLevels uint32) []Size {
	if floor == 0 {
		floor = 1
	}
	var levels []Size
	w, h := half(width), half(height)
	for uint32(len(levels)) < maxLevels && w >= floor && h >= floor {
		levels = append(levels, Size{Width: w, Height: h})
		if w == 1 && h == 1 {
			break
		}
		w, h = half(w), half(h)
	}
	return levels
}

func half(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return v / 2
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
