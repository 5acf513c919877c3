// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postprocess

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Rec. 709 luma weights.
var lumaWeights = f32.Vec3{0.2126, 0.7152, 0.0722}

// Luminance returns the Rec. 709 luma of a linear color.
func Luminance(c f32.Vec3) float32 {
	return c[0]*lumaWeights[0] + c[1]*lumaWeights[1] + c[2]*lumaWeights[2]
}

func saturate(c f32.Vec3, s float32) f32.Vec3 {
	l := Luminance(c)
	return f32.Vec3{
		l + (c[0]-l)*s,
		l + (c[1]-l)*s,
		l + (c[2]-l)*s,
	}
}

// TonemapReference applies the tonemap curve of the tonemap shader to one
// linear HDR color, without display encoding or dither. With g.Off the
// color is returned unchanged.
func TonemapReference(rgb f32.Vec3, g ColorGrading) f32.Vec3 {
	if g.Off {
		return rgb
	}
	scale := math32.Exp2(g.Exposure)
	c := rgb
	for i := range c {
		c[i] = math32.Pow(math32.Max(c[i]*scale, 0), g.Gamma)
	}
	c = saturate(c, g.PreSaturation)

	// Reinhard on luminance keeps hue.
	if l := Luminance(c); l > 0 {
		k := 1 / (1 + l)
		for i := range c {
			c[i] *= k
		}
	}

	c = saturate(c, g.PostSaturation)
	for i := range c {
		c[i] = clamp01(c[i])
	}
	return c
}

// EncodeSRGB applies the sRGB transfer function to one linear channel in
// [0,1].
func EncodeSRGB(v float32) float32 {
	v = clamp01(v)
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}
