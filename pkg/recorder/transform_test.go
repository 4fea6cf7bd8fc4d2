package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transformTestSize = FrameSize{Width: 100, Height: 200}

// TestComputeTransformUnmirrored verifies the base rotation for every
// orientation against hand-computed matrices.
func TestComputeTransformUnmirrored(t *testing.T) {
	tests := []struct {
		name        string
		orientation DeviceOrientation
		want        AffineTransform
	}{
		{"portrait", OrientationPortrait, AffineTransform{A: 1, D: 1}},
		{"portrait-upside-down", OrientationPortraitUpsideDown, AffineTransform{A: -1, D: -1}},
		{"landscape-right", OrientationLandscapeRight, AffineTransform{B: 1, C: -1}},
		{"landscape-left", OrientationLandscapeLeft, AffineTransform{B: -1, C: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTransform(tt.orientation, false, transformTestSize)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestComputeTransformMirrored verifies the rotation composed with the
// horizontal flip, matching translate(width,0) composed with scale(-1,1)
// for the portrait case.
func TestComputeTransformMirrored(t *testing.T) {
	tests := []struct {
		name        string
		orientation DeviceOrientation
		want        AffineTransform
	}{
		{"portrait", OrientationPortrait, AffineTransform{A: -1, D: 1, Tx: 100}},
		{"portrait-upside-down", OrientationPortraitUpsideDown, AffineTransform{A: 1, D: -1, Tx: -100}},
		{"landscape-right", OrientationLandscapeRight, AffineTransform{B: -1, C: -1, Ty: 100}},
		{"landscape-left", OrientationLandscapeLeft, AffineTransform{B: 1, C: 1, Ty: -100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTransform(tt.orientation, true, transformTestSize)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestComputeTransformDeterministic verifies repeated computation yields
// identical matrices for every combination.
func TestComputeTransformDeterministic(t *testing.T) {
	orientations := []DeviceOrientation{
		OrientationPortrait,
		OrientationPortraitUpsideDown,
		OrientationLandscapeLeft,
		OrientationLandscapeRight,
	}
	for _, o := range orientations {
		for _, mirrored := range []bool{false, true} {
			first := ComputeTransform(o, mirrored, transformTestSize)
			second := ComputeTransform(o, mirrored, transformTestSize)
			assert.Equal(t, first, second, "orientation %s mirrored %v", o, mirrored)
		}
	}
}

// TestTransformApplyMirroredPortrait verifies the mirrored portrait
// transform flips points around the frame width: x' = width - x.
func TestTransformApplyMirroredPortrait(t *testing.T) {
	tr := ComputeTransform(OrientationPortrait, true, transformTestSize)

	x, y := tr.Apply(0, 0)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 0.0, y)

	x, y = tr.Apply(100, 200)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 200.0, y)

	x, y = tr.Apply(25, 50)
	assert.Equal(t, 75.0, x)
	assert.Equal(t, 50.0, y)
}

func TestTransformConcatOrder(t *testing.T) {
	// Concat applies the receiver first: scaling then translating is not
	// the same as translating then scaling.
	scaleThenTranslate := ScaleTransform(-1, 1).Concat(TranslationTransform(100, 0))
	translateThenScale := TranslationTransform(100, 0).Concat(ScaleTransform(-1, 1))

	x, _ := scaleThenTranslate.Apply(10, 0)
	assert.Equal(t, 90.0, x)

	x, _ = translateThenScale.Apply(10, 0)
	assert.Equal(t, -110.0, x)
}

func TestTransformIdentity(t *testing.T) {
	assert.True(t, IdentityTransform().IsIdentity())
	assert.False(t, ScaleTransform(-1, 1).IsIdentity())

	x, y := IdentityTransform().Apply(42, -7)
	assert.Equal(t, 42.0, x)
	assert.Equal(t, -7.0, y)
}

// TestMp4Matrix verifies the fixed-point track-header rendering.
func TestMp4Matrix(t *testing.T) {
	m := IdentityTransform().Mp4Matrix()
	require.Equal(t, [9]int32{
		0x10000, 0, 0,
		0, 0x10000, 0,
		0, 0, 1 << 30,
	}, m)

	rotated := ComputeTransform(OrientationLandscapeRight, false, transformTestSize).Mp4Matrix()
	require.Equal(t, [9]int32{
		0, 0x10000, 0,
		-0x10000, 0, 0,
		0, 0, 1 << 30,
	}, rotated)
}

func TestDeviceOrientationString(t *testing.T) {
	assert.Equal(t, "portrait", OrientationPortrait.String())
	assert.Equal(t, "portrait-upside-down", OrientationPortraitUpsideDown.String())
	assert.Equal(t, "landscape-left", OrientationLandscapeLeft.String())
	assert.Equal(t, "landscape-right", OrientationLandscapeRight.String())
}
