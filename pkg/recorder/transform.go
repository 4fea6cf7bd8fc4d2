package recorder

import "fmt"

// DeviceOrientation describes the physical orientation of the capture
// device at the moment a recording session is created. It determines the
// rotation baked into the output video track so players render frames
// upright.
type DeviceOrientation int

const (
	// OrientationPortrait is the natural upright orientation (no rotation).
	OrientationPortrait DeviceOrientation = iota

	// OrientationPortraitUpsideDown is portrait rotated by 180 degrees.
	OrientationPortraitUpsideDown

	// OrientationLandscapeLeft is landscape with the device rotated
	// counter-clockwise from portrait (-90 degrees).
	OrientationLandscapeLeft

	// OrientationLandscapeRight is landscape with the device rotated
	// clockwise from portrait (+90 degrees).
	OrientationLandscapeRight
)

// String returns a human-readable orientation name for log fields.
func (o DeviceOrientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationPortraitUpsideDown:
		return "portrait-upside-down"
	case OrientationLandscapeLeft:
		return "landscape-left"
	case OrientationLandscapeRight:
		return "landscape-right"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// AffineTransform is a 2D affine map in row-vector convention:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
//
// It corrects frame orientation and mirroring before the frame reaches the
// container. The zero value is NOT the identity; use IdentityTransform.
type AffineTransform struct {
	A, B   float64
	C, D   float64
	Tx, Ty float64
}

// IdentityTransform returns the transform that maps every point to itself.
func IdentityTransform() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// TranslationTransform returns a transform that shifts points by (tx, ty).
func TranslationTransform(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, Tx: tx, Ty: ty}
}

// ScaleTransform returns a transform that scales points by (sx, sy).
func ScaleTransform(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// Concat composes two transforms: the receiver is applied to a point first,
// then u. This matches the prepend semantics of the capture-side transform
// APIs this calculator mirrors.
func (t AffineTransform) Concat(u AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*u.A + t.B*u.C,
		B:  t.A*u.B + t.B*u.D,
		C:  t.C*u.A + t.D*u.C,
		D:  t.C*u.B + t.D*u.D,
		Tx: t.Tx*u.A + t.Ty*u.C + u.Tx,
		Ty: t.Tx*u.B + t.Ty*u.D + u.Ty,
	}
}

// Apply maps a single point through the transform.
func (t AffineTransform) Apply(x, y float64) (float64, float64) {
	return t.A*x + t.C*y + t.Tx, t.B*x + t.D*y + t.Ty
}

// IsIdentity reports whether the transform is exactly the identity.
func (t AffineTransform) IsIdentity() bool {
	return t == IdentityTransform()
}

// Mp4Matrix renders the transform as the 9-element fixed-point matrix used
// by MP4 track headers (a, b, u, c, d, v, x, y, w with 16.16 fractional
// parts and 2.30 for u/v/w).
func (t AffineTransform) Mp4Matrix() [9]int32 {
	const fixed16 = 1 << 16
	return [9]int32{
		int32(t.A * fixed16), int32(t.B * fixed16), 0,
		int32(t.C * fixed16), int32(t.D * fixed16), 0,
		int32(t.Tx * fixed16), int32(t.Ty * fixed16), 1 << 30,
	}
}

// rotationTransform returns the exact rotation matrix for an orientation.
// The matrices are spelled out as constants rather than computed with
// trigonometry so callers can rely on exact equality (cos(pi/2) is not
// exactly zero in floating point).
func rotationTransform(o DeviceOrientation) AffineTransform {
	switch o {
	case OrientationPortraitUpsideDown:
		// rotate pi
		return AffineTransform{A: -1, D: -1}
	case OrientationLandscapeRight:
		// rotate +pi/2
		return AffineTransform{B: 1, C: -1}
	case OrientationLandscapeLeft:
		// rotate -pi/2
		return AffineTransform{B: -1, C: 1}
	default:
		return IdentityTransform()
	}
}

// ComputeTransform derives the render transform for a video track from the
// device orientation, the capture connection's mirroring flag, and the
// frame size.
//
// The base rotation follows the orientation: portrait is the identity,
// portrait-upside-down rotates by pi, landscape-right by +pi/2 and
// landscape-left by -pi/2. The landscape sign convention matches the
// upstream capture connection's coordinate system.
//
// When mirrored, a horizontal flip around the frame's own width
// (translate by +width composed with scale x by -1, so x' = width - x for
// an upright frame) is prepended to the rotation, reproducing the
// translate-then-scale construction order of the capture transform. The
// composition order is load-bearing: flipping on the other side of the
// rotation produces a different image for non-identity rotations.
//
// Pure and deterministic; performs no I/O.
func ComputeTransform(orientation DeviceOrientation, mirrored bool, size FrameSize) AffineTransform {
	rotation := rotationTransform(orientation)
	if !mirrored {
		return rotation
	}
	flip := ScaleTransform(-1, 1).Concat(TranslationTransform(float64(size.Width), 0))
	return flip.Concat(rotation)
}
