// Package geom holds the vector and voxel geometry shared by the world and the
// integrity checks. Vectors are mgl64 values; blocks are integer cells.
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelguard.ai/internal/sim/mathx"
)

type (
	Vec3 = mgl64.Vec3
	Vec2 = mgl64.Vec2
)

// ErrDegenerate is returned when a vector cannot be normalized (zero length or
// non-finite components).
var ErrDegenerate = errors.New("geom: degenerate vector")

const degenerateLen = 1e-12

type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func BlockAt(p Vec3) BlockPos {
	return BlockPos{X: mathx.FloorInt(p.X()), Y: mathx.FloorInt(p.Y()), Z: mathx.FloorInt(p.Z())}
}

func (b BlockPos) Add(dx, dy, dz int) BlockPos {
	return BlockPos{X: b.X + dx, Y: b.Y + dy, Z: b.Z + dz}
}

// Touches reports whether b and o share a face.
func (b BlockPos) Touches(o BlockPos) bool {
	return mathx.AbsInt(b.X-o.X)+mathx.AbsInt(b.Y-o.Y)+mathx.AbsInt(b.Z-o.Z) == 1
}

func (b BlockPos) Center() Vec3 {
	return Vec3{float64(b.X) + 0.5, float64(b.Y) + 0.5, float64(b.Z) + 0.5}
}

func (b BlockPos) String() string {
	return fmt.Sprintf("%d,%d,%d", b.X, b.Y, b.Z)
}

func Finite(v Vec3) bool {
	return mathx.Finite(v[0], v[1], v[2])
}

// Normalize returns the unit vector of v or ErrDegenerate.
func Normalize(v Vec3) (Vec3, error) {
	if !Finite(v) {
		return Vec3{}, ErrDegenerate
	}
	l := v.Len()
	if l < degenerateLen {
		return Vec3{}, ErrDegenerate
	}
	return v.Mul(1 / l), nil
}

func Distance(a, b Vec3) float64 {
	return b.Sub(a).Len()
}

// HorizontalLen is the length of v projected on the XZ plane.
func HorizontalLen(v Vec3) float64 {
	return math.Hypot(v.X(), v.Z())
}

// ViewDirection converts a yaw/pitch pair in degrees to a unit look vector.
// Yaw 0 looks towards +Z, yaw 90 towards -X, pitch 90 straight down.
func ViewDirection(yaw, pitch float64) Vec3 {
	y := mgl64.DegToRad(yaw)
	p := mgl64.DegToRad(pitch)
	cp := math.Cos(p)
	return Vec3{-math.Sin(y) * cp, -math.Sin(p), math.Cos(y) * cp}
}

// AngleDelta returns b-a wrapped into [-180, 180].
func AngleDelta(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// UnitDot is the dot product of the normalized a and b, clamped to [-1, 1].
func UnitDot(a, b Vec3) (float64, error) {
	na, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return 0, err
	}
	return Clamp(na.Dot(nb), -1, 1), nil
}
