package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Cube faces in OpenGL order: +X, -X, +Y, -Y, +Z, -Z.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// CubeFace selects the face for dir and returns the face-local (s, t) in
// [0, 1] following the OpenGL cube map convention.
func CubeFace(dir mgl32.Vec3) (face int, s, t float32) {
	ax, ay, az := abs32(dir[0]), abs32(dir[1]), abs32(dir[2])
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if dir[0] > 0 {
			face, sc, tc = FacePosX, -dir[2], -dir[1]
		} else {
			face, sc, tc = FaceNegX, dir[2], -dir[1]
		}
	case ay >= az:
		ma = ay
		if dir[1] > 0 {
			face, sc, tc = FacePosY, dir[0], dir[2]
		} else {
			face, sc, tc = FaceNegY, dir[0], -dir[2]
		}
	default:
		ma = az
		if dir[2] > 0 {
			face, sc, tc = FacePosZ, dir[0], -dir[1]
		} else {
			face, sc, tc = FaceNegZ, -dir[0], -dir[1]
		}
	}
	if ma == 0 {
		return FacePosY, 0.5, 0.5
	}
	return face, 0.5 * (sc/ma + 1), 0.5 * (tc/ma + 1)
}

// CubeDirection is the inverse of CubeFace: the unit direction through
// face-local (s, t).
func CubeDirection(face int, s, t float32) mgl32.Vec3 {
	sc, tc := 2*s-1, 2*t-1
	var d mgl32.Vec3
	switch face {
	case FacePosX:
		d = mgl32.Vec3{1, -tc, -sc}
	case FaceNegX:
		d = mgl32.Vec3{-1, -tc, sc}
	case FacePosY:
		d = mgl32.Vec3{sc, 1, tc}
	case FaceNegY:
		d = mgl32.Vec3{sc, -1, -tc}
	case FacePosZ:
		d = mgl32.Vec3{sc, -tc, 1}
	default:
		d = mgl32.Vec3{-sc, -tc, -1}
	}
	return d.Normalize()
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
