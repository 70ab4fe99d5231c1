package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewDefaultCamera(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	if cam == nil {
		t.Fatal("NewDefaultCamera returned nil")
	}

	if cam.Position.Y() <= 0 {
		t.Errorf("Default camera should look down from above the water, got %v", cam.Position)
	}

	if d := cam.Position.Sub(cam.Target).Len(); math.Abs(float64(d-cam.Distance)) > 1e-4 {
		t.Errorf("Camera should sit %f from its target, got %f", cam.Distance, d)
	}

	if math.Abs(float64(cam.AspectRatio)-800.0/600.0) > 1e-6 {
		t.Errorf("Expected aspect ratio %f, got %f", 800.0/600.0, cam.AspectRatio)
	}
}

func TestCameraGetProjectionMatrix(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	proj := cam.GetProjectionMatrix()

	if proj.At(3, 3) != 0.0 {
		t.Error("Perspective projection should have w=0 at (3,3)")
	}
}

func TestCameraTargetProjectsToCentre(t *testing.T) {
	cam := NewDefaultCamera(640, 480)

	clip := cam.GetViewProjection().Mul4x1(cam.Target.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip.W())

	if math.Abs(float64(ndc.X())) > 1e-4 || math.Abs(float64(ndc.Y())) > 1e-4 {
		t.Errorf("Orbit target should project to the screen centre, got %v", ndc)
	}
}

func TestCameraPitchIsClamped(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	cam.ProcessMouseMovement(0, 10000)
	if cam.AngleX != -MaxPitch {
		t.Errorf("Expected pitch clamped to %f, got %f", -MaxPitch, cam.AngleX)
	}

	cam.ProcessMouseMovement(0, -20000)
	if cam.AngleX != MaxPitch {
		t.Errorf("Expected pitch clamped to %f, got %f", MaxPitch, cam.AngleX)
	}
	if !cam.Underwater(0) {
		t.Error("A camera pitched fully up should be below the water")
	}
}

func TestCameraZoomIsClamped(t *testing.T) {
	cam := NewDefaultCamera(800, 600)

	cam.Zoom(100)
	if cam.Distance != MinDistance {
		t.Errorf("Expected distance %f, got %f", MinDistance, cam.Distance)
	}
	cam.Zoom(-100)
	if cam.Distance != MaxDistance {
		t.Errorf("Expected distance %f, got %f", MaxDistance, cam.Distance)
	}
}

func TestFrustumContainsTarget(t *testing.T) {
	cam := NewDefaultCamera(800, 600)
	frustum := cam.CalculateFrustum()

	if !frustum.IntersectsSphere(cam.Target, 0.1) {
		t.Error("Frustum should contain the orbit target")
	}
	behind := cam.Position.Add(cam.Position.Sub(cam.Target))
	if frustum.IntersectsSphere(behind, 0.1) {
		t.Error("Frustum should not contain a point behind the camera")
	}
}

func TestScreenToRayThroughCentre(t *testing.T) {
	cam := NewDefaultCamera(640, 480)

	ray, ok := ScreenToRay(cam, 320, 240, 640, 480)
	if !ok {
		t.Fatal("ScreenToRay failed for the screen centre")
	}
	if ray.Direction.Dot(cam.Front()) < 0.9999 {
		t.Errorf("Centre ray %v should follow the view direction %v", ray.Direction, cam.Front())
	}

	if _, ok := ScreenToRay(cam, 0, 0, 0, 0); ok {
		t.Error("ScreenToRay should fail for an empty window")
	}
}

func TestRayIntersectPlane(t *testing.T) {
	hit, dist, p := RayIntersectPlane(Ray{Origin: mgl32.Vec3{0, 2, 0}, Direction: mgl32.Vec3{0, -1, 0}}, 0)
	if !hit || dist != 2 || p != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("Expected hit at origin after 2, got %v %f %v", hit, dist, p)
	}

	if hit, _, _ := RayIntersectPlane(Ray{Origin: mgl32.Vec3{0, 2, 0}, Direction: mgl32.Vec3{1, 0, 0}}, 0); hit {
		t.Error("A ray parallel to the plane should miss")
	}
	if hit, _, _ := RayIntersectPlane(Ray{Origin: mgl32.Vec3{0, 2, 0}, Direction: mgl32.Vec3{0, 1, 0}}, 0); hit {
		t.Error("A ray pointing away from the plane should miss")
	}
}

func TestRayIntersectBoxAxisAligned(t *testing.T) {
	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	near, far := RayIntersectBox(ray, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 2, 1})

	for _, v := range []float32{near, far} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("Box intersection should be finite, got near=%f far=%f", near, far)
		}
	}
	if math.Abs(float64(far-1)) > 1e-5 {
		t.Errorf("Expected exit at floor distance 1, got %f", far)
	}
	if near > 0 {
		t.Errorf("Origin inside the box should have a negative entry, got %f", near)
	}
}

func TestSphereHit(t *testing.T) {
	ray := Ray{Origin: mgl32.Vec3{0, 0, -3}, Direction: mgl32.Vec3{0, 0, 1}}

	if got := SphereHit(ray, mgl32.Vec3{}, 1); math.Abs(float64(got-2)) > 1e-5 {
		t.Errorf("Expected hit at 2, got %f", got)
	}
	if got := SphereHit(ray, mgl32.Vec3{5, 0, 0}, 1); got != NoHit {
		t.Errorf("Expected miss, got %f", got)
	}
	if got := SphereHit(Ray{Direction: mgl32.Vec3{0, 0, 1}}, mgl32.Vec3{}, 1); got != NoHit {
		t.Errorf("A ray starting inside should report no near hit, got %f", got)
	}

	hit, dist, _ := RayIntersectSphere(Ray{Direction: mgl32.Vec3{0, 0, 1}}, mgl32.Vec3{}, 1)
	if !hit || math.Abs(float64(dist-1)) > 1e-5 {
		t.Errorf("Picking from inside should hit the far side at 1, got %v %f", hit, dist)
	}
}
