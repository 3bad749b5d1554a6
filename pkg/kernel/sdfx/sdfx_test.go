package sdfx

import (
	"math"
	"testing"
)

func TestBox(t *testing.T) {
	k := NewWithCells(64)
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.VertexCount() == 0 {
		t.Fatal("expected non-zero vertex count")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestCylinder(t *testing.T) {
	k := NewWithCells(64)
	cyl := k.Cylinder(50, 10, 32)
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestDifference(t *testing.T) {
	k := NewWithCells(64)

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	cyl := k.Cylinder(120, 20, 32)
	diff := k.Difference(box, cyl)
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.IsEmpty() {
		t.Fatal("difference mesh is empty")
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
	t.Logf("box triangles: %d, difference triangles: %d", boxMesh.TriangleCount(), diffMesh.TriangleCount())
}

func TestUnion(t *testing.T) {
	k := NewWithCells(64)
	box1 := k.Box(50, 50, 50)
	box2 := k.Translate(k.Box(50, 50, 50), 30, 0, 0)
	u := k.Union(box1, box2)
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
	t.Logf("union triangle count: %d", mesh.TriangleCount())
}

func TestTranslate(t *testing.T) {
	k := NewWithCells(64)
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	min, max := translated.BoundingBox()

	// Box(10,10,10) is centered, so the translated bounds are +-5 around the offset.
	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestBoundingBox(t *testing.T) {
	k := NewWithCells(64)
	box := k.Box(100, 50, 25)
	min, max := box.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestIntersection(t *testing.T) {
	k := NewWithCells(64)
	box1 := k.Box(100, 100, 100)
	box2 := k.Translate(k.Box(100, 100, 100), 50, 0, 0)
	inter := k.Intersection(box1, box2)
	mesh, err := k.ToMesh(inter)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("intersection mesh is empty")
	}
	t.Logf("intersection triangle count: %d", mesh.TriangleCount())
}

func TestSphere(t *testing.T) {
	k := NewWithCells(48)
	s := k.Sphere(2)
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]+2) > 1e-9 || math.Abs(max[i]-2) > 1e-9 {
			t.Errorf("axis %d bounds = [%f, %f], want [-2, 2]", i, min[i], max[i])
		}
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("sphere mesh is empty")
	}
	// Every vertex lies close to the surface.
	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		x, y, z := float64(mesh.Vertices[i]), float64(mesh.Vertices[i+1]), float64(mesh.Vertices[i+2])
		if r := math.Sqrt(x*x + y*y + z*z); math.Abs(r-2) > 0.2 {
			t.Fatalf("vertex %d at radius %f, want ~2", i/3, r)
		}
	}
}

func TestRotateAboutAxis(t *testing.T) {
	k := NewWithCells(48)
	// A cylinder along Z rotated 90 degrees about X lies along Y.
	cyl := k.Cylinder(10, 1, 16)
	rot := k.Rotate(cyl, [3]float64{1, 0, 0}, 90)
	min, max := rot.BoundingBox()

	const tol = 1e-6
	if math.Abs(max[1]-5) > tol || math.Abs(min[1]+5) > tol {
		t.Errorf("rotated Y extent = [%f, %f], want [-5, 5]", min[1], max[1])
	}
	if math.Abs(max[2]-1) > tol || math.Abs(min[2]+1) > tol {
		t.Errorf("rotated Z extent = [%f, %f], want [-1, 1]", min[2], max[2])
	}
}

func TestRotateDegenerateIsIdentity(t *testing.T) {
	k := New()
	box := k.Box(1, 2, 3)
	if got := k.Rotate(box, [3]float64{0, 0, 0}, 45); got != box {
		t.Error("zero axis should return the solid unchanged")
	}
	if got := k.Rotate(box, [3]float64{0, 1, 0}, 0); got != box {
		t.Error("zero angle should return the solid unchanged")
	}
}

func TestNewWithCells(t *testing.T) {
	if got := NewWithCells(0).Cells(); got != DefaultMeshCells {
		t.Errorf("NewWithCells(0).Cells() = %d, want %d", got, DefaultMeshCells)
	}
	if got := NewWithCells(32).Cells(); got != 32 {
		t.Errorf("NewWithCells(32).Cells() = %d, want 32", got)
	}

	// A coarser grid produces fewer triangles for the same solid.
	coarse, err := NewWithCells(16).ToMesh(New().Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh(coarse): %v", err)
	}
	fine, err := NewWithCells(64).ToMesh(New().Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh(fine): %v", err)
	}
	if coarse.TriangleCount() >= fine.TriangleCount() {
		t.Errorf("coarse %d triangles, fine %d: want coarse < fine", coarse.TriangleCount(), fine.TriangleCount())
	}
}
