package vector_test

import (
	"math"
	"testing"

	"github.com/cobars/cobars/vector"
)

func TestCholeskySolveIdentity(t *testing.T) {
	m := vector.NewSymMatrix(3)
	m.AddIdentity(2)

	b := []float64{2, 4, 6}
	m.Cholesky()
	m.CholeskySolve(b)

	want := []float64{1, 2, 3}
	for i := range want {
		if math.Abs(b[i]-want[i]) > 1e-9 {
			t.Fatalf("CholeskySolve(2I): got %v want %v", b, want)
		}
	}
}

func TestCholeskySolveGeneralSPD(t *testing.T) {
	// A = [[4,1],[1,3]] (upper triangle only), solve A x = [1, 2].
	m := vector.NewSymMatrix(2)
	m.Data[0] = 4
	m.Data[1] = 1
	m.Data[3] = 3

	x := []float64{1, 2}
	m.Cholesky()
	m.CholeskySolve(x)

	// Verify A x = b by reconstructing A from the original values.
	a00, a01, a11 := 4.0, 1.0, 3.0
	b0 := a00*x[0] + a01*x[1]
	b1 := a01*x[0] + a11*x[1]

	if math.Abs(b0-1) > 1e-9 || math.Abs(b1-2) > 1e-9 {
		t.Fatalf("CholeskySolve did not solve the system: got residual (%v,%v)", b0-1, b1-2)
	}
}

func TestRankOneUpdate(t *testing.T) {
	m := vector.NewSymMatrix(2)
	v := []float64{1, 2}
	m.RankOneUpdate(v, 3)

	// 3 * [1,2]x[1,2]^T = [[3,6],[6,12]]; only upper triangle stored.
	if m.Data[0] != 3 || m.Data[1] != 6 || m.Data[3] != 12 {
		t.Fatalf("RankOneUpdate: got %v", m.Data)
	}
}

func TestMatVec(t *testing.T) {
	m := vector.NewSymMatrix(2)
	m.Data[0] = 2
	m.Data[1] = 1
	m.Data[3] = 3

	dst := make([]float64, 2)
	m.MatVec(dst, []float64{1, 1})

	if math.Abs(dst[0]-3) > 1e-12 || math.Abs(dst[1]-4) > 1e-12 {
		t.Fatalf("MatVec: got %v want [3 4]", dst)
	}
}
