package tensor_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/FelixBenning/DeepOBS/backend/cpu"
	"github.com/FelixBenning/DeepOBS/tensor"
)

func fromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	ts, err := tensor.FromSlice(data, shape, cpu.New())
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func assertValues(t *testing.T, got *tensor.Tensor[float32, *cpu.CPUBackend], want []float32) {
	t.Helper()
	data := got.Data()
	if len(data) != len(want) {
		t.Fatalf("got %d elements, want %d", len(data), len(want))
	}
	for i := range want {
		if math.Abs(float64(data[i]-want[i])) > 1e-5 {
			t.Fatalf("element %d = %v, want %v (all: %v)", i, data[i], want[i], data)
		}
	}
}

func TestFromSlice(t *testing.T) {
	ts := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	if !ts.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v", ts.Shape())
	}
	if got := ts.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %v, want 6", got)
	}

	_, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{3}, cpu.New())
	if err == nil {
		t.Error("expected error for mismatched element count")
	}
}

func TestSetAndClone(t *testing.T) {
	ts := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	clone := ts.Clone()
	ts.Set(9, 0, 1)
	if got := ts.At(0, 1); got != 9 {
		t.Errorf("At(0,1) = %v after Set, want 9", got)
	}
	if got := clone.At(0, 1); got != 2 {
		t.Errorf("clone modified by Set on original: At(0,1) = %v", got)
	}
}

func TestElementwise(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, []float32{4, 3, 2, 1}, tensor.Shape{2, 2})

	assertValues(t, a.Add(b), []float32{5, 5, 5, 5})
	assertValues(t, a.Sub(b), []float32{-3, -1, 1, 3})
	assertValues(t, a.Mul(b), []float32{4, 6, 6, 4})
	assertValues(t, a.Div(b), []float32{0.25, 2.0 / 3, 1.5, 4})
	assertValues(t, a.AddScalar(10), []float32{11, 12, 13, 14})
	assertValues(t, a.MulScalar(-2), []float32{-2, -4, -6, -8})
}

func TestRsqrt(t *testing.T) {
	x := fromSlice(t, []float32{1, 4, 16, 64}, tensor.Shape{4})
	assertValues(t, x.Rsqrt(), []float32{1, 0.5, 0.25, 0.125})
}

func TestBroadcastAdd(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	row := fromSlice(t, []float32{10, 20, 30}, tensor.Shape{3})
	assertValues(t, a.Add(row), []float32{11, 22, 33, 14, 25, 36})

	col := fromSlice(t, []float32{100, 200}, tensor.Shape{2, 1})
	assertValues(t, a.Add(col), []float32{101, 102, 103, 204, 205, 206})
}

func TestMatMul(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})
	c := a.MatMul(b)
	if !c.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("shape = %v, want [2 2]", c.Shape())
	}
	assertValues(t, c, []float32{58, 64, 139, 154})
}

func TestReshape(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := a.Reshape(3, 2)
	if !b.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", b.Shape())
	}
	assertValues(t, b, []float32{1, 2, 3, 4, 5, 6})

	c := a.Reshape(-1, 2)
	if !c.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("inferred shape = %v, want [3 2]", c.Shape())
	}
}

func TestTranspose(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	at := a.T()
	if !at.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", at.Shape())
	}
	assertValues(t, at, []float32{1, 4, 2, 5, 3, 6})
}

func TestExpand(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3}, tensor.Shape{1, 3})
	b := a.Expand(2, 3)
	if !b.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v, want [2 3]", b.Shape())
	}
	assertValues(t, b, []float32{1, 2, 3, 1, 2, 3})
}

func TestReductions(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	sum := a.Sum()
	if !sum.Shape().Equal(tensor.Shape{1}) {
		t.Fatalf("Sum shape = %v, want [1]", sum.Shape())
	}
	if got := sum.Item(); got != 21 {
		t.Errorf("Sum = %v, want 21", got)
	}
	if got := a.Mean().Item(); got != 3.5 {
		t.Errorf("Mean = %v, want 3.5", got)
	}

	rows := a.SumDim(1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("SumDim shape = %v, want [2]", rows.Shape())
	}
	assertValues(t, rows, []float32{6, 15})

	cols := a.SumDim(0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("SumDim keepDim shape = %v, want [1 3]", cols.Shape())
	}
	assertValues(t, cols, []float32{5, 7, 9})

	assertValues(t, a.MeanDim(-1, false), []float32{2, 5})
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	z := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)
	assertValues(t, z, []float32{0, 0, 0, 0})

	o := tensor.Ones[float32](tensor.Shape{3}, backend)
	assertValues(t, o, []float32{1, 1, 1})

	f := tensor.Full[float32](tensor.Shape{2}, 7, backend)
	assertValues(t, f, []float32{7, 7})

	labels := tensor.Zeros[int32](tensor.Shape{4}, backend)
	if labels.DType() != tensor.Int32 {
		t.Errorf("dtype = %v, want Int32", labels.DType())
	}
}

func TestRandnSeeded(t *testing.T) {
	backend := cpu.New()

	a := tensor.Randn(tensor.Shape{100}, 0.5, rand.New(rand.NewSource(1)), backend)
	b := tensor.Randn(tensor.Shape{100}, 0.5, rand.New(rand.NewSource(1)), backend)
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatal("same seed produced different values")
		}
	}

	c := tensor.Randn(tensor.Shape{100}, 0.5, rand.New(rand.NewSource(2)), backend)
	same := true
	for i := range a.Data() {
		if a.Data()[i] != c.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical values")
	}
}
