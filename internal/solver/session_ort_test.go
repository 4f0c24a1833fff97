package solver

import "testing"

func TestCheckModelIO(t *testing.T) {
	goodIn := ioSpec{Name: "input", Dims: []int64{1, 3, 32, 128}, Tensor: true, Float: true}
	goodOut := ioSpec{Name: "output", Dims: []int64{1, 26, 95}, Tensor: true, Float: true}

	in, out, err := checkModelIO([]ioSpec{goodIn}, []ioSpec{goodOut})
	if err != nil {
		t.Fatalf("valid model rejected: %v", err)
	}
	if in.Name != "input" || out.Name != "output" {
		t.Fatalf("in=%s out=%s", in.Name, out.Name)
	}

	cases := map[string]struct {
		in  []ioSpec
		out []ioSpec
	}{
		"no inputs":        {nil, []ioSpec{goodOut}},
		"two inputs":       {[]ioSpec{goodIn, goodIn}, []ioSpec{goodOut}},
		"no outputs":       {[]ioSpec{goodIn}, nil},
		"int input":        {[]ioSpec{{Name: "i", Dims: goodIn.Dims, Tensor: true}}, []ioSpec{goodOut}},
		"rank 3 input":     {[]ioSpec{{Name: "i", Dims: []int64{3, 32, 128}, Tensor: true, Float: true}}, []ioSpec{goodOut}},
		"one channel":      {[]ioSpec{{Name: "i", Dims: []int64{1, 1, 32, 128}, Tensor: true, Float: true}}, []ioSpec{goodOut}},
		"sequence output":  {[]ioSpec{goodIn}, []ioSpec{{Name: "o", Dims: goodOut.Dims, Float: true}}},
		"rank 2 output":    {[]ioSpec{goodIn}, []ioSpec{{Name: "o", Dims: []int64{1, 95}, Tensor: true, Float: true}}},
	}
	for name, c := range cases {
		if _, _, err := checkModelIO(c.in, c.out); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestCheckModelIODynamicBatchAndSize(t *testing.T) {
	in := ioSpec{Name: "x", Dims: []int64{-1, 3, -1, -1}, Tensor: true, Float: true}
	out := ioSpec{Name: "y", Dims: []int64{-1, 26, 95}, Tensor: true, Float: true}
	if _, _, err := checkModelIO([]ioSpec{in}, []ioSpec{out}); err != nil {
		t.Fatalf("dynamic batch rejected: %v", err)
	}
}

func TestCheckModelIODynamicOutputShape(t *testing.T) {
	in := ioSpec{Name: "x", Dims: []int64{1, 3, 32, 128}, Tensor: true, Float: true}
	for _, dims := range [][]int64{{1, -1, 95}, {1, 26, -1}, {-1, -1, -1}} {
		out := ioSpec{Name: "y", Dims: dims, Tensor: true, Float: true}
		if _, _, err := checkModelIO([]ioSpec{in}, []ioSpec{out}); err != nil {
			t.Fatalf("dims %v rejected: %v", dims, err)
		}
	}
}

func TestLogitsOutput(t *testing.T) {
	data := make([]float32, 2*3)
	data[4] = 7
	out, err := logitsOutput([]int64{1, 2, 3}, data)
	if err != nil {
		t.Fatalf("logitsOutput: %v", err)
	}
	if out.Steps != 2 || out.Classes != 3 || len(out.Data) != 6 || out.Data[4] != 7 {
		t.Fatalf("unexpected output %+v", out)
	}
	data[4] = 0
	if out.Data[4] != 7 {
		t.Fatalf("output aliases the tensor buffer")
	}

	bad := map[string][]int64{
		"rank 2":       {2, 3},
		"batch 2":      {2, 2, 3},
		"zero steps":   {1, 0, 3},
		"size differs": {1, 3, 3},
	}
	for name, shape := range bad {
		if _, err := logitsOutput(shape, data); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
