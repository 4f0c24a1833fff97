package solver

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// fakeRunner emits one-hot logits spelling ids, followed by EOS.
type fakeRunner struct {
	ids     []int
	classes int
	shape   []int64
	runErr  error
	runs    atomic.Int64
	closed  atomic.Bool
}

func (f *fakeRunner) Run(input []float32, shape []int64) (Output, error) {
	f.runs.Add(1)
	if f.runErr != nil {
		return Output{}, f.runErr
	}
	if want := 3 * int(shape[2]) * int(shape[3]); len(input) != want {
		return Output{}, errors.New("unexpected input length")
	}
	steps := len(f.ids) + 1
	data := make([]float32, steps*f.classes)
	for s, id := range f.ids {
		data[s*f.classes+id] = 10
	}
	data[len(f.ids)*f.classes] = 10
	return Output{Data: data, Steps: steps, Classes: f.classes}, nil
}

func (f *fakeRunner) Close() error {
	f.closed.Store(true)
	return nil
}

type shapedRunner struct {
	*fakeRunner
	in []int64
}

func (s shapedRunner) InputShape() []int64 { return s.in }

// ab3K9 in the default class table.
var ab3K9 = []int{11, 12, 4, 47, 10}

func newFake() *fakeRunner { return &fakeRunner{ids: ab3K9, classes: 97} }

func loaderFor(r Runner) Loader { return func(string) (Runner, error) { return r, nil } }

func writeModel(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "captcha.onnx")
	if err := os.WriteFile(p, []byte("onnx"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 160, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}
