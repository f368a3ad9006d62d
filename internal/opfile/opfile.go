// Package opfile reads operator files: YAML documents that describe one
// operator invocation (definition, device, element type and tensors) so it
// can be run outside a graph.
//
//	name: relu6
//	type: Activation
//	device: simd
//	dtype: float32
//	args:
//	  activation: RELUX
//	  max_limit: 6
//	inputs:
//	  - name: x
//	    shape: [1, 2, 2, 1]
//	    data: [-1, 2, 7, 0.5]
//	outputs:
//	  - name: y
//	    shape: [1, 2, 2, 1]
//	    expect: [0, 2, 6, 0.5]
package opfile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/born-ml/opengine/internal/ops"
	"github.com/born-ml/opengine/internal/tensor"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned for operator files that do not describe a
// runnable operator.
var ErrInvalidFile = errors.New("invalid operator file")

// DefaultTolerance is the absolute tolerance used when a file sets none.
const DefaultTolerance = 1e-5

// File is a decoded operator file.
type File struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	Device    string         `yaml:"device"`
	DType     string         `yaml:"dtype"`
	Args      map[string]any `yaml:"args"`
	Inputs    []TensorSpec   `yaml:"inputs"`
	Outputs   []TensorSpec   `yaml:"outputs"`
	Tolerance float64        `yaml:"tolerance"`
}

// TensorSpec describes one tensor. Inputs carry Data; outputs may carry
// Expect.
type TensorSpec struct {
	Name   string    `yaml:"name"`
	Shape  []int     `yaml:"shape"`
	Data   []float64 `yaml:"data,omitempty"`
	Expect []float64 `yaml:"expect,omitempty"`
}

// Load reads and parses the operator file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operator file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates an operator file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Type == "" {
		return fmt.Errorf("%w: missing operator type", ErrInvalidFile)
	}
	if len(f.Outputs) == 0 {
		return fmt.Errorf("%w: %s declares no outputs", ErrInvalidFile, f.Type)
	}
	if _, err := f.ElementType(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	for _, in := range f.Inputs {
		if err := tensor.Shape(in.Shape).Validate(); err != nil {
			return fmt.Errorf("%w: input %q: %w", ErrInvalidFile, in.Name, err)
		}
		if n := tensor.Shape(in.Shape).NumElements(); len(in.Data) != n {
			return fmt.Errorf("%w: input %q has %d values for shape %v", ErrInvalidFile, in.Name, len(in.Data), in.Shape)
		}
	}
	for _, out := range f.Outputs {
		if len(out.Shape) == 0 {
			return fmt.Errorf("%w: output %q has no shape", ErrInvalidFile, out.Name)
		}
		if err := tensor.Shape(out.Shape).Validate(); err != nil {
			return fmt.Errorf("%w: output %q: %w", ErrInvalidFile, out.Name, err)
		}
		if n := tensor.Shape(out.Shape).NumElements(); out.Expect != nil && len(out.Expect) != n {
			return fmt.Errorf("%w: output %q expects %d values for shape %v", ErrInvalidFile, out.Name, len(out.Expect), out.Shape)
		}
	}
	return nil
}

// ElementType returns the declared dtype, float32 when unset.
func (f *File) ElementType() (tensor.DataType, error) {
	if f.DType == "" {
		return tensor.Float32, nil
	}
	return tensor.ParseDataType(f.DType)
}

// TargetDevice returns the declared device, or fallback when unset.
func (f *File) TargetDevice(fallback tensor.Device) (tensor.Device, error) {
	if f.Device == "" {
		return fallback, nil
	}
	return tensor.ParseDevice(f.Device)
}

// Def converts the file into an operator definition. Arguments are sorted
// by name.
func (f *File) Def() (*ops.OperatorDef, error) {
	dtype, err := f.ElementType()
	if err != nil {
		return nil, err
	}
	def := &ops.OperatorDef{Name: f.Name, Type: f.Type, DType: dtype}
	for _, in := range f.Inputs {
		def.Inputs = append(def.Inputs, in.Name)
	}
	for _, out := range f.Outputs {
		def.Outputs = append(def.Outputs, out.Name)
	}

	names := make([]string, 0, len(f.Args))
	for name := range f.Args {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		arg, err := convertArg(name, f.Args[name])
		if err != nil {
			return nil, err
		}
		def.Args = append(def.Args, arg)
	}
	return def, nil
}

func convertArg(name string, v any) (ops.Arg, error) {
	switch x := v.(type) {
	case string:
		return ops.StringArg(name, x), nil
	case int:
		return ops.IntArg(name, int64(x)), nil
	case float64:
		return ops.FloatArg(name, float32(x)), nil
	case bool:
		if x {
			return ops.IntArg(name, 1), nil
		}
		return ops.IntArg(name, 0), nil
	case []any:
		return convertList(name, x)
	default:
		return ops.Arg{}, fmt.Errorf("%w: argument %q has unsupported type %T", ErrInvalidFile, name, v)
	}
}

// convertList maps a list of ints to INTS and any list containing a float
// to FLOATS.
func convertList(name string, items []any) (ops.Arg, error) {
	ints := make([]int64, 0, len(items))
	floats := make([]float32, 0, len(items))
	allInts := true
	for _, item := range items {
		switch x := item.(type) {
		case int:
			ints = append(ints, int64(x))
			floats = append(floats, float32(x))
		case float64:
			allInts = false
			floats = append(floats, float32(x))
		default:
			return ops.Arg{}, fmt.Errorf("%w: argument %q holds %T", ErrInvalidFile, name, item)
		}
	}
	if allInts {
		return ops.Arg{Name: name, Type: ops.ArgInts, Ints: ints}, nil
	}
	return ops.Arg{Name: name, Type: ops.ArgFloats, Floats: floats}, nil
}

// Tensors allocates the input tensors (filled from Data) and zeroed output
// tensors on device.
func (f *File) Tensors(device tensor.Device) (inputs, outputs []*tensor.RawTensor, err error) {
	dtype, err := f.ElementType()
	if err != nil {
		return nil, nil, err
	}
	for _, in := range f.Inputs {
		raw, err := newTensor(in.Shape, dtype, device)
		if err != nil {
			return nil, nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		if err := fill(raw, in.Data); err != nil {
			return nil, nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		inputs = append(inputs, raw)
	}
	for _, out := range f.Outputs {
		raw, err := newTensor(out.Shape, dtype, device)
		if err != nil {
			return nil, nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		outputs = append(outputs, raw)
	}
	return inputs, outputs, nil
}

func newTensor(shape []int, dtype tensor.DataType, device tensor.Device) (*tensor.RawTensor, error) {
	return tensor.NewRaw(tensor.Shape(shape), dtype, device)
}

func fill(raw *tensor.RawTensor, data []float64) error {
	switch raw.DType() {
	case tensor.Float32:
		dst := raw.AsFloat32()
		for i, v := range data {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		copy(raw.AsFloat64(), data)
	default:
		return fmt.Errorf("cannot fill %s tensor", raw.DType())
	}
	return nil
}

// Values returns the elements of a float tensor as float64.
func Values(raw *tensor.RawTensor) []float64 {
	switch raw.DType() {
	case tensor.Float32:
		src := raw.AsFloat32()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	case tensor.Float64:
		return slices.Clone(raw.AsFloat64())
	default:
		return nil
	}
}

// Mismatch is one output element that differs from its expectation.
type Mismatch struct {
	Output string  `json:"output"`
	Index  int     `json:"index"`
	Got    float64 `json:"got"`
	Want   float64 `json:"want"`
}

// Check compares outputs against the Expect values of the file and returns
// every element outside the tolerance.
func (f *File) Check(outputs []*tensor.RawTensor) []Mismatch {
	tol := f.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	var bad []Mismatch
	for i, out := range f.Outputs {
		if out.Expect == nil || i >= len(outputs) {
			continue
		}
		got := Values(outputs[i])
		for j, want := range out.Expect {
			if j >= len(got) || math.Abs(got[j]-want) > tol || math.IsNaN(got[j]) {
				g := math.NaN()
				if j < len(got) {
					g = got[j]
				}
				bad = append(bad, Mismatch{Output: out.Name, Index: j, Got: g, Want: want})
			}
		}
	}
	return bad
}
