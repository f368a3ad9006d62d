// Package ops defines operators: their definitions and arguments, the
// construction and execution contexts, and the registry a graph loader uses
// to instantiate them per device and element type.
package ops

import (
	"github.com/born-ml/opengine/internal/tensor"
)

// Argument names read by the built-in operators.
const (
	ArgActivation  = "activation"
	ArgMaxLimit    = "max_limit"
	ArgScalarInput = "scalar_input"
)

// ArgType tags which field of an Arg is set.
type ArgType int

// Argument value types.
const (
	ArgFloat ArgType = iota + 1
	ArgInt
	ArgString
	ArgFloats
	ArgInts
)

// Arg is a named operator argument.
type Arg struct {
	Name   string    // Argument name
	Type   ArgType   // Which value is set
	F      float32   // FLOAT value
	I      int64     // INT value
	S      string    // STRING value
	Floats []float32 // FLOATS array
	Ints   []int64   // INTS array
}

// FloatArg returns a float argument.
func FloatArg(name string, v float32) Arg { return Arg{Name: name, Type: ArgFloat, F: v} }

// IntArg returns an integer argument.
func IntArg(name string, v int64) Arg { return Arg{Name: name, Type: ArgInt, I: v} }

// StringArg returns a string argument.
func StringArg(name, v string) Arg { return Arg{Name: name, Type: ArgString, S: v} }

// OperatorDef describes one operator instance in a graph.
type OperatorDef struct {
	Name    string          // Instance name (optional)
	Type    string          // Operator type, e.g. "Activation"
	Inputs  []string        // Input tensor names
	Outputs []string        // Output tensor names
	Args    []Arg           // Operator arguments
	DType   tensor.DataType // Element type the operator computes in
}

func (d *OperatorDef) arg(name string) (*Arg, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Args {
		if d.Args[i].Name == name {
			return &d.Args[i], true
		}
	}
	return nil, false
}

// HasArg reports whether an argument called name is present.
func (d *OperatorDef) HasArg(name string) bool {
	_, ok := d.arg(name)
	return ok
}

// GetArgString returns a string argument or defaultVal.
func (d *OperatorDef) GetArgString(name, defaultVal string) string {
	if a, ok := d.arg(name); ok {
		return a.S
	}
	return defaultVal
}

// GetArgFloat returns a float argument or defaultVal. Integer arguments
// are converted.
func (d *OperatorDef) GetArgFloat(name string, defaultVal float32) float32 {
	a, ok := d.arg(name)
	if !ok {
		return defaultVal
	}
	if a.Type == ArgInt {
		return float32(a.I)
	}
	return a.F
}

// GetArgInt returns an integer argument or defaultVal.
func (d *OperatorDef) GetArgInt(name string, defaultVal int64) int64 {
	if a, ok := d.arg(name); ok {
		return a.I
	}
	return defaultVal
}

// GetArgFloats returns a float array argument.
func (d *OperatorDef) GetArgFloats(name string) []float32 {
	if a, ok := d.arg(name); ok {
		return a.Floats
	}
	return nil
}

// GetArgInts returns an integer array argument.
func (d *OperatorDef) GetArgInts(name string) []int64 {
	if a, ok := d.arg(name); ok {
		return a.Ints
	}
	return nil
}
