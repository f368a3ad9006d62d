package gpu

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/born-ml/opengine/internal/kernels"
	"github.com/born-ml/opengine/internal/parallel"
)

// Program names known to every runtime.
const (
	ProgramActivation = "activation"
	ProgramLSTMCell   = "lstmcell"
)

// hostKernel is the software-runtime implementation of a program.
type hostKernel func(defines []string, d *Dispatch, cfg parallel.Config) error

type programSource struct {
	template string
	defines  func(defines []string) error
	host     hostKernel
}

var programSources = map[string]programSource{
	ProgramActivation: {template: activationShader, defines: checkActivationDefines, host: runActivation},
	ProgramLSTMCell:   {template: lstmCellShader, defines: checkNoDefines, host: runLSTMCell},
}

// activationDefines maps each kind to its program build option.
var activationDefines = map[kernels.ActivationKind]string{
	kernels.None:           "",
	kernels.ReLU:           "USE_RELU",
	kernels.BoundedReLU:    "USE_RELUX",
	kernels.ParametricReLU: "USE_PRELU",
	kernels.Tanh:           "USE_TANH",
	kernels.Sigmoid:        "USE_SIGMOID",
}

// ActivationDefines returns the build options selecting kind's program variant.
func ActivationDefines(kind kernels.ActivationKind) ([]string, error) {
	def, ok := activationDefines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kernels.ErrUnknownActivation, kind)
	}
	if def == "" {
		return nil, nil
	}
	return []string{def}, nil
}

func activationKindOf(defines []string) (kernels.ActivationKind, error) {
	if len(defines) == 0 {
		return kernels.None, nil
	}
	for kind, def := range activationDefines {
		if def != "" && def == defines[0] {
			return kind, nil
		}
	}
	return kernels.None, fmt.Errorf("unknown activation define %q", defines[0])
}

func checkActivationDefines(defines []string) error {
	if len(defines) > 1 {
		return fmt.Errorf("activation takes one define, got %v", defines)
	}
	_, err := activationKindOf(defines)
	return err
}

func checkNoDefines(defines []string) error {
	if len(defines) != 0 {
		return fmt.Errorf("unexpected defines %v", defines)
	}
	return nil
}

// ShaderSource returns the WGSL text of program name built with defines and
// the given work-group size.
func ShaderSource(name string, workGroupSize uint32, defines ...string) (string, error) {
	src, ok := programSources[name]
	if !ok {
		return "", fmt.Errorf("unknown program %q", name)
	}
	if err := src.defines(defines); err != nil {
		return "", fmt.Errorf("program %s: %w", name, err)
	}
	code := strings.ReplaceAll(src.template, placeholderWorkGroup, strconv.FormatUint(uint64(workGroupSize), 10))
	if name == ProgramActivation {
		var def string
		if len(defines) > 0 {
			def = defines[0]
		}
		code = strings.ReplaceAll(code, placeholderActivation, activationBodies[def])
	}
	return code, nil
}

// ActivationParams packs the activation uniform block.
func ActivationParams(size, channels int, limit float32) []uint32 {
	return []uint32{uint32(size), uint32(channels), F32(limit), 0}
}

// LSTMParams packs the LSTM-cell uniform block.
func LSTMParams(d kernels.LSTMDims, forgetBias float32) []uint32 {
	return []uint32{uint32(d.Batch), uint32(d.InputSize), uint32(d.Units), F32(forgetBias)}
}

func paramWords(d *Dispatch, n int) error {
	if len(d.Params) < n {
		return fmt.Errorf("%s: want %d parameter words, got %d", d.Label, n, len(d.Params))
	}
	return nil
}

// runActivation binds input, alpha -> output.
func runActivation(defines []string, d *Dispatch, cfg parallel.Config) error {
	if len(d.Inputs) != 2 || len(d.Outputs) != 1 {
		return fmt.Errorf("%s: activation binds 2 inputs and 1 output, got %d and %d", d.Label, len(d.Inputs), len(d.Outputs))
	}
	if err := paramWords(d, 3); err != nil {
		return err
	}
	kind, err := activationKindOf(defines)
	if err != nil {
		return err
	}
	size, channels := int(d.Params[0]), int(d.Params[1])
	limit := math.Float32frombits(d.Params[2])
	if size > len(d.Outputs[0]) {
		return fmt.Errorf("%w: size %d exceeds output of %d", kernels.ErrShapeMismatch, size, len(d.Outputs[0]))
	}
	input, output := d.Inputs[0], d.Outputs[0][:size]

	if kind == kernels.ParametricReLU {
		if channels <= 0 || size%channels != 0 {
			return fmt.Errorf("%w: %d elements over %d channels", kernels.ErrShapeMismatch, size, channels)
		}
		return kernels.PReLU(input, size/channels, channels, 1, d.Inputs[1], output, cfg)
	}
	return kernels.DoActivation(input, output, kind, limit, cfg)
}

// runLSTMCell binds input, pre_output, weight, bias, pre_cell -> cell, output.
func runLSTMCell(_ []string, d *Dispatch, cfg parallel.Config) error {
	if len(d.Inputs) != 5 || len(d.Outputs) != 2 {
		return fmt.Errorf("%s: lstm binds 5 inputs and 2 outputs, got %d and %d", d.Label, len(d.Inputs), len(d.Outputs))
	}
	if err := paramWords(d, 4); err != nil {
		return err
	}
	dims := kernels.LSTMDims{Batch: int(d.Params[0]), InputSize: int(d.Params[1]), Units: int(d.Params[2])}
	forgetBias := math.Float32frombits(d.Params[3])
	in := d.Inputs
	return kernels.LSTMCell(in[0], in[1], in[2], in[3], in[4], d.Outputs[0], d.Outputs[1], dims, forgetBias, cfg)
}
