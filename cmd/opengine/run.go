package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/logging"
	"github.com/born-ml/opengine/internal/opfile"
	"github.com/born-ml/opengine/internal/ops"
	"github.com/born-ml/opengine/internal/tensor"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// errExpectation is returned when outputs differ from the file's expect values.
var errExpectation = errors.New("outputs differ from expectations")

type runResult struct {
	Operator   string            `json:"operator"`
	Type       string            `json:"type"`
	Device     string            `json:"device"`
	DType      string            `json:"dtype"`
	Outputs    []outputResult    `json:"outputs"`
	DeviceTime time.Duration     `json:"device_time_ns,omitempty"`
	QueueDelay time.Duration     `json:"queue_delay_ns,omitempty"`
	Mismatches []opfile.Mismatch `json:"mismatches,omitempty"`
}

type outputResult struct {
	Name   string    `json:"name"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

func newRunCmd() *cobra.Command {
	var (
		device string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run <operator.yaml>",
		Short: "Run one operator described by a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("invalid --output %q (expected text or json)", output)
			}
			f, err := opfile.Load(args[0])
			if err != nil {
				return err
			}
			if device != "" {
				f.Device = device
			}

			res, err := runFile(cmd, f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else if err := writeText(w, res); err != nil {
				return err
			}

			if len(res.Mismatches) > 0 {
				return fmt.Errorf("%w: %d values", errExpectation, len(res.Mismatches))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "Override the device named in the file (cpu|simd|gpu)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")

	return cmd
}

func runFile(cmd *cobra.Command, f *opfile.File) (*runResult, error) {
	fallback, err := activeCfg.Device()
	if err != nil {
		return nil, err
	}
	dev, err := f.TargetDevice(fallback)
	if err != nil {
		return nil, err
	}
	def, err := f.Def()
	if err != nil {
		return nil, err
	}

	construct := ops.ConstructContext{Device: dev, Parallel: activeCfg.Parallel()}
	if dev == tensor.GPU {
		rt, err := activeCfg.OpenRuntime()
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := rt.Close(); cerr != nil {
				logging.Component("cli").WithError(cerr).Warn("close runtime")
			}
		}()
		construct.Runtime = rt
	}

	op, err := ops.NewBuiltinRegistry().CreateOperation(def, construct)
	if err != nil {
		return nil, err
	}
	inputs, outputs, err := f.Tensors(dev)
	if err != nil {
		return nil, err
	}

	fut := &future.Future{}
	ctx := cmd.Context()
	if err := op.Run(&ops.OpContext{Context: ctx, Inputs: inputs, Outputs: outputs, Future: fut}); err != nil {
		return nil, err
	}
	if err := fut.Wait(ctx); err != nil {
		return nil, err
	}

	res := &runResult{
		Operator: def.Name,
		Type:     def.Type,
		Device:   dev.String(),
		DType:    def.DType.String(),
	}
	if stats, ok := fut.Stats(); ok {
		res.DeviceTime = stats.Duration()
		res.QueueDelay = stats.QueueDelay()
	}
	for i, out := range outputs {
		res.Outputs = append(res.Outputs, outputResult{
			Name:   f.Outputs[i].Name,
			Shape:  out.Shape(),
			Values: opfile.Values(out),
		})
	}
	res.Mismatches = f.Check(outputs)

	logging.Component("cli").WithFields(logrus.Fields{
		"op":     def.Type,
		"device": res.Device,
		"dtype":  res.DType,
	}).Debug("operator finished")
	return res, nil
}

func writeText(w io.Writer, res *runResult) error {
	if _, err := fmt.Fprintf(w, "%s %q on %s (%s)\n", res.Type, res.Operator, res.Device, res.DType); err != nil {
		return err
	}
	for _, out := range res.Outputs {
		if _, err := fmt.Fprintf(w, "%s %v: %v\n", out.Name, out.Shape, out.Values); err != nil {
			return err
		}
	}
	if res.DeviceTime > 0 {
		if _, err := fmt.Fprintf(w, "device time %s (queued %s)\n", res.DeviceTime, res.QueueDelay); err != nil {
			return err
		}
	}
	for _, m := range res.Mismatches {
		if _, err := fmt.Fprintf(w, "mismatch %s[%d]: got %g, want %g\n", m.Output, m.Index, m.Got, m.Want); err != nil {
			return err
		}
	}
	return nil
}
