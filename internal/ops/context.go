package ops

import (
	"context"

	"github.com/born-ml/opengine/internal/backend/gpu"
	"github.com/born-ml/opengine/internal/future"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
)

// ConstructContext carries what an operator needs when it is created.
type ConstructContext struct {
	Def      *OperatorDef
	Device   tensor.Device
	Runtime  gpu.Runtime     // Required for GPU operators
	Parallel parallel.Config // Host loop splitting
}

// OpContext carries the tensors of one operator invocation. Tensors are
// borrowed for the call; GPU operators keep using them until Future
// completes.
type OpContext struct {
	Context context.Context
	Inputs  []*tensor.RawTensor
	Outputs []*tensor.RawTensor
	Future  *future.Future // Populated by asynchronous operators; may be nil
}

func (c *OpContext) ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// input returns input i, or nil when absent.
func (c *OpContext) input(i int) *tensor.RawTensor {
	if i < len(c.Inputs) {
		return c.Inputs[i]
	}
	return nil
}

// Operator is an instantiated operator bound to a device.
type Operator interface {
	Def() *OperatorDef
	Run(c *OpContext) error
}
