package ops

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/born-ml/opengine/internal/logging"
	"github.com/born-ml/opengine/internal/tensor"
	"github.com/sirupsen/logrus"
)

// OpCreator builds an operator from its construction context.
type OpCreator func(c *ConstructContext) (Operator, error)

// OpKey selects a creator: operator name, device and element type.
type OpKey struct {
	Name   string
	Device tensor.Device
	DType  tensor.DataType
}

// String returns "Name/DEVICE/dtype".
func (k OpKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Name, k.Device, k.DType)
}

// OpRegistry maps operator keys to creators.
type OpRegistry struct {
	creators map[OpKey]OpCreator
	log      *logrus.Entry
}

// NewOpRegistry creates an empty registry.
func NewOpRegistry() *OpRegistry {
	return &OpRegistry{
		creators: make(map[OpKey]OpCreator),
		log:      logging.Component("ops"),
	}
}

// Register adds creator under (name, device, dtype). Registering the same
// key twice is an error.
func (r *OpRegistry) Register(name string, device tensor.Device, dtype tensor.DataType, creator OpCreator) error {
	key := OpKey{Name: name, Device: device, DType: dtype}
	if creator == nil {
		return fmt.Errorf("%w: nil creator for %s", ErrInvalidConfiguration, key)
	}
	if _, ok := r.creators[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, key)
	}
	r.creators[key] = creator
	r.log.WithField("key", key.String()).Debug("operator registered")
	return nil
}

// Register adds creator to registry for one device and element type.
func Register(registry *OpRegistry, name string, creator OpCreator, device tensor.Device, dtype tensor.DataType) error {
	return registry.Register(name, device, dtype, creator)
}

// Lookup returns the creator for key.
func (r *OpRegistry) Lookup(key OpKey) (OpCreator, bool) {
	c, ok := r.creators[key]
	return c, ok
}

// CreateOperation instantiates def on the device selected by c. The element
// type comes from def.DType.
func (r *OpRegistry) CreateOperation(def *OperatorDef, c ConstructContext) (Operator, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil operator definition", ErrInvalidConfiguration)
	}
	key := OpKey{Name: def.Type, Device: c.Device, DType: def.DType}
	creator, ok := r.creators[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregistered, key)
	}
	c.Def = def
	op, err := creator(&c)
	if err != nil {
		return nil, fmt.Errorf("create %s %q: %w", key, def.Name, err)
	}
	r.log.WithFields(logrus.Fields{"key": key.String(), "name": def.Name}).Debug("operator created")
	return op, nil
}

// Keys returns every registered key, sorted by name, device, then dtype.
func (r *OpRegistry) Keys() []OpKey {
	keys := make([]OpKey, 0, len(r.creators))
	for k := range r.creators {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b OpKey) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Device, b.Device),
			cmp.Compare(a.DType, b.DType),
		)
	})
	return keys
}

// RegisterBuiltins registers the activation and LSTM cell operators:
//
//	Activation  CPU {float32, float64}, SIMD {float32, float64}, GPU {float32}
//	LSTMCell    GPU {float32}
func RegisterBuiltins(r *OpRegistry) error {
	entries := []struct {
		name    string
		device  tensor.Device
		dtype   tensor.DataType
		creator OpCreator
	}{
		{OpActivation, tensor.CPU, tensor.Float32, NewActivationOp},
		{OpActivation, tensor.CPU, tensor.Float64, NewActivationOp},
		{OpActivation, tensor.SIMD, tensor.Float32, NewActivationOp},
		{OpActivation, tensor.SIMD, tensor.Float64, NewActivationOp},
		{OpActivation, tensor.GPU, tensor.Float32, NewActivationOp},
		{OpLSTMCell, tensor.GPU, tensor.Float32, NewLSTMCellOp},
	}
	for _, e := range entries {
		if err := r.Register(e.name, e.device, e.dtype, e.creator); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding the built-in operators.
func NewBuiltinRegistry() *OpRegistry {
	r := NewOpRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// The builtin table has no duplicate keys.
		panic(err)
	}
	return r
}
