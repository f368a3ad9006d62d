package gpu

// WGSL compute programs. Each template is specialised at build time by
// substituting its placeholders; the build options of a program are part
// of its cache key.

// defaultWorkGroupSize is the local size programs are compiled with.
const defaultWorkGroupSize = 256

const (
	placeholderWorkGroup  = "{{WORKGROUP_SIZE}}"
	placeholderActivation = "{{ACTIVATION}}"
)

// activationShader applies one activation per element. Bindings:
// input, alpha (per channel, PRELU only), output, params.
const activationShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> alpha: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    channels: u32,
    limit: f32,
    pad: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size({{WORKGROUP_SIZE}})
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.size) {
        return;
    }
    _ = alpha[0];
    let x = input[idx];
    {{ACTIVATION}}
}
`

// Per-kind bodies for activationShader. Tanh keeps the exp(-2x) form; the
// exponent is clamped so f32 overflow saturates to -1 instead of NaN.
var activationBodies = map[string]string{
	"":            `result[idx] = x;`,
	"USE_RELU":    `result[idx] = max(x, 0.0);`,
	"USE_RELUX":   `result[idx] = min(max(x, 0.0), params.limit);`,
	"USE_PRELU":   `result[idx] = select(x, x * alpha[idx % params.channels], x < 0.0);`,
	"USE_TANH":    `let e = exp(min(-2.0 * x, 80.0)); result[idx] = (1.0 - e) / (1.0 + e);`,
	"USE_SIGMOID": `result[idx] = 1.0 / (1.0 + exp(-x));`,
}

// lstmCellShader computes one LSTM step per (batch, unit) work item.
// Bindings: input, pre_output, weight, bias, pre_cell, cell, output, params.
// Gate order inside the 4*units block is input, cell, forget, output.
const lstmCellShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> pre_output: array<f32>;
@group(0) @binding(2) var<storage, read> weight: array<f32>;
@group(0) @binding(3) var<storage, read> bias: array<f32>;
@group(0) @binding(4) var<storage, read> pre_cell: array<f32>;
@group(0) @binding(5) var<storage, read_write> cell: array<f32>;
@group(0) @binding(6) var<storage, read_write> result: array<f32>;

struct Params {
    batch: u32,
    input_size: u32,
    units: u32,
    forget_bias: f32,
}
@group(0) @binding(7) var<uniform> params: Params;

fn sigmoid(x: f32) -> f32 {
    return 1.0 / (1.0 + exp(-x));
}

fn tanh_exp(x: f32) -> f32 {
    let e = exp(min(-2.0 * x, 80.0));
    return (1.0 - e) / (1.0 + e);
}

@compute @workgroup_size({{WORKGROUP_SIZE}})
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    let units = params.units;
    if (idx >= params.batch * units) {
        return;
    }
    let b = idx / units;
    let u = idx % units;
    let width = 4u * units;

    var gate_i = bias[u];
    var gate_j = bias[units + u];
    var gate_f = bias[2u * units + u];
    var gate_o = bias[3u * units + u];

    for (var i = 0u; i < params.input_size; i = i + 1u) {
        let v = input[b * params.input_size + i];
        let row = i * width;
        gate_i = gate_i + v * weight[row + u];
        gate_j = gate_j + v * weight[row + units + u];
        gate_f = gate_f + v * weight[row + 2u * units + u];
        gate_o = gate_o + v * weight[row + 3u * units + u];
    }
    for (var h = 0u; h < units; h = h + 1u) {
        let v = pre_output[b * units + h];
        let row = (params.input_size + h) * width;
        gate_i = gate_i + v * weight[row + u];
        gate_j = gate_j + v * weight[row + units + u];
        gate_f = gate_f + v * weight[row + 2u * units + u];
        gate_o = gate_o + v * weight[row + 3u * units + u];
    }

    let c = sigmoid(gate_f + params.forget_bias) * pre_cell[idx] + sigmoid(gate_i) * tanh_exp(gate_j);
    cell[idx] = c;
    result[idx] = sigmoid(gate_o) * tanh_exp(c);
}
`
