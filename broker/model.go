package broker

import (
	"math"

	dual "github.com/rookzero/engine/dualnet"
	"gorgonia.org/tensor"
)

// Model is the black-box neural-network evaluator the broker owns: given a
// batch of encoded positions it returns one policy vector and one value
// scalar per position. The network's weights, architecture and training are
// entirely out of scope for this engine; this interface is the whole
// contract the search core depends on.
type Model interface {
	// Predict evaluates a batch tensor of shape [N, 8, 8, Planes] and
	// returns N policy vectors (each len(game.Catalogue) long) and N value
	// scalars in [-1, 1].
	Predict(batch *tensor.Dense) (policies [][]float32, values []float32, err error)
}

// ReferenceModel is a minimal, dependency-light stand-in for a trained dual
// policy/value network, shaped by dual.Config. It is deterministic (no
// training, no random weights beyond a fixed seed) so it is useful for
// wiring and smoke-testing the broker and search core end to end without a
// real model file; production deployments supply their own Model.
type ReferenceModel struct {
	conf    dual.Config
	weights []float32 // one weight per flattened input feature, shared across outputs
}

// NewReferenceModel builds a ReferenceModel for the given configuration. The
// weights are a fixed, reproducible pseudo-random sequence (not loaded from
// disk) so Predict is a pure function of its input.
func NewReferenceModel(conf dual.Config) *ReferenceModel {
	inputSize := conf.Height * conf.Width * conf.Features
	w := make([]float32, inputSize)
	state := uint32(0x9e3779b9)
	for i := range w {
		state = state*1664525 + 1013904223
		w[i] = float32(state>>8)/float32(1<<24) - 0.5
	}
	return &ReferenceModel{conf: conf, weights: w}
}

// Predict implements Model.
func (m *ReferenceModel) Predict(batch *tensor.Dense) (policies [][]float32, values []float32, err error) {
	shape := batch.Shape()
	if len(shape) != 4 {
		return nil, nil, dual.ErrShape
	}
	n, h, w, f := shape[0], shape[1], shape[2], shape[3]
	data := batch.Data().([]float32)
	perSample := h * w * f

	policies = make([][]float32, n)
	values = make([]float32, n)
	for i := 0; i < n; i++ {
		sample := data[i*perSample : (i+1)*perSample]
		var dot float32
		for j, v := range sample {
			if j >= len(m.weights) {
				break
			}
			dot += v * m.weights[j]
		}
		values[i] = float32(math.Tanh(float64(dot)))
		policies[i] = uniformPolicy(m.conf.ActionSpace)
	}
	return policies, values, nil
}

func uniformPolicy(n int) []float32 {
	p := make([]float32, n)
	if n == 0 {
		return p
	}
	v := float32(1) / float32(n)
	for i := range p {
		p[i] = v
	}
	return p
}
