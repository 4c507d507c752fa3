// Package dual describes the shape of the dual policy/value network the
// evaluator broker owns. The network itself (weights, training, layer
// graph) is an external black box per the specification; this package only
// carries the configuration needed to size the Model's input/output
// tensors consistently with the Position Encoder.
package dual

import "github.com/pkg/errors"

// ErrShape is returned by a Model implementation when it is handed a batch
// tensor whose rank or dimensions don't match its configuration.
var ErrShape = errors.New("dual: batch tensor has unexpected shape")

// Config configures the neural network's input/output shape.
type Config struct {
	K            int  `json:"k"`             // number of filters
	SharedLayers int  `json:"shared_layers"` // number of shared residual blocks
	FC           int  `json:"fc"`            // fc layer width
	BatchSize    int  `json:"batch_size"`    // batch size
	Width        int  `json:"width"`         // board size width (8 for chess)
	Height       int  `json:"height"`        // board size height (8 for chess)
	Features     int  `json:"features"`      // input feature-plane count
	ActionSpace  int  `json:"action_space"`  // size of the policy head (len(game.Catalogue))
	FwdOnly      bool `json:"fwd_only"`      // is this a fwd only graph?
}

// DefaultConf returns a Config sized for an 8x8 board with featureCount
// input planes and the given policy action space, following the same
// filter/FC sizing heuristic as the original dual network.
func DefaultConf(featureCount, actionSpace int) Config {
	k := round((8 * 8) / 3)
	return Config{
		K:            k,
		SharedLayers: 8,
		FC:           2 * k,
		BatchSize:    256,
		Width:        8,
		Height:       8,
		Features:     featureCount,
		ActionSpace:  actionSpace,
	}
}

// IsValid reports whether conf is well-formed enough to size a network.
func (conf Config) IsValid() bool {
	return conf.K >= 1 &&
		conf.ActionSpace >= 3 &&
		conf.SharedLayers >= 0 &&
		conf.FC > 1 &&
		conf.BatchSize >= 1 &&
		conf.Features > 0
}

// round rounds a to the nearer of the two surrounding powers of two (the
// upper one on a tie).
func round(a int) int {
	n := a - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++

	lt := n / 2
	if (a - lt) < (n - a) {
		return lt
	}
	return n
}
