// Package player implements the Player Facade: the narrow interface the
// search core consumes to get value/policy predictions and opponent-reply
// moves, each backed by its own broker connection so that MCTS workers
// never serialise on one another's evaluator traffic.
package player

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/rookzero/engine/broker"
	"github.com/rookzero/engine/game"
	"github.com/rookzero/engine/mcts"
)

// predictor is the narrow slice of broker.Client this facade depends on,
// kept as an interface so Player can be exercised with a fake in tests
// without a running broker.
type predictor interface {
	Predict(t *tensor.Dense) (policy []float32, value float32, err error)
}

// Dialer returns a fresh, independent predictor handle. Clone uses it so
// every cloned Player gets its own connection.
type Dialer func() (predictor, error)

// Player wraps one broker connection and the position encoder, and
// implements mcts.Player.
type Player struct {
	client  predictor
	encoder *game.Encoder
	dial    Dialer
}

var _ mcts.Player = (*Player)(nil)

// New returns a Player that sends encoded positions over client, using dial
// to mint independent connections for Clone.
func New(client predictor, encoder *game.Encoder, dial Dialer) *Player {
	return &Player{client: client, encoder: encoder, dial: dial}
}

// NewFromBroker dials b for an initial connection and returns a Player
// whose Clone mints further connections from the same broker. This is the
// constructor ordinary callers (the cmd/search demo, tests wiring a real
// broker) should use; New plus a hand-built Dialer exists mainly so tests
// can substitute a fake predictor.
func NewFromBroker(b *broker.Broker, encoder *game.Encoder) (*Player, error) {
	client, err := b.ClientHandle()
	if err != nil {
		return nil, errors.Wrap(err, "player: dial broker")
	}
	dial := func() (predictor, error) {
		return b.ClientHandle()
	}
	return New(client, encoder, dial), nil
}

func (p *Player) predict(pos *game.Position) (policy []float32, value float32, err error) {
	t := p.encoder.Encode(pos)
	return p.client.Predict(t)
}

// PredictValue implements mcts.Player.
func (p *Player) PredictValue(pos *game.Position) (float32, error) {
	_, value, err := p.predict(pos)
	if err != nil {
		return 0, errors.Wrap(err, "player: predict value")
	}
	return value, nil
}

// PredictPolicy implements mcts.Player. When maskLegal is true the returned
// vector has one entry per pos.LegalMoves(), in that order, renormalised
// over the legal subset; otherwise it is the raw catalogue-length vector.
func (p *Player) PredictPolicy(pos *game.Position, maskLegal bool) ([]float32, error) {
	policy, _, err := p.predict(pos)
	if err != nil {
		return nil, errors.Wrap(err, "player: predict policy")
	}
	if !maskLegal {
		return policy, nil
	}

	legal := pos.LegalMoves()
	masked := make([]float32, len(legal))
	var sum float32
	for i, m := range legal {
		idx, ok := game.LabelIndex[m]
		if !ok {
			continue
		}
		masked[i] = policy[idx]
		sum += masked[i]
	}
	if sum > 1e-8 {
		for i := range masked {
			masked[i] /= sum
		}
	} else if len(masked) > 0 {
		v := 1 / float32(len(masked))
		for i := range masked {
			masked[i] = v
		}
	}
	return masked, nil
}

// BestMove implements mcts.Player. It always returns the masked-policy
// argmax with no search: that is the only behaviour the specification
// defines for this facade (used internally by expand for opponent
// replies). A full self-play search belongs to mcts.SearchMove, called
// directly by the top-level driver, not through this method.
func (p *Player) BestMove(pos *game.Position, realGame bool) (string, error) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return game.NullMove, nil
	}
	policy, err := p.PredictPolicy(pos, true)
	if err != nil {
		return "", err
	}
	best := 0
	for i, v := range policy {
		if v > policy[best] {
			best = i
		}
	}
	return legal[best], nil
}

// Clone returns an independent Player backed by its own broker connection.
// If dialing fails, Clone falls back to sharing the parent's connection
// rather than panicking; a worker pool that needs a hard failure on dial
// error should check Dialer directly before launching workers.
func (p *Player) Clone() mcts.Player {
	client, err := p.dial()
	if err != nil {
		return &Player{client: p.client, encoder: p.encoder, dial: p.dial}
	}
	return &Player{client: client, encoder: p.encoder, dial: p.dial}
}
