package mcts

import (
	"time"

	"github.com/chewxy/math32"
	distrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// PolicyConfig configures root policy extraction.
type PolicyConfig struct {
	TauSwitchPly     int
	DirichletNoise   bool
	DirichletAlpha   float64
	DirichletEpsilon float64
}

// tau implements the τ-switch rule: τ=1 below tauSwitchPly, otherwise a
// schedule that decays exploration as the game lengthens.
func tau(moveCount, tauSwitchPly int) float32 {
	if moveCount < tauSwitchPly {
		return 1
	}
	m := float32(moveCount)
	return m / (1 + math32.Pow(m, 1.3))
}

// RootPolicy computes the visit-based policy over the root's children,
//
//	π_i = visits(child_i)^(1/τ) / visits(root)^(1/τ)
//
// mixing in Dirichlet noise (independently sampled each call) when
// cfg.DirichletNoise is set. Returns nil if the root has no children yet.
func (t *Tree) RootPolicy(cfg PolicyConfig) []float32 {
	root := t.Root()
	children := root.Children()
	if len(children) == 0 {
		return nil
	}
	rootVisits := root.Visits()
	moveCount := root.position.MoveNumber()

	tval := tau(moveCount, cfg.TauSwitchPly)
	invTau := 1 / tval
	rootTerm := math32.Pow(float32(rootVisits), invTau)

	pi := make([]float32, len(children))
	for i, ci := range children {
		v := t.node(ci).Visits()
		pi[i] = math32.Pow(float32(v), invTau) / rootTerm
	}

	if cfg.DirichletNoise {
		alpha := make([]float64, len(children))
		for i := range alpha {
			alpha[i] = cfg.DirichletAlpha
		}
		dist := distmv.NewDirichlet(alpha, distrand.NewSource(uint64(time.Now().UnixNano())))
		noise := dist.Rand(nil)
		eps := float32(cfg.DirichletEpsilon)
		for i := range pi {
			pi[i] = (1-eps)*pi[i] + eps*float32(noise[i])
		}
	}
	return pi
}
