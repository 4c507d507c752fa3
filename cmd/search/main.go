// Command search is a thin demonstration harness for the search core: it
// starts an in-process Evaluator Broker backed by the reference model,
// wires a Player Facade to it, and plays out a short game against itself by
// repeatedly calling mcts.SearchMove, mirroring the self-play game loop the
// training-time Arena used to drive but trimmed down to move search alone.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rookzero/engine/broker"
	"github.com/rookzero/engine/config"
	dual "github.com/rookzero/engine/dualnet"
	"github.com/rookzero/engine/game"
	"github.com/rookzero/engine/mcts"
	"github.com/rookzero/engine/player"
)

var (
	configPath = flag.String("config", "", "optional engine config file (yaml/json/toml)")
	maxPlies   = flag.Int("max_plies", 20, "maximum number of plies to play in the demo game")
	dotPath    = flag.String("dot", "", "if set, run one more search from the final position and write its tree as Graphviz DOT to this path")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.IsValid() {
		log.Fatalf("invalid config: %+v", cfg)
	}

	enc := game.NewEncoder(cfg.HistoryDepth)
	nnConf := dual.DefaultConf(enc.Planes(), len(game.Catalogue))
	model := broker.NewReferenceModel(nnConf)

	b := broker.New(broker.Config{
		Network:   cfg.BrokerNetwork,
		Address:   cfg.BrokerAddress,
		BatchWait: cfg.BatchWait,
	}, model)
	if err := b.Start(); err != nil {
		log.Fatalf("start broker: %v", err)
	}
	defer b.Stop(context.Background())

	searchCfg := mcts.Config{
		MaxIters:         cfg.MaxIters,
		Threads:          cfg.Threads,
		PUCTConst:        cfg.PUCTConst,
		Noise:            cfg.DirichletNoise,
		TauSwitchPly:     cfg.TauSwitchPly,
		DirichletAlpha:   cfg.DirichletAlpha,
		DirichletEpsilon: cfg.DirichletEpsilon,
	}

	pos := game.NewPosition()
	for ply := 0; ply < *maxPlies; ply++ {
		if ended, result := pos.Result(); ended {
			fmt.Printf("game over: %v\n", result)
			break
		}

		p, err := player.NewFromBroker(b, enc)
		if err != nil {
			log.Fatalf("new player: %v", err)
		}

		start := time.Now()
		res, err := mcts.SearchMove(context.Background(), pos, p, searchCfg, false)
		if err != nil {
			log.Fatalf("search_move: %v", err)
		}
		if res.Move == game.NullMove {
			fmt.Println("no move found, stopping")
			break
		}

		fmt.Printf("ply %d: %s (%s)\n", ply, res.Move, time.Since(start))
		pos = pos.Apply(res.Move)
		fmt.Println(pos.String())
	}

	fmt.Printf("moves played: %v\n", pos.MoveHistory())

	if *dotPath != "" {
		writeDemoTreeDOT(pos, enc, b, searchCfg)
	}
}

// writeDemoTreeDOT runs one extra search from the final position, with the
// same search configuration as the game, purely to capture its tree shape
// for debugging, and writes it to dotPath.
func writeDemoTreeDOT(pos *game.Position, enc *game.Encoder, b *broker.Broker, cfg mcts.Config) {
	ended, _ := pos.Result()
	if ended {
		return
	}
	p, err := player.NewFromBroker(b, enc)
	if err != nil {
		log.Printf("dot export: new player: %v", err)
		return
	}
	tree, err := mcts.DebugTree(context.Background(), pos, p, cfg)
	if err != nil {
		log.Printf("dot export: search: %v", err)
		return
	}
	if err := os.WriteFile(*dotPath, []byte(tree.DOT()), 0o644); err != nil {
		log.Printf("dot export: write %s: %v", *dotPath, err)
	}
}
