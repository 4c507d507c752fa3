// Package broker implements the Evaluator Broker: it owns a single
// neural-network Model instance and serves predict(tensor) -> (policy,
// value) requests from many concurrent MCTS workers, batching whatever is
// pending and invoking the model once per batch. It is the Go-native
// redesign of the original predict_worker.py, replacing its
// multiprocessing.connection.Listener/Pipe pair with a websocket listener
// and one goroutine per connection fanning into a shared request channel.
package broker

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/rookzero/engine/errs"
	"github.com/rookzero/engine/game"
)

// Config configures the broker's listening endpoint and batching cadence.
type Config struct {
	Network   string        // "tcp" or "unix"
	Address   string        // e.g. "localhost:9999" or a socket path
	BatchWait time.Duration // predictor poll deadline, ~1ms per spec
}

// DefaultConfig matches the specification's defaults.
func DefaultConfig() Config {
	return Config{Network: "tcp", Address: "localhost:9999", BatchWait: time.Millisecond}
}

// conn is one accepted client connection.
type conn struct {
	ws     *websocket.Conn
	writeM sync.Mutex
	closed bool
	mu     sync.Mutex
}

func (c *conn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.ws.Close()
	}
}

func (c *conn) write(b []byte) error {
	c.writeM.Lock()
	defer c.writeM.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}

// Broker owns a Model and serves batched predictions over a websocket
// listener.
type Broker struct {
	mu     sync.Mutex
	cfg    Config
	model  Model
	server *http.Server
	ln     net.Listener
	upg    websocket.Upgrader

	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	connsMu sync.Mutex
	conns   []*conn

	pending chan batchItem
}

type batchItem struct {
	from *conn
	t    *tensor.Dense
}

// New returns a Broker serving model over the given configuration. The
// broker is not listening until Start is called.
func New(cfg Config, model Model) *Broker {
	return &Broker{
		cfg:     cfg,
		model:   model,
		pending: make(chan batchItem, 256),
	}
}

// Start is idempotent: it launches the acceptor and predictor goroutines.
// Calling Start on an already-running broker is a no-op.
func (b *Broker) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	ln, err := net.Listen(b.cfg.Network, b.cfg.Address)
	if err != nil {
		return errors.Wrapf(err, "broker: listen %s/%s", b.cfg.Network, b.cfg.Address)
	}
	b.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", b.handleUpgrade)
	b.server = &http.Server{Handler: mux}

	b.done = make(chan struct{})
	b.running = true

	b.wg.Add(2)
	go b.acceptLoop()
	go b.predictLoop()

	return nil
}

func (b *Broker) acceptLoop() {
	defer b.wg.Done()
	err := b.server.Serve(b.ln)
	_ = err // http.ErrServerClosed is the expected shutdown path
}

func (b *Broker) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upg.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}
	b.connsMu.Lock()
	b.conns = append(b.conns, c)
	b.connsMu.Unlock()

	go b.readLoop(c)
}

// readLoop drains one client's requests onto the shared pending channel
// until the connection closes. A read failure (including a clean
// end-of-stream) marks the connection closed and the goroutine returns;
// the predictor loop is never blocked by it.
func (b *Broker) readLoop(c *conn) {
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			log.Printf("%v: %v", errs.ErrPeerDisconnected, err)
			c.markClosed()
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		t, err := decodeRequest(data)
		if err != nil {
			continue
		}
		select {
		case b.pending <- batchItem{from: c, t: t}:
		case <-b.done:
			return
		}
	}
}

// predictLoop is the predictor: wait up to BatchWait for the first pending
// request, then drain everything else that's already queued without
// blocking, invoke the model once on the resulting batch, and scatter
// replies back to their originating connections.
func (b *Broker) predictLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case first := <-b.pending:
			batch := []batchItem{first}
		drain:
			for {
				select {
				case item := <-b.pending:
					batch = append(batch, item)
				default:
					break drain
				}
			}
			b.processBatch(batch)
		case <-time.After(b.cfg.BatchWait):
		}
	}
}

func (b *Broker) processBatch(batch []batchItem) {
	tensors := make([]*tensor.Dense, len(batch))
	for i, item := range batch {
		tensors[i] = item.t
	}
	stacked, err := game.Stack(tensors)
	if err != nil {
		b.failAll(batch, err)
		return
	}

	policies, values, err := b.model.Predict(stacked)
	if err != nil {
		b.failAll(batch, errors.Wrap(errs.ErrModelFailure, err.Error()))
		return
	}
	for i, item := range batch {
		resp, err := encodeReply(reply{Policy: policies[i], Value: values[i]})
		if err != nil {
			continue
		}
		if err := item.from.write(resp); err != nil {
			item.from.markClosed()
		}
	}
}

func (b *Broker) failAll(batch []batchItem, cause error) {
	for _, item := range batch {
		resp, encErr := encodeReply(reply{Err: cause.Error()})
		if encErr != nil {
			continue
		}
		if err := item.from.write(resp); err != nil {
			item.from.markClosed()
		}
	}
}

// Stop requests shutdown: it stops accepting new connections, waits for the
// acceptor and predictor to drain, closes every client connection and
// clears the connection list. After Stop returns, Start may be called
// again.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.done)
	b.mu.Unlock()

	var merr *multierror.Error
	if err := b.server.Shutdown(ctx); err != nil {
		merr = multierror.Append(merr, err)
	}
	b.wg.Wait()

	b.connsMu.Lock()
	for _, c := range b.conns {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
			if err := c.ws.Close(); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
		c.mu.Unlock()
	}
	b.conns = nil
	b.connsMu.Unlock()

	return merr.ErrorOrNil()
}

// ReloadModel swaps the evaluator's weights. Must be called only while the
// broker is stopped.
func (b *Broker) ReloadModel(m Model) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("broker: cannot reload model while running")
	}
	b.model = m
	return nil
}

// Addr returns the broker's listening address, valid once Start has
// returned successfully.
func (b *Broker) Addr() string {
	if b.ln == nil {
		return ""
	}
	return b.ln.Addr().String()
}

// ClientHandle dials a fresh, independent connection to the broker and
// returns a Client wrapping it. Each MCTS worker should hold its own
// handle so that broker requests pipeline across workers instead of
// serialising on a shared connection.
func (b *Broker) ClientHandle() (*Client, error) {
	if !b.running {
		return nil, errs.ErrBrokerClosed
	}
	url := fmt.Sprintf("ws://%s/predict", b.Addr())
	dialer := websocket.Dialer{}
	if b.cfg.Network == "unix" {
		dialer.NetDialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return net.Dial("unix", b.cfg.Address)
		}
		url = "ws://unix/predict"
	}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "broker: dial client handle")
	}
	return &Client{ws: ws}, nil
}
