package broker

import (
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/rookzero/engine/errs"
)

// Client is a connection-oriented handle to a Broker. A Client is used by
// exactly one caller at a time: it sends one encoded position and blocks for
// the matching reply, so per-channel FIFO holds trivially (there is never
// more than one in-flight request per Client).
type Client struct {
	ws     *websocket.Conn
	closed bool
}

// Predict sends t to the broker and returns its policy/value reply.
func (c *Client) Predict(t *tensor.Dense) (policy []float32, value float32, err error) {
	if c.closed {
		return nil, 0, errs.ErrBrokerClosed
	}
	payload, err := encodeRequest(t)
	if err != nil {
		return nil, 0, errors.Wrap(err, "broker client: encode request")
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		c.closed = true
		return nil, 0, errors.Wrap(errs.ErrBrokerClosed, err.Error())
	}
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		c.closed = true
		return nil, 0, errors.Wrap(errs.ErrBrokerClosed, err.Error())
	}
	r, err := decodeReply(data)
	if err != nil {
		return nil, 0, errors.Wrap(err, "broker client: decode reply")
	}
	if r.Err != "" {
		return nil, 0, errors.Wrap(errs.ErrModelFailure, r.Err)
	}
	return r.Policy, r.Value, nil
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}
