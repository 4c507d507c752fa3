package broker

import (
	"bytes"
	"encoding/gob"

	"gorgonia.org/tensor"
)

// request is what a client sends: one encoded position.
type request struct {
	Shape []int
	Data  []float32
}

// reply is what the broker sends back: the policy over the full label
// catalogue plus the value scalar, or an error string when the batch's
// model invocation failed.
type reply struct {
	Policy []float32
	Value  float32
	Err    string
}

func encodeRequest(t *tensor.Dense) ([]byte, error) {
	var buf bytes.Buffer
	req := request{Shape: intShape(t.Shape()), Data: t.Data().([]float32)}
	if err := gob.NewEncoder(&buf).Encode(req); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRequest(b []byte) (*tensor.Dense, error) {
	var req request
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&req); err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithBacking(req.Data), tensor.WithShape(req.Shape...)), nil
}

func encodeReply(r reply) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeReply(b []byte) (reply, error) {
	var r reply
	err := gob.NewDecoder(bytes.NewReader(b)).Decode(&r)
	return r, err
}

func intShape(s tensor.Shape) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}
