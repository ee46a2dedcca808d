// Package qnet is a small fully connected action-value network.
//
// Parameters are plain dense matrices with the bias folded in as the last
// row of each layer. Every call builds a fresh expression graph and tape
// machine and releases them before returning, so a Network holds no graph
// state between calls. A Network is not safe for concurrent use; use Clone
// to hand a copy to another goroutine.
package qnet

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/vmihailenco/msgpack/v5"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ErrShape is returned for layer sizes or batches that do not fit the network
var ErrShape = errors.New("qnet: shape mismatch")

const blobVersion = 1

type Network struct {
	sizes   []int
	weights []*tensor.Dense // layer i is (sizes[i]+1) x sizes[i+1]
}

// New creates a network with Xavier-uniform weights and zero biases.
// sizes lists the input width, any hidden widths and the output width.
func New(sizes []int, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least input and output sizes, got %v", ErrShape, sizes)
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("%w: layer sizes must be positive, got %v", ErrShape, sizes)
		}
	}

	n := &Network{sizes: append([]int(nil), sizes...)}
	for i := 0; i < len(sizes)-1; i++ {
		fanIn, fanOut := sizes[i], sizes[i+1]
		limit := math.Sqrt(6 / float64(fanIn+fanOut))

		data := make([]float64, (fanIn+1)*fanOut)
		for j := 0; j < fanIn*fanOut; j++ {
			data[j] = (rng.Float64()*2 - 1) * limit
		}
		// last row (bias) stays zero
		n.weights = append(n.weights, tensor.New(tensor.WithShape(fanIn+1, fanOut), tensor.WithBacking(data)))
	}
	return n, nil
}

func (n *Network) Inputs() int {
	return n.sizes[0]
}

func (n *Network) Outputs() int {
	return n.sizes[len(n.sizes)-1]
}

func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Clone returns a deep copy
func (n *Network) Clone() *Network {
	c := &Network{sizes: append([]int(nil), n.sizes...)}
	for _, w := range n.weights {
		c.weights = append(c.weights, w.Clone().(*tensor.Dense))
	}
	return c
}

// CopyFrom overwrites n's parameters with src's
func (n *Network) CopyFrom(src *Network) error {
	if !sameSizes(n.sizes, src.sizes) {
		return fmt.Errorf("%w: copy %v into %v", ErrShape, src.sizes, n.sizes)
	}
	for i, w := range src.weights {
		n.weights[i] = w.Clone().(*tensor.Dense)
	}
	return nil
}

// Params returns a copy of each layer's weights, row major, bias row last
func (n *Network) Params() [][]float64 {
	out := make([][]float64, len(n.weights))
	for i, w := range n.weights {
		out[i] = append([]float64(nil), w.Data().([]float64)...)
	}
	return out
}

// Predict returns the action values for each input row
func (n *Network) Predict(inputs [][]float64) (q [][]float64, err error) {
	batch, err := n.batch(inputs)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("qnet: predict: %v", r)
		}
	}()

	g := gorgonia.NewGraph()
	out, _, err := n.forward(g, batch)
	if err != nil {
		return nil, err
	}

	var outVal gorgonia.Value
	gorgonia.Read(out, &outVal)

	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("qnet: predict: %w", err)
	}

	return n.rows(outVal, len(inputs))
}

// PredictOne returns the action values for a single input
func (n *Network) PredictOne(input []float64) ([]float64, error) {
	q, err := n.Predict([][]float64{input})
	if err != nil {
		return nil, err
	}
	return q[0], nil
}

// forward adds the network to g and returns the output node and the weight
// nodes. Weight nodes hold copies of the parameters.
func (n *Network) forward(g *gorgonia.ExprGraph, batch *tensor.Dense) (*gorgonia.Node, gorgonia.Nodes, error) {
	rows := batch.Shape()[0]

	h := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(rows, n.sizes[0]),
		gorgonia.WithName("x"),
		gorgonia.WithValue(batch))
	ones := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(rows, 1),
		gorgonia.WithName("ones"),
		gorgonia.WithValue(filled(rows, 1, 1)))

	var ws gorgonia.Nodes
	var err error
	for i, w := range n.weights {
		wn := gorgonia.NewMatrix(g, tensor.Float64,
			gorgonia.WithShape(w.Shape()...),
			gorgonia.WithName(fmt.Sprintf("w%d", i)),
			gorgonia.WithValue(w.Clone().(*tensor.Dense)))
		ws = append(ws, wn)

		if h, err = gorgonia.Concat(1, h, ones); err != nil {
			return nil, nil, fmt.Errorf("qnet: layer %d bias: %w", i, err)
		}
		if h, err = gorgonia.Mul(h, wn); err != nil {
			return nil, nil, fmt.Errorf("qnet: layer %d: %w", i, err)
		}
		if i < len(n.weights)-1 {
			if h, err = gorgonia.Rectify(h); err != nil {
				return nil, nil, fmt.Errorf("qnet: layer %d activation: %w", i, err)
			}
		}
	}
	return h, ws, nil
}

func (n *Network) batch(inputs [][]float64) (*tensor.Dense, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrShape)
	}
	return pack(inputs, n.sizes[0])
}

func (n *Network) rows(v gorgonia.Value, count int) ([][]float64, error) {
	if v == nil {
		return nil, errors.New("qnet: no output value")
	}
	data, ok := v.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("qnet: unexpected output type %T", v.Data())
	}
	width := n.Outputs()
	if len(data) != count*width {
		return nil, fmt.Errorf("%w: output has %d values, want %d", ErrShape, len(data), count*width)
	}

	out := make([][]float64, count)
	for i := range out {
		out[i] = append([]float64(nil), data[i*width:(i+1)*width]...)
	}
	return out, nil
}

// pack copies rows of the given width into one dense matrix
func pack(rows [][]float64, width int) (*tensor.Dense, error) {
	data := make([]float64, 0, len(rows)*width)
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(r), width)
		}
		data = append(data, r...)
	}
	return tensor.New(tensor.WithShape(len(rows), width), tensor.WithBacking(data)), nil
}

func filled(rows, cols int, v float64) *tensor.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
}

func sameSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type blob struct {
	Version int         `msgpack:"v"`
	Sizes   []int       `msgpack:"sizes"`
	Weights [][]float64 `msgpack:"weights"`
}

// MarshalBinary encodes the layer sizes and parameters with msgpack
func (n *Network) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(blob{
		Version: blobVersion,
		Sizes:   n.sizes,
		Weights: n.Params(),
	})
}

// UnmarshalBinary replaces the network with a previously marshalled one
func (n *Network) UnmarshalBinary(data []byte) error {
	var b blob
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("qnet: decode: %w", err)
	}
	if b.Version != blobVersion {
		return fmt.Errorf("qnet: unsupported blob version %d", b.Version)
	}
	if len(b.Sizes) < 2 || len(b.Weights) != len(b.Sizes)-1 {
		return fmt.Errorf("%w: blob has sizes %v and %d layers", ErrShape, b.Sizes, len(b.Weights))
	}

	weights := make([]*tensor.Dense, len(b.Weights))
	for i, w := range b.Weights {
		r, c := b.Sizes[i]+1, b.Sizes[i+1]
		if len(w) != r*c {
			return fmt.Errorf("%w: layer %d has %d values, want %d", ErrShape, i, len(w), r*c)
		}
		weights[i] = tensor.New(tensor.WithShape(r, c), tensor.WithBacking(append([]float64(nil), w...)))
	}

	n.sizes = append([]int(nil), b.Sizes...)
	n.weights = weights
	return nil
}

// Decode builds a network from a marshalled blob
func Decode(data []byte) (*Network, error) {
	n := &Network{}
	if err := n.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return n, nil
}
