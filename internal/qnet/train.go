package qnet

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Trainer fits a network with Adam. The solver keeps its moment estimates
// between steps, so one Trainer should stay with one network.
type Trainer struct {
	net    *Network
	solver *gorgonia.AdamSolver
	steps  int
}

func NewTrainer(net *Network, learnRate float64) *Trainer {
	return &Trainer{
		net:    net,
		solver: gorgonia.NewAdamSolver(gorgonia.WithLearnRate(learnRate)),
	}
}

func (t *Trainer) Network() *Network {
	return t.net
}

// Steps returns the number of successful updates
func (t *Trainer) Steps() int {
	return t.steps
}

// Step runs one gradient update. Only the outputs selected by mask (1 or 0
// per output) contribute to the squared error against targets. It returns
// the loss before the update.
func (t *Trainer) Step(inputs, targets, mask [][]float64) (loss float64, err error) {
	n := t.net
	if len(targets) != len(inputs) || len(mask) != len(inputs) {
		return 0, fmt.Errorf("%w: %d inputs, %d targets, %d masks", ErrShape, len(inputs), len(targets), len(mask))
	}

	batch, err := n.batch(inputs)
	if err != nil {
		return 0, err
	}
	targetT, err := pack(targets, n.Outputs())
	if err != nil {
		return 0, err
	}
	maskT, err := pack(mask, n.Outputs())
	if err != nil {
		return 0, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("qnet: train: %v", r)
		}
	}()

	g := gorgonia.NewGraph()
	q, ws, err := n.forward(g, batch)
	if err != nil {
		return 0, err
	}

	rows, cols := len(inputs), n.Outputs()
	target := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(rows, cols), gorgonia.WithName("target"), gorgonia.WithValue(targetT))
	selected := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(rows, cols), gorgonia.WithName("mask"), gorgonia.WithValue(maskT))

	diff := gorgonia.Must(gorgonia.Sub(q, target))
	masked := gorgonia.Must(gorgonia.HadamardProd(diff, selected))
	cost := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(masked))))

	var costVal gorgonia.Value
	gorgonia.Read(cost, &costVal)

	if _, err := gorgonia.Grad(cost, ws...); err != nil {
		return 0, fmt.Errorf("qnet: gradient: %w", err)
	}

	vm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(ws...))
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		return 0, fmt.Errorf("qnet: train: %w", err)
	}
	if err := t.solver.Step(gorgonia.NodesToValueGrads(ws)); err != nil {
		return 0, fmt.Errorf("qnet: solver: %w", err)
	}

	for i, wn := range ws {
		w, ok := wn.Value().(*tensor.Dense)
		if !ok {
			return 0, fmt.Errorf("qnet: layer %d: unexpected weight type %T", i, wn.Value())
		}
		n.weights[i] = w.Clone().(*tensor.Dense)
	}
	t.steps++

	if costVal != nil {
		if v, ok := costVal.Data().(float64); ok {
			loss = v
		}
	}
	return loss, nil
}
