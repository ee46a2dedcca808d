package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"fortio.org/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/qnet"
)

// LearnedConfig tunes the value-network policy
type LearnedConfig struct {
	Hidden       []int   `toml:"hidden"`
	LearnRate    float64 `toml:"learn_rate"`
	Gamma        float64 `toml:"gamma"`
	EpsilonStart float64 `toml:"epsilon_start"`
	EpsilonMin   float64 `toml:"epsilon_min"`
	EpsilonDecay float64 `toml:"epsilon_decay"` // applied after every update
	BufferSize   int     `toml:"buffer_size"`
	BatchSize    int     `toml:"batch_size"`
	TrainEvery   int     `toml:"train_every"` // transitions between updates
	TargetSync   int     `toml:"target_sync"` // updates between target network syncs
	Interval     float64 `toml:"interval"`    // seconds between decisions
}

func DefaultLearnedConfig() LearnedConfig {
	return LearnedConfig{
		Hidden:       []int{24, 24},
		LearnRate:    0.001,
		Gamma:        0.99,
		EpsilonStart: 1.0,
		EpsilonMin:   0.1,
		EpsilonDecay: 0.995,
		BufferSize:   2000,
		BatchSize:    32,
		TrainEvery:   4,
		TargetSync:   10,
		Interval:     0.1,
	}
}

var errClosed = errors.New("ai: policy closed")

type trainJob struct {
	batch  []Transition
	target *qnet.Network
}

type trainResult struct {
	net  *qnet.Network
	loss float64
	err  error
}

// Learned is an epsilon-greedy policy over a Q-network trained from a
// replay buffer. Updates run on a background goroutine, one at a time,
// against the learner's own copy of the network; finished updates are
// picked up by the next Act or Learn call. Act, Learn and Observe must be
// called from a single goroutine.
type Learned struct {
	side game.Side
	cfg  LearnedConfig
	rng  *rand.Rand

	online  *qnet.Network // used to act
	target  *qnet.Network // bootstrap source, synced from online
	buffer  *ReplayBuffer
	epsilon float64
	updates int
	pending int // transitions since the last update started
	err     error

	// owned by the training goroutine while an update is in flight
	learner *qnet.Network
	trainer *qnet.Trainer

	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	results chan trainResult

	closeOnce sync.Once
}

// NewLearned creates an untrained policy. Errors from the numerical
// backend are wrapped in ErrBackendUnavailable.
func NewLearned(side game.Side, cfg LearnedConfig, rng *rand.Rand) (*Learned, error) {
	sizes := append([]int{FeatureCount}, cfg.Hidden...)
	sizes = append(sizes, int(actionCount))

	online, err := qnet.New(sizes, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group := &errgroup.Group{}
	group.SetLimit(1)

	l := &Learned{
		side:    side,
		cfg:     cfg,
		rng:     rng,
		online:  online,
		target:  online.Clone(),
		buffer:  NewReplayBuffer(cfg.BufferSize),
		epsilon: cfg.EpsilonStart,
		learner: online.Clone(),
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		results: make(chan trainResult, 1),
	}
	l.trainer = qnet.NewTrainer(l.learner, cfg.LearnRate)
	return l, nil
}

func (l *Learned) Observe(w *game.World) Observation {
	return Observe(w, l.side)
}

// Act picks a random action with probability epsilon, otherwise the action
// with the highest estimated value. On a backend failure it holds and
// reports the failure through Err.
func (l *Learned) Act(obs Observation) game.Intent {
	l.collect()

	if l.rng.Float64() < l.epsilon {
		return Action(l.rng.Intn(int(actionCount))).Intent()
	}

	q, err := l.online.PredictOne(obs.Features)
	if err != nil {
		l.fail(err)
		return game.IntentHold
	}
	return argmax(q).Intent()
}

// Learn stores the transition and starts an update every TrainEvery
// transitions when the buffer holds at least a batch. If an update is
// already running the transitions keep accumulating.
func (l *Learned) Learn(tr Transition) error {
	l.collect()
	if l.err != nil {
		return l.err
	}
	if l.ctx.Err() != nil {
		return nil
	}

	l.buffer.Add(tr)
	l.pending++

	if l.buffer.Len() < l.cfg.BatchSize || l.pending < l.cfg.TrainEvery {
		return nil
	}

	job := trainJob{
		batch:  l.buffer.Sample(l.cfg.BatchSize, l.rng),
		target: l.target.Clone(),
	}
	started := l.group.TryGo(func() error {
		res := l.train(job)
		select {
		case l.results <- res:
		case <-l.ctx.Done():
		}
		return nil
	})
	if started {
		l.pending = 0
	}
	return nil
}

// train runs on the training goroutine and only touches learner and trainer
func (l *Learned) train(job trainJob) (res trainResult) {
	defer func() {
		if r := recover(); r != nil {
			res = trainResult{err: fmt.Errorf("train: %v", r)}
		}
	}()

	states := make([][]float64, len(job.batch))
	nexts := make([][]float64, len(job.batch))
	for i, tr := range job.batch {
		states[i] = tr.State
		nexts[i] = tr.Next
	}

	nextQ, err := job.target.Predict(nexts)
	if err != nil {
		return trainResult{err: err}
	}

	targets := make([][]float64, len(job.batch))
	mask := make([][]float64, len(job.batch))
	for i, tr := range job.batch {
		y := tr.Reward
		if !tr.Done {
			y += l.cfg.Gamma * maxOf(nextQ[i])
		}
		targets[i] = make([]float64, actionCount)
		mask[i] = make([]float64, actionCount)
		targets[i][tr.Action] = y
		mask[i][tr.Action] = 1
	}

	loss, err := l.trainer.Step(states, targets, mask)
	if err != nil {
		return trainResult{err: err}
	}
	return trainResult{net: l.learner.Clone(), loss: loss}
}

// collect applies finished updates without waiting
func (l *Learned) collect() {
	for {
		select {
		case res := <-l.results:
			l.apply(res)
		default:
			return
		}
	}
}

func (l *Learned) apply(res trainResult) {
	if l.ctx.Err() != nil {
		return
	}
	if res.err != nil {
		l.fail(res.err)
		return
	}
	if err := l.online.CopyFrom(res.net); err != nil {
		l.fail(err)
		return
	}

	l.updates++
	if l.epsilon > l.cfg.EpsilonMin {
		l.epsilon *= l.cfg.EpsilonDecay
		if l.epsilon < l.cfg.EpsilonMin {
			l.epsilon = l.cfg.EpsilonMin
		}
	}

	if l.cfg.TargetSync > 0 && l.updates%l.cfg.TargetSync == 0 {
		if err := l.target.CopyFrom(l.online); err != nil {
			l.fail(err)
			return
		}
		log.Debugf("Target network synced after %d updates, epsilon %.3f, loss %.4f", l.updates, l.epsilon, res.loss)
	}
}

func (l *Learned) fail(err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
}

// Flush waits for a running update and applies it
func (l *Learned) Flush() {
	done := make(chan struct{})
	go func() {
		l.group.Wait()
		close(done)
	}()

	for {
		select {
		case res := <-l.results:
			l.apply(res)
		case <-done:
			l.collect()
			return
		}
	}
}

// Close stops training. An update finishing afterwards is discarded.
func (l *Learned) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		l.group.Wait()
	})
}

// Err returns the first backend failure, if any
func (l *Learned) Err() error {
	return l.err
}

func (l *Learned) Epsilon() float64 {
	return l.epsilon
}

// Updates returns the number of applied network updates
func (l *Learned) Updates() int {
	return l.updates
}

func (l *Learned) Buffer() *ReplayBuffer {
	return l.buffer
}

// ActionProbabilities returns the probability of choosing each action
// (indexed by Action) for obs under the current epsilon.
func (l *Learned) ActionProbabilities(obs Observation) ([]float64, error) {
	q, err := l.online.PredictOne(obs.Features)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	probs := make([]float64, actionCount)
	for i := range probs {
		probs[i] = l.epsilon / float64(actionCount)
	}
	probs[argmax(q)] += 1 - l.epsilon
	return probs, nil
}

type policyBlob struct {
	Epsilon float64 `msgpack:"epsilon"`
	Updates int     `msgpack:"updates"`
	Network []byte  `msgpack:"network"`
}

// Snapshot encodes the network and exploration state
func (l *Learned) Snapshot() ([]byte, error) {
	l.Flush()

	net, err := l.online.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(policyBlob{
		Epsilon: l.epsilon,
		Updates: l.updates,
		Network: net,
	})
}

// Restore replaces the network and exploration state with a snapshot
func (l *Learned) Restore(data []byte) error {
	if l.ctx.Err() != nil {
		return errClosed
	}

	var b policyBlob
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode policy: %w", err)
	}
	net, err := qnet.Decode(b.Network)
	if err != nil {
		return err
	}

	l.Flush()
	if err := l.online.CopyFrom(net); err != nil {
		return err
	}
	l.target.CopyFrom(net)
	l.learner.CopyFrom(net)
	l.trainer = qnet.NewTrainer(l.learner, l.cfg.LearnRate)
	l.epsilon = b.Epsilon
	l.updates = b.Updates
	return nil
}

func argmax(q []float64) Action {
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return Action(best)
}

func maxOf(q []float64) float64 {
	m := q[0]
	for _, v := range q[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

var _ Failer = (*Learned)(nil)
