package app

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"fortio.org/log"
	"github.com/gdamore/tcell/v2"

	"github.com/diegok/aipong/internal/ai"
	"github.com/diegok/aipong/internal/audio"
	"github.com/diegok/aipong/internal/config"
	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/loop"
	"github.com/diegok/aipong/internal/session"
	"github.com/diegok/aipong/internal/store"
	"github.com/diegok/aipong/internal/ui"
)

// PolicyKey is where the right paddle's learned policy is kept
const PolicyKey = "policy/right"

// errQuit unwinds a mode when the player quits
var errQuit = errors.New("quit")

// App is the main application controller that manages the game lifecycle.
type App struct {
	cfg    *config.Config
	tuning config.Tuning
	store  *store.FileStore
	rng    *rand.Rand

	screen   *ui.Screen
	renderer *ui.Renderer
	audio    *audio.Player
	logFile  *os.File

	events   chan tcell.Event
	quit     chan struct{}
	quitOnce sync.Once
	sigChan  chan os.Signal
}

// NewApp creates a new App instance with the given configuration.
func NewApp(cfg *config.Config) *App {
	return &App{
		cfg:   cfg,
		store: store.NewFileStore(cfg.DataDir),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		quit:  make(chan struct{}),
	}
}

// Run is the main entry point for the application. Interactive modes own
// the terminal until they finish; train mode runs headless.
func (a *App) Run() error {
	if err := a.setupLogging(); err != nil {
		return err
	}
	defer a.closeLog()

	tuning, err := config.LoadTuning(a.cfg.TuningFile)
	if err != nil {
		return err
	}
	a.tuning = tuning

	a.sigChan = make(chan os.Signal, 1)
	signal.Notify(a.sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.sigChan)
	go func() {
		select {
		case <-a.sigChan:
			a.stop()
		case <-a.quit:
		}
	}()

	log.S(log.Info, "Starting", log.Str("mode", string(a.cfg.Mode)), log.Str("ai", string(a.cfg.AI)),
		log.Str("difficulty", string(a.cfg.Difficulty)))

	if a.cfg.Mode == config.ModeTrain {
		report, err := a.runTrain()
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	}

	a.audio = audio.New(a.cfg.Mute)
	screen, err := ui.InitScreen()
	if err != nil {
		a.audio.Close()
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	a.screen = screen
	a.renderer = ui.NewRenderer(screen)
	a.pumpEvents()

	switch a.cfg.Mode {
	case config.ModePvP:
		err = a.runPvP()
	case config.ModePvE:
		err = a.runPvE()
	case config.ModeTournament:
		err = a.runTournament()
	}

	a.cleanup()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// setupLogging sends the log to a file, the terminal belongs to the screen
func (a *App) setupLogging() error {
	if err := log.SetLogLevelStr(a.cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = f
	log.SetOutput(f)
	return nil
}

func (a *App) closeLog() {
	if a.logFile != nil {
		log.SetOutput(os.Stderr)
		a.logFile.Close()
	}
}

// pumpEvents forwards screen events until the screen is finalised
func (a *App) pumpEvents() {
	a.events = make(chan tcell.Event)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case a.events <- ev:
			case <-a.quit:
				return
			}
		}
	}()
}

// playMatch runs one match on the screen until it ends or the player quits.
// Keyboards receive the key presses the app itself does not handle.
func (a *App) playMatch(names [2]string, left, right session.IntentSource, keyboards ...*ui.Keyboard) (loop.Outcome, error) {
	m := game.NewMatch(names, game.NewWorld(a.tuning.Court), game.NewEngine(a.tuning.Physics), a.tuning.Rules,
		rand.New(rand.NewSource(a.rng.Int63())))
	s := session.New(m, left, right)
	s.AddListener(a.renderer)
	s.AddListener(a.audio)
	s.SetRecorder(a.store)
	a.renderer.Reset(fmt.Sprintf("%s vs %s", names[0], names[1]))

	host := loop.NewTickerHost(a.cfg.FPS)
	defer host.Close()
	driver := loop.NewDriver(host, a.screen)

	out, err := driver.Start(s)
	if err != nil {
		return loop.Outcome{}, fmt.Errorf("failed to start match: %w", err)
	}
	log.S(log.Info, "Match started", log.Str("left", names[0]), log.Str("right", names[1]))

	for {
		select {
		case o := <-out:
			return o, nil

		case <-a.quit:
			driver.Stop()
			return <-out, errQuit

		case ev := <-a.events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ui.IsQuitKey(ev.Key(), ev.Rune()) {
					driver.Stop()
					return <-out, errQuit
				}
				if ui.IsPauseKey(ev.Key(), ev.Rune()) {
					a.togglePause(driver)
					continue
				}
				for _, k := range keyboards {
					k.HandleKey(ev)
				}
			case *tcell.EventResize:
				a.renderer.Redraw()
			}
		}
	}
}

func (a *App) togglePause(driver *loop.Driver) {
	var err error
	if driver.Paused() {
		err = driver.Resume()
	} else {
		err = driver.Pause()
	}
	if err != nil {
		log.Debugf("Pause toggle ignored: %v", err)
		return
	}
	a.renderer.SetPaused(driver.Paused())
}

// waitForKey blocks until Enter (true) or a quit key (false)
func (a *App) waitForKey() bool {
	for {
		select {
		case <-a.quit:
			return false
		case ev := <-a.events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ui.IsQuitKey(ev.Key(), ev.Rune()) {
					return false
				}
				if ui.IsStartKey(ev.Key()) {
					return true
				}
			case *tcell.EventResize:
				a.renderer.Redraw()
			}
		}
	}
}

// newAgent builds the computer player for side. A learned policy that
// cannot be created falls back to the heuristic. The learned policy, if
// any, is returned so it can be saved after the match.
func (a *App) newAgent(side game.Side) (*ai.Agent, *ai.Learned) {
	heuristic := ai.NewHeuristic(side, a.tuning.HeuristicFor(a.cfg.Difficulty), rand.New(rand.NewSource(a.rng.Int63())))
	if a.cfg.AI != config.AILearned {
		return ai.NewAgent(side, heuristic, nil, 0, a.tuning.Reward), nil
	}

	learned, err := ai.NewLearned(side, a.tuning.Learned, rand.New(rand.NewSource(a.rng.Int63())))
	if err != nil {
		log.Errf("Learned policy unavailable, using heuristic: %v", err)
		return ai.NewAgent(side, heuristic, nil, 0, a.tuning.Reward), nil
	}
	a.loadPolicy(learned)
	return ai.NewAgent(side, learned, heuristic, a.tuning.Learned.Interval, a.tuning.Reward), learned
}

// loadPolicy restores the saved policy. Any failure leaves it untrained.
func (a *App) loadPolicy(l *ai.Learned) {
	blob, err := a.store.LoadPolicy(PolicyKey)
	if errors.Is(err, store.ErrNotFound) {
		log.Infof("No saved policy, starting untrained")
		return
	}
	if err != nil {
		log.Warnf("Failed to load policy, starting untrained: %v", err)
		return
	}
	if err := l.Restore(blob); err != nil {
		log.Warnf("Saved policy is unusable, starting untrained: %v", err)
		return
	}
	log.S(log.Info, "Policy restored", log.Str("key", PolicyKey), log.Str("epsilon", fmt.Sprintf("%.3f", l.Epsilon())))
}

// savePolicy persists l unless the agent gave up on it
func (a *App) savePolicy(agent *ai.Agent, l *ai.Learned) {
	if l == nil || agent.FellBack() {
		return
	}
	blob, err := l.Snapshot()
	if err != nil {
		log.Errf("Failed to snapshot policy: %v", err)
		return
	}
	if err := a.store.SavePolicy(PolicyKey, blob); err != nil {
		log.Errf("Failed to save policy: %v", err)
		return
	}
	log.S(log.Info, "Policy saved", log.Str("key", PolicyKey), log.Str("updates", fmt.Sprint(l.Updates())))
}

// cleanup shuts down all resources.
func (a *App) cleanup() {
	if a.audio != nil {
		a.audio.Close()
	}
	if a.screen != nil {
		a.screen.Fini()
	}
	a.stop()
}

func (a *App) stop() {
	a.quitOnce.Do(func() { close(a.quit) })
}
