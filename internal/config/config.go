package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/diegok/aipong/internal/ai"
	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/tournament"
)

// Default values for configuration
const (
	DefaultMode     = ModePvE
	DefaultAI       = AIHeuristic
	DefaultFPS      = 60
	DefaultEpisodes = 20
	DefaultDataDir  = ".aipong"
	DefaultLogLevel = "info"
)

type Mode string

const (
	ModePvP        Mode = "pvp"
	ModePvE        Mode = "pve"
	ModeTournament Mode = "tournament"
	ModeTrain      Mode = "train"
)

// AIKind selects the computer opponent
type AIKind string

const (
	AIHeuristic AIKind = "heuristic"
	AILearned   AIKind = "learned"
)

// Config holds the application configuration
type Config struct {
	Mode       Mode
	AI         AIKind
	Difficulty ai.Difficulty
	Player1    string
	Player2    string
	Players    []string // tournament entrants
	Episodes   int      // training matches
	DataDir    string
	TuningFile string
	FPS        int
	LogLevel   string
	LogFile    string
	Mute       bool
}

// ParseArgs parses command line arguments and returns a Config
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("aipong", flag.ContinueOnError)

	mode := fs.String("mode", string(DefaultMode), "game mode: pvp, pve, tournament or train")
	kind := fs.String("ai", string(DefaultAI), "computer opponent: heuristic or learned")
	difficulty := fs.String("difficulty", string(ai.Medium), "heuristic difficulty: easy, medium or hard")
	p1 := fs.String("p1", "Player 1", "left player name")
	p2 := fs.String("p2", "", "right player name (defaults to Player 2 or the AI)")
	players := fs.String("players", "", "comma separated tournament player names (1-8)")
	episodes := fs.Int("episodes", DefaultEpisodes, "matches to play in train mode (>=1)")
	data := fs.String("data", DefaultDataDir, "directory for match history and learned policies")
	tuning := fs.String("tuning", "", "TOML file overriding court, physics, rules and AI tuning")
	fps := fs.Int("fps", DefaultFPS, "frames per second (>=1)")
	level := fs.String("loglevel", DefaultLogLevel, "log level: debug, verbose, info, warning or error")
	logFile := fs.String("log", "", "log file (defaults to aipong.log in the data directory)")
	mute := fs.Bool("mute", false, "disable sound")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:       Mode(*mode),
		AI:         AIKind(*kind),
		Difficulty: ai.Difficulty(*difficulty),
		Player1:    strings.TrimSpace(*p1),
		Player2:    strings.TrimSpace(*p2),
		Episodes:   *episodes,
		DataDir:    *data,
		TuningFile: *tuning,
		FPS:        *fps,
		LogLevel:   *level,
		LogFile:    *logFile,
		Mute:       *mute,
	}

	switch cfg.Mode {
	case ModePvP, ModePvE, ModeTournament, ModeTrain:
	default:
		return nil, fmt.Errorf("unknown mode %q", *mode)
	}

	switch cfg.AI {
	case AIHeuristic, AILearned:
	default:
		return nil, fmt.Errorf("unknown AI %q", *kind)
	}

	if _, err := ai.Preset(cfg.Difficulty); err != nil {
		return nil, err
	}

	if cfg.FPS < 1 {
		return nil, fmt.Errorf("fps must be at least 1, got %d", cfg.FPS)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "verbose", "info", "warning", "error":
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	if cfg.Episodes < 1 {
		return nil, fmt.Errorf("episodes must be at least 1, got %d", cfg.Episodes)
	}

	if cfg.Player1 == "" {
		return nil, errors.New("player 1 name cannot be empty")
	}
	if cfg.Player2 == "" {
		cfg.Player2 = "Player 2"
		if cfg.Mode == ModePvE {
			cfg.Player2 = "AI"
		}
	}

	if cfg.Mode == ModeTournament {
		names, err := parsePlayers(*players)
		if err != nil {
			return nil, err
		}
		cfg.Players = names
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "aipong.log")
	}

	return cfg, nil
}

func parsePlayers(list string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate player name %q", name)
		}
		seen[name] = true
		names = append(names, name)
	}

	if len(names) < 1 || len(names) > tournament.Slots {
		return nil, fmt.Errorf("tournament needs 1 to %d players, got %d", tournament.Slots, len(names))
	}
	return names, nil
}

// Tuning holds the gameplay and AI constants that can be overridden from a
// TOML file
type Tuning struct {
	Court     game.Court       `toml:"court"`
	Physics   game.Physics     `toml:"physics"`
	Rules     game.Rules       `toml:"rules"`
	Heuristic HeuristicTuning  `toml:"heuristic"`
	Learned   ai.LearnedConfig `toml:"learned"`
	Reward    ai.Reward        `toml:"reward"`
}

// HeuristicTuning has one table per difficulty
type HeuristicTuning struct {
	Easy   ai.HeuristicConfig `toml:"easy"`
	Medium ai.HeuristicConfig `toml:"medium"`
	Hard   ai.HeuristicConfig `toml:"hard"`
}

func DefaultTuning() Tuning {
	t := Tuning{
		Court:   game.DefaultCourt(),
		Physics: game.DefaultPhysics(),
		Rules:   game.DefaultRules(),
		Learned: ai.DefaultLearnedConfig(),
		Reward:  ai.DefaultReward(),
	}
	t.Heuristic.Easy, _ = ai.Preset(ai.Easy)
	t.Heuristic.Medium, _ = ai.Preset(ai.Medium)
	t.Heuristic.Hard, _ = ai.Preset(ai.Hard)
	return t
}

// LoadTuning reads path over the defaults. An empty path or a missing file
// gives the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	md, err := toml.DecodeFile(path, &t)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultTuning(), nil
	}
	if err != nil {
		return DefaultTuning(), fmt.Errorf("failed to load tuning %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return DefaultTuning(), fmt.Errorf("unknown tuning keys in %s: %v", path, undecoded)
	}
	if err := t.validate(); err != nil {
		return DefaultTuning(), fmt.Errorf("invalid tuning %s: %w", path, err)
	}
	return t, nil
}

// HeuristicFor returns the tuning for a difficulty
func (t Tuning) HeuristicFor(d ai.Difficulty) ai.HeuristicConfig {
	switch d {
	case ai.Easy:
		return t.Heuristic.Easy
	case ai.Hard:
		return t.Heuristic.Hard
	}
	return t.Heuristic.Medium
}

func (t Tuning) validate() error {
	c := t.Court
	switch {
	case c.HalfHeight <= 0 || c.PaddleX <= 0 || c.GoalX <= c.PaddleX:
		return errors.New("court needs positive half height and goal lines behind the paddles")
	case c.BallRadius <= 0 || c.PaddleHalfHeight <= 0 || c.PaddleHalfWidth <= 0:
		return errors.New("ball and paddle sizes must be positive")
	case c.PaddleLimit+c.PaddleHalfHeight > c.HalfHeight:
		return errors.New("paddle limit lets paddles leave the court")
	case t.Physics.SpeedIncrease < 1 || t.Physics.MaxDelta <= 0:
		return errors.New("physics speed increase must be at least 1 and max delta positive")
	case t.Rules.WinningScore < 1 || t.Rules.WinMargin < 1:
		return errors.New("rules need a positive winning score and margin")
	}
	return nil
}
