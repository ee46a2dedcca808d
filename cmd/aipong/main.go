package main

import (
	"fmt"
	"os"

	"github.com/diegok/aipong/internal/app"
	"github.com/diegok/aipong/internal/config"
)

func main() {
	cfg, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if cfg.Mode == config.ModeTrain {
		fmt.Printf("Training for %d episodes, progress is logged to %s\n", cfg.Episodes, cfg.LogFile)
		fmt.Println("Press Ctrl+C to stop early and keep what was learned")
	}

	application := app.NewApp(cfg)
	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  aipong [--mode pve] [options]           Play against the computer")
	fmt.Fprintln(os.Stderr, "  aipong --mode pvp [options]             Two players on one keyboard")
	fmt.Fprintln(os.Stderr, "  aipong --mode tournament --players a,b  Eight player bracket, filled with AI")
	fmt.Fprintln(os.Stderr, "  aipong --mode train [--episodes n]      Train the learned AI headless")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  --ai heuristic|learned       Computer opponent (default: heuristic)")
	fmt.Fprintln(os.Stderr, "  --difficulty easy|medium|hard")
	fmt.Fprintln(os.Stderr, "  --p1 <name>, --p2 <name>     Player names")
	fmt.Fprintln(os.Stderr, "  --data <dir>                 History and policies (default: .aipong)")
	fmt.Fprintln(os.Stderr, "  --tuning <file>              TOML tuning overrides")
	fmt.Fprintln(os.Stderr, "  --fps <n>                    Frames per second (default: 60)")
	fmt.Fprintln(os.Stderr, "  --loglevel <level>, --log <file>")
	fmt.Fprintln(os.Stderr, "  --mute                       Disable sound")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Keys: W/S and arrows move, p pauses, q or Esc quits")
}
