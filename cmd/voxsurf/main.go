package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voxsurf/internal/ai"
	"voxsurf/internal/assistant"
	"voxsurf/internal/browser"
	"voxsurf/internal/config"
	. "voxsurf/internal/logging"
	"voxsurf/internal/transcript"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the voxsurf config file")
	logLevel := flag.String("log-level", "", "Optional log level override (debug, info, warn, error)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	Init(cfg.Logging)

	session := browser.New(cfg.Browser, cfg.Search)
	defer session.Close()

	var responder assistant.Responder
	if r := ai.New(cfg.AI); r != nil {
		responder = r
		L_info("ai fallback enabled", "model", cfg.AI.Model)
	}

	dispatcher := assistant.New(cfg, session, responder)

	if dir := cfg.Assistant.TranscriptDir; dir != "" {
		rec, err := transcript.New(dir)
		if err != nil {
			L_warn("transcript recording disabled", "error", err)
		} else if err := rec.Start(); err != nil {
			L_warn("transcript recording disabled", "error", err)
		} else {
			defer rec.Close()
			dispatcher.SetRecorder(rec)
			L_info("recording transcripts", "dir", dir, "run", rec.RunID())
		}
	}

	L_info("voxsurf ready, type a command (\"quit\" to exit)")
	if err := runLoop(ctx, dispatcher); err != nil {
		L_error("command loop failed", "error", err)
		os.Exit(1)
	}
}

// runLoop reads one utterance per line and speaks the reply on stdout. It is
// the text stand-in for a speech front end; the dispatcher does not care
// where utterances come from.
func runLoop(ctx context.Context, d *assistant.Dispatcher) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			L_info("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			utterance := strings.TrimSpace(line)
			if utterance == "" {
				continue
			}
			if isExit(utterance) {
				fmt.Println(d.Handle(ctx, "close the browser"))
				return nil
			}
			fmt.Println(d.Handle(ctx, utterance))
		}
	}
}

func isExit(utterance string) bool {
	switch strings.ToLower(utterance) {
	case "quit", "exit", "goodbye", "bye":
		return true
	}
	return false
}
