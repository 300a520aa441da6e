// Command chat runs the concierge dialogue pipeline from a terminal, one turn
// per input line, printing each structured response as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stazy/concierge/internal/app/bootstrap"
	appconfig "github.com/stazy/concierge/internal/config"
	"github.com/stazy/concierge/internal/dialogue"
	"github.com/stazy/concierge/pkg/logging"
)

// TurnHandler is the slice of the dialogue manager the loop needs.
type TurnHandler interface {
	HandleTurn(ctx context.Context, t dialogue.Turn) dialogue.Response
}

func main() {
	userID := flag.String("user", "cli", "user id used for conversation memory")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	app, err := bootstrap.BuildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build concierge", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var in io.Reader = os.Stdin
	if args := flag.Args(); len(args) > 0 {
		in = strings.NewReader(strings.Join(args, " "))
	}
	if err := loop(ctx, app.Dialogue, *userID, in, os.Stdout); err != nil {
		logger.Error("chat loop failed", "error", err)
		os.Exit(1)
	}
}

func loop(ctx context.Context, turns TurnHandler, userID string, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		resp := turns.HandleTurn(ctx, dialogue.Turn{UserID: userID, Message: message})
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("chat: encode response: %w", err)
		}
	}
	return scanner.Err()
}
