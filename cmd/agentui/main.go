// ABOUTME: Interactive terminal client for agno playground and dynamic-agent backends
// ABOUTME: Wires config, the HTTP client, the session cache, and the chat service into a readline loop

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/dougss/agno-agent-ui/internal/api"
	"github.com/dougss/agno-agent-ui/internal/chat"
	"github.com/dougss/agno-agent-ui/internal/config"
	"github.com/dougss/agno-agent-ui/internal/session"
	"github.com/dougss/agno-agent-ui/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	server := flag.String("server", "", "Backend endpoint URL (overrides config)")
	agentID := flag.String("agent", "", "Agent id to converse with")
	teamID := flag.String("team", "", "Team id to converse with")
	userID := flag.String("user", "", "User id forwarded on runs (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.Endpoint.URL = *server
	}
	if *userID != "" {
		cfg.Chat.UserID = *userID
	}

	logger := newLogger(cfg.Logging)

	ui, err := loadUIConfig()
	if err != nil {
		logger.Warn("ui config unavailable, using defaults", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, ui, *agentID, *teamID, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

// loadConfig reads the YAML config from the given path, or from the XDG
// default when present, or falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configDir = filepath.Join(home, ".config")
		}
	}
	if configDir != "" {
		candidate := filepath.Join(configDir, "agentui", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return config.Default(), nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// targetRunner binds the HTTP client to one conversation target, giving the
// chat service its narrow run surface.
type targetRunner struct {
	client *api.Client
	target api.Target
	userID string
}

func (r *targetRunner) StartRun(ctx context.Context, message, sessionID string) (io.ReadCloser, error) {
	return r.client.StartRun(ctx, r.target, api.RunRequest{
		Message:   message,
		SessionID: sessionID,
		UserID:    r.userID,
	})
}

func (r *targetRunner) RunOnce(ctx context.Context, message, sessionID string) (json.RawMessage, error) {
	return r.client.RunOnce(ctx, r.target, api.RunRequest{
		Message:   message,
		SessionID: sessionID,
		UserID:    r.userID,
	})
}

// app holds the wired pieces of one interactive conversation.
type app struct {
	client    *api.Client
	svc       *chat.Service
	ledger    *session.Ledger
	cache     *store.SessionCache
	target    api.Target
	streaming bool
	display   *display
	ui        UIConfig
	logger    *slog.Logger
}

func run(ctx context.Context, cfg *config.Config, ui UIConfig, agentID, teamID string, logger *slog.Logger) error {
	disp := newDisplay(ui)
	notifier := terminalNotifier{errColor: color.New(color.FgRed)}

	token := cfg.Endpoint.AuthToken
	if token == "" {
		token = os.Getenv("AGNO_API_TOKEN")
	}

	client := api.NewClient(cfg.Endpoint.URL, logger,
		api.WithToken(token), api.WithNotifier(notifier))

	target, err := resolveTarget(ctx, client, agentID, teamID)
	if err != nil {
		return err
	}

	var (
		cache     *store.SessionCache
		persister session.Persister
	)
	if cfg.Cache.Path != "" {
		cache, err = store.OpenSessionCache(cfg.Cache.Path, logger)
		if err != nil {
			logger.Warn("session cache unavailable", "error", err)
		} else {
			defer cache.Close()
			persister = cache.ForTarget(targetKey(target))
		}
	}

	ledger := session.New(persister, logger)
	svc := chat.NewService(
		&targetRunner{client: client, target: target, userID: cfg.Chat.UserID},
		chat.NewReducer(ledger, logger),
		logger,
	)

	a := &app{
		client:    client,
		svc:       svc,
		ledger:    ledger,
		cache:     cache,
		target:    target,
		streaming: cfg.Chat.StreamingEnabled(),
		display:   disp,
		ui:        ui,
		logger:    logger,
	}

	a.preloadSessions(ctx)

	fmt.Printf("agentui connected to %s (%s %s)\n", cfg.Endpoint.URL, target.Kind, target.ID)
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	return a.loop(ctx)
}

// resolveTarget picks the conversation target from flags, or the first
// discovered agent (then team) when none was given.
func resolveTarget(ctx context.Context, client *api.Client, agentID, teamID string) (api.Target, error) {
	switch {
	case teamID != "":
		return api.TeamTarget(teamID), nil
	case agentID != "":
		return api.AgentTarget(agentID), nil
	}

	if agents := client.ListAgents(ctx); len(agents) > 0 {
		return api.AgentTarget(agents[0].ID), nil
	}
	if teams := client.ListTeams(ctx); len(teams) > 0 {
		return api.TeamTarget(teams[0].ID), nil
	}
	return api.Target{}, fmt.Errorf("no agents or teams available; pass -agent or -team")
}

func targetKey(t api.Target) string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// preloadSessions seeds the ledger from the local cache so the session list
// is usable before the backend answers.
func (a *app) preloadSessions(ctx context.Context) {
	if a.cache == nil {
		return
	}
	entries, err := a.cache.Load(ctx, targetKey(a.target))
	if err != nil {
		a.logger.Warn("loading cached sessions failed", "error", err)
		return
	}
	if len(entries) > 0 {
		a.ledger.Replace(entries)
	}
}

func (a *app) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print(a.display.ui.Prompt)

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else if err := scanner.Err(); err != nil {
				errCh <- err
			} else {
				errCh <- io.EOF
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.command(ctx, input); quit {
				return nil
			}
			continue
		}

		if err := a.sendTurn(ctx, input); err != nil {
			a.display.errColor.Printf("[error] %v\n", err)
		}
		fmt.Println()
	}
}

// command dispatches one slash command; returns true when the loop should
// exit.
func (a *app) command(ctx context.Context, input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		printHelp()
	case "/agents":
		a.printInfos(a.client.ListAgents(ctx), "agents")
	case "/teams":
		a.printInfos(a.client.ListTeams(ctx), "teams")
	case "/dynamic":
		a.printDynamicAgents(ctx)
	case "/sessions":
		a.refreshSessions(ctx)
	case "/load":
		a.loadSession(ctx, arg)
	case "/delete":
		a.deleteSession(ctx, arg)
	case "/new":
		if err := a.svc.Reset(); err != nil {
			a.display.errColor.Printf("[error] %v\n", err)
		} else {
			fmt.Println("Started a new conversation")
		}
	case "/status":
		a.printStatus(ctx)
	case "/export":
		a.export(arg)
	default:
		fmt.Printf("Unknown command %s; /help for commands\n", cmd)
	}
	fmt.Println()
	return false
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /agents          List playground agents")
	fmt.Println("  /teams           List playground teams")
	fmt.Println("  /dynamic         List dynamic agents")
	fmt.Println("  /sessions        List sessions for the current target")
	fmt.Println("  /load <n|id>     Load a session transcript")
	fmt.Println("  /delete <n|id>   Delete a session")
	fmt.Println("  /new             Start a new conversation")
	fmt.Println("  /status          Check backend availability")
	fmt.Println("  /export <file>   Export the conversation as HTML")
	fmt.Println("  /help            Show this help")
	fmt.Println("  /quit            Exit")
}

// sendTurn runs one turn and renders progress until it settles.
func (a *app) sendTurn(ctx context.Context, input string) error {
	a.display.beginTurn()

	subCtx, unsubscribe := context.WithCancel(context.Background())
	defer unsubscribe()
	snapshots, _ := a.svc.Subscribe(subCtx)

	done := make(chan error, 1)
	go func() {
		now := time.Now().Unix()
		if a.streaming {
			done <- a.svc.SendMessage(ctx, input, now)
		} else {
			done <- a.svc.SendMessageOnce(ctx, input, now)
		}
	}()

	ctxDone := ctx.Done()
	for {
		select {
		case <-ctxDone:
			a.svc.CancelTurn()
			ctxDone = nil
		case err := <-done:
			if err != nil {
				return err
			}
			done = nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			a.display.renderProgress(snap)
			if snap.Phase == chat.PhaseCompleted || snap.Phase == chat.PhaseErrored {
				return nil
			}
		}
	}
}

func (a *app) printInfos(infos []api.AgentInfo, what string) {
	if len(infos) == 0 {
		fmt.Printf("No %s available\n", what)
		return
	}
	for _, info := range infos {
		storage := ""
		if info.Storage {
			storage = " [sessions]"
		}
		fmt.Printf("  %s: %s (%s)%s\n", info.ID, info.Name, info.Model.Provider, storage)
	}
}

func (a *app) printDynamicAgents(ctx context.Context) {
	agents := a.client.ListDynamicAgents(ctx)
	if len(agents) == 0 {
		fmt.Println("No dynamic agents available")
		return
	}
	for _, agent := range agents {
		model := ""
		if agent.ModelConfig != nil && agent.ModelConfig.ModelID != "" {
			model = " (" + agent.ModelConfig.ModelID + ")"
		}
		fmt.Printf("  %s: %s%s\n", agent.ID, agent.Name, model)
	}
}

// refreshSessions pulls the authoritative list from the backend, updates the
// ledger and local cache, and prints it. An empty backend answer keeps the
// cached list.
func (a *app) refreshSessions(ctx context.Context) {
	entries := a.client.ListSessions(ctx, a.target)
	if len(entries) > 0 {
		a.ledger.Replace(entries)
		if a.cache != nil {
			if err := a.cache.ReplaceAll(ctx, targetKey(a.target), entries); err != nil {
				a.logger.Warn("caching sessions failed", "error", err)
			}
		}
	}

	cached := a.ledger.Entries()
	if len(cached) == 0 {
		fmt.Println("No sessions")
		return
	}
	for i, e := range cached {
		when := time.Unix(e.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Printf("  %2d. %s  %s  (%s)\n", i+1, when, e.Title, e.SessionID)
	}
}

// resolveSessionID accepts either a list index from the last /sessions
// output or a raw session id.
func (a *app) resolveSessionID(arg string) (string, bool) {
	if arg == "" {
		return "", false
	}
	if n, err := strconv.Atoi(arg); err == nil {
		entries := a.ledger.Entries()
		if n < 1 || n > len(entries) {
			return "", false
		}
		return entries[n-1].SessionID, true
	}
	return arg, true
}

func (a *app) loadSession(ctx context.Context, arg string) {
	id, ok := a.resolveSessionID(arg)
	if !ok {
		fmt.Println("Usage: /load <n|session-id>")
		return
	}

	messages, err := a.client.GetSession(ctx, a.target, id)
	if err != nil {
		a.display.errColor.Printf("[error] %v\n", err)
		return
	}
	if err := a.svc.LoadTranscript(messages, id); err != nil {
		a.display.errColor.Printf("[error] %v\n", err)
		return
	}
	a.display.renderTranscript(messages)
}

func (a *app) deleteSession(ctx context.Context, arg string) {
	id, ok := a.resolveSessionID(arg)
	if !ok {
		fmt.Println("Usage: /delete <n|session-id>")
		return
	}

	if err := a.client.DeleteSession(ctx, a.target, id); err != nil {
		// The notifier already surfaced it; the local list stays intact.
		return
	}
	a.ledger.Evict(id)
	fmt.Println("Session deleted")
}

func (a *app) printStatus(ctx context.Context) {
	code, err := a.client.Status(ctx)
	if err != nil {
		a.display.errColor.Printf("Backend unreachable: %v\n", err)
		return
	}
	if code >= 200 && code <= 299 {
		fmt.Printf("Backend available (HTTP %d)\n", code)
	} else {
		a.display.errColor.Printf("Backend degraded (HTTP %d)\n", code)
	}
}

func (a *app) export(arg string) {
	if arg == "" {
		fmt.Println("Usage: /export <file.html>")
		return
	}
	state := a.svc.State()
	if len(state.Messages) == 0 {
		fmt.Println("Nothing to export")
		return
	}
	if err := exportHTML(state.Messages, a.target.ID, arg, a.ui); err != nil {
		a.display.errColor.Printf("[error] %v\n", err)
		return
	}
	fmt.Printf("Exported %d messages to %s\n", len(state.Messages), arg)
}
