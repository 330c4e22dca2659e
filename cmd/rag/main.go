package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"reimburse/internal/app"
	"reimburse/internal/config"
	"reimburse/internal/logging"
	"reimburse/internal/tui"
	"reimburse/internal/watcher"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  string   `help:"Path to YAML config file (uses ./config.yaml or ~/.config/reimburse/config.yaml if not provided)." type:"path"`
	EnvFile []string `help:"Environment files to load before reading the config." default:".env" name:"env-file"`
}

func (g *Globals) load() (*config.AppConfig, error) {
	if err := config.LoadEnv(g.EnvFile...); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if g.Config != "" {
		return config.Load(g.Config)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// TUICmd runs the interactive assistant.
type TUICmd struct {
	Watch bool   `help:"Re-process the document when it changes on disk."`
	File  string `arg:"" optional:"" help:"CSV or JSON tariff document to load on start." type:"path"`
}

func (c *TUICmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.ForTUI(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	var opts []tui.Option
	if c.File != "" {
		opts = append(opts, tui.WithDocument(c.File))
		if c.Watch || cfg.Watch {
			w, err := watcher.New(c.File, watcher.DefaultDebounce, logger)
			if err != nil {
				return err
			}
			defer w.Close()
			changes, err := w.Watch(ctx)
			if err != nil {
				return fmt.Errorf("watch %s: %w", c.File, err)
			}
			logger.Info("watching document", zap.String("path", w.Path()))
			opts = append(opts, tui.WithChanges(changes))
		}
	}

	m := tui.New(ctx, a.Session, opts...)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// AskCmd answers a single question and exits.
type AskCmd struct {
	File     string   `arg:"" help:"CSV or JSON tariff document." type:"path"`
	Question []string `arg:"" help:"Question about the tariff."`
}

func (c *AskCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.ForCLI(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if _, err := a.Session.ProcessFile(ctx, c.File); err != nil {
		return err
	}
	reply, err := a.Session.Ask(ctx, strings.Join(c.Question, " "))
	if err != nil {
		return err
	}
	fmt.Println(reply.Display())
	return nil
}

var cli struct {
	Globals

	TUI TUICmd `cmd:"" name:"tui" default:"withargs" help:"Start the interactive assistant."`
	Ask AskCmd `cmd:"" help:"Answer one question about a tariff document."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("reimburse"),
		kong.Description("Answer hospital reimbursement questions from a CSV or JSON tariff."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}
