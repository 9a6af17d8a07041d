// Command navimate drives a browser toward a natural-language goal using an
// LLM decision loop.
//
//	navimate -goal "order a margherita pizza to my home address"
//	navimate -goal "open example.com" -headed
//	navimate -goal "check my cart" -cdp ws://127.0.0.1:9222/devtools/browser/...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/navimate/navimate/pkg/agent"
	"github.com/navimate/navimate/pkg/agent/interrupt"
	"github.com/navimate/navimate/pkg/browser"
	"github.com/navimate/navimate/pkg/config"
	"github.com/navimate/navimate/pkg/llm/openai"
	"github.com/navimate/navimate/pkg/llm/tokenizer"
	"github.com/navimate/navimate/pkg/logging"
	"github.com/navimate/navimate/pkg/profile"
)

const version = "0.1.0"

type cliFlags struct {
	goal        string
	configFile  string
	profileFile string
	model       string
	cdpEndpoint string
	maxSteps    int
	headed      bool
	showVersion bool
}

func main() {
	flags := parseFlags()
	if flags.showVersion {
		fmt.Printf("navimate v%s\n", version)
		return
	}
	if flags.goal == "" {
		fmt.Fprintln(os.Stderr, "a goal is required: navimate -goal \"...\"")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		log.Printf("run failed: %v", err)
		os.Exit(1)
	}
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}
	flag.StringVar(&flags.goal, "goal", "", "Natural-language goal for the agent (required)")
	flag.StringVar(&flags.configFile, "config", "", "Path to YAML configuration file")
	flag.StringVar(&flags.profileFile, "profile", "", "Path to YAML user profile (overrides config)")
	flag.StringVar(&flags.model, "model", "", "Completion model id (overrides config)")
	flag.StringVar(&flags.cdpEndpoint, "cdp", "", "Attach to an existing browser over CDP instead of launching one")
	flag.IntVar(&flags.maxSteps, "max-steps", 0, "Maximum decision steps (overrides config)")
	flag.BoolVar(&flags.headed, "headed", false, "Run the browser with a visible window")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version and exit")
	flag.Parse()
	return flags
}

func run(ctx context.Context, flags *cliFlags) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, flags)

	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		log.Printf("file logging unavailable: %v", logErr)
	}
	defer logger.Close()
	logger.Infof("navimate v%s starting, model=%s", version, cfg.Model)

	prof, profErr := profile.Load(cfg.ProfilePath)
	if profErr != nil {
		logger.Warnf("%v", profErr)
	}

	provider, err := openai.NewProvider(cfg.APIKey, cfg.BaseURL, openai.WithModel(cfg.Model))
	if err != nil {
		return err
	}

	session, err := browser.NewSession(browser.SessionOptions{
		Headless:    cfg.Headless,
		CDPEndpoint: cfg.CDPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warnf("session close: %v", err)
		}
	}()

	opts := []agent.Option{
		agent.WithMaxSteps(cfg.MaxSteps),
		agent.WithDialogPolicy(cfg.DialogPolicy),
	}
	if tok, err := tokenizer.New(); err == nil {
		opts = append(opts, agent.WithTokenizer(tok))
	} else {
		logger.Warnf("token counting disabled: %v", err)
	}

	policy := interrupt.NewPolicy(interrupt.KeywordClassifier{}, interrupt.NewStdinPrompter(nil, nil), logger)
	controller := agent.NewController(provider, session.Page(), prof, policy,
		cfg.BlockedURLPatterns, logger, opts...)

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout))
		defer cancel()
	}

	result, err := controller.Run(runCtx, flags.goal)
	if err != nil {
		return err
	}

	fmt.Printf("Run finished: %s\n", result.Reason)
	fmt.Printf("Steps taken:  %d\n", result.Steps)
	fmt.Printf("Final URL:    %s\n", result.FinalURL)
	if result.LastMessage != "" {
		fmt.Printf("\n%s\n", result.LastMessage)
	}
	fmt.Fprintf(os.Stderr, "Debug log: %s\n", logger.LogPath())
	return nil
}

func applyFlagOverrides(cfg *config.Config, flags *cliFlags) {
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.profileFile != "" {
		cfg.ProfilePath = flags.profileFile
	}
	if flags.cdpEndpoint != "" {
		cfg.CDPEndpoint = flags.cdpEndpoint
	}
	if flags.maxSteps > 0 {
		cfg.MaxSteps = flags.maxSteps
	}
	if flags.headed {
		cfg.Headless = false
	}
}
