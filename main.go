package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"postgen/app"
	"postgen/config"
	"postgen/generator"
	"postgen/imagegen"
	"postgen/logger"
	"postgen/placeholder"
	"postgen/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// commandEnv bundles what a command needs after config and logging are set up.
type commandEnv struct {
	log    *logger.Logger
	runner *app.Runner
}

type globalFlags struct {
	configPath string
	workbook   string
	sheet      string
	verbose    bool
	dryRun     bool
}

func setup(flags *globalFlags, withImages bool) (*commandEnv, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.workbook != "" {
		cfg.Workbook.Path = flags.workbook
	}
	if flags.sheet != "" {
		cfg.Workbook.Sheet = flags.sheet
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(!flags.dryRun); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout()}
	llm, err := buildLLM(cfg, flags.dryRun, httpClient)
	if err != nil {
		return nil, err
	}
	policy := retry.New(cfg.LLM.MaxRetries)
	agent, err := generator.NewAgent(llm, policy, cfg.LLM.PlainText, log.With("component", "text"))
	if err != nil {
		return nil, err
	}

	var images app.ImageAcquirer
	if withImages {
		var gen imagegen.Generator
		if !flags.dryRun {
			gen = imagegen.NewClient(imagegen.Config{
				URL:      cfg.LLM.ImageURL,
				APIKey:   cfg.LLM.APIKey,
				Model:    cfg.LLM.ImageModel,
				Size:     cfg.LLM.ImageSize,
				Referer:  cfg.LLM.Referer,
				Title:    cfg.LLM.Title,
				DebugDir: cfg.Images.DebugDir,
				Timeout:  cfg.Timeout(),
			}, httpClient, log.With("component", "image"))
		}
		renderer := placeholder.New(cfg.Placeholder.FontPaths, cfg.Placeholder.Footer)
		acq, err := imagegen.NewAcquirer(gen, renderer, policy, cfg.Images.Dir, httpClient, log.With("component", "image"))
		if err != nil {
			return nil, err
		}
		images = acq
	}

	runner, err := app.New(cfg, agent, images, log)
	if err != nil {
		return nil, err
	}
	return &commandEnv{log: log, runner: runner}, nil
}

func buildLLM(cfg config.Config, dryRun bool, httpClient *http.Client) (generator.LLMClient, error) {
	if dryRun {
		return generator.MockLLM{}, nil
	}
	return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
		Model:      cfg.LLM.TextModel,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Referer:    cfg.LLM.Referer,
		Title:      cfg.LLM.Title,
		TimeoutSec: cfg.LLM.TimeoutSeconds,
	}, httpClient)
}
