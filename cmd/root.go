package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MimeLyc/batch-sub-translator/internal/config"
	"github.com/MimeLyc/batch-sub-translator/internal/llm"
	"github.com/MimeLyc/batch-sub-translator/internal/persistence"
	"github.com/MimeLyc/batch-sub-translator/internal/service"
	"github.com/MimeLyc/batch-sub-translator/internal/translator"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// errFoldersFailed is returned after the summary has been printed.
var errFoldersFailed = errors.New("some folders failed")

type cliOptions struct {
	sourceName   string
	sourceCode   string
	model        string
	ollamaURL    string
	force        bool
	skipExisting bool
	noSkip       bool
	workers      int
	timeout      int
	maxAttempts  int
	maxLines     int
	configFile   string
	saveConfig   string
	envFile      string
	logLevel     string
	logFormat    string
	logFile      string
	historyDB    string
	cronExpr     string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "srt-translate movies_root_dir target_language_name target_language_code",
		Short: "Translate SRT subtitles of every movie folder with a local Ollama model",
		Long: `srt-translate walks the immediate subdirectories of movies_root_dir, picks the
subtitle in the source language in each one and writes a translated copy next
to it, named after the target language code (sub_en.srt -> sub_nl.srt).`,
		Example:       "  srt-translate /media/movies Dutch nl --workers 2 --model qwen3:30b-a3b",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.sourceName, "source_language_name", "English", "Name of the source language used in prompts")
	flags.StringVar(&opts.sourceCode, "source_language_code", "en", "Code of the source language in subtitle file names")
	flags.StringVar(&opts.model, "model", llm.DefaultModel, "Ollama model to translate with")
	flags.StringVar(&opts.ollamaURL, "ollama_url", llm.DefaultURL, "Ollama generate endpoint")
	flags.BoolVar(&opts.force, "force_translate", false, "Translate even when a target subtitle already exists")
	flags.BoolVar(&opts.skipExisting, "skip_if_target_exists", true, "Skip folders that already have a target subtitle")
	flags.BoolVar(&opts.noSkip, "no-skip_if_target_exists", false, "Translate folders even when a target subtitle exists")
	flags.IntVar(&opts.workers, "workers", 3, "Movie folders translated at the same time")
	flags.IntVar(&opts.timeout, "timeout", int(llm.DefaultTimeout/time.Second), "Timeout of one generate request in seconds")
	flags.IntVar(&opts.maxAttempts, "max_attempts", llm.DefaultMaxAttempts, "Attempts per subtitle entry")
	flags.IntVar(&opts.maxLines, "max_lines", 0, "Maximum lines per translated entry, 0 keeps the source line count")
	flags.StringVar(&opts.configFile, "config", "", "JSON settings file")
	flags.StringVar(&opts.saveConfig, "save_config", "", "Write the effective settings to this JSON file")
	flags.StringVar(&opts.envFile, "env_file", ".env", "Environment file loaded before reading variables")
	flags.StringVar(&opts.logLevel, "log_level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log_format", "console", "Log format: console or json")
	flags.StringVar(&opts.logFile, "log_file", "", "Also write JSON logs to this file")
	flags.StringVar(&opts.historyDB, "history_db", "", "SQLite file recording run history")
	flags.StringVar(&opts.cronExpr, "cron", "", "Run on this cron schedule instead of once")
	rootCmd.MarkFlagsMutuallyExclusive("skip_if_target_exists", "no-skip_if_target_exists")

	rootCmd.AddCommand(newHistoryCommand())
	return rootCmd
}

// apply copies the positional arguments and every flag set on the command
// line onto the configuration.
func (o *cliOptions) apply(flags *pflag.FlagSet, args []string) config.Option {
	return func(c *config.Config) {
		c.Translate.TargetLanguageName = args[1]
		c.Translate.TargetLanguageCode = args[2]

		changed := flags.Changed
		if changed("source_language_name") {
			c.Translate.SourceLanguageName = o.sourceName
		}
		if changed("source_language_code") {
			c.Translate.SourceLanguageCode = o.sourceCode
		}
		if changed("model") {
			c.LLM.Model = o.model
		}
		if changed("ollama_url") {
			c.LLM.URL = o.ollamaURL
		}
		if changed("force_translate") {
			c.Translate.Force = o.force
		}
		if changed("skip_if_target_exists") {
			c.Translate.SkipIfTargetExists = o.skipExisting
		}
		if changed("no-skip_if_target_exists") {
			c.Translate.SkipIfTargetExists = !o.noSkip
		}
		if changed("workers") {
			c.Translate.Workers = o.workers
		}
		if changed("timeout") {
			c.LLM.Timeout = o.timeout
		}
		if changed("max_attempts") {
			c.LLM.MaxAttempts = o.maxAttempts
		}
		if changed("max_lines") {
			c.Translate.MaxLines = o.maxLines
		}
		if changed("log_level") {
			c.System.LogLevel = o.logLevel
		}
		if changed("log_format") {
			c.System.LogFormat = o.logFormat
		}
		if changed("log_file") {
			c.System.LogFile = o.logFile
		}
		if changed("history_db") {
			c.System.HistoryDB = o.historyDB
		}
		if changed("cron") {
			c.Translate.CronExpr = o.cronExpr
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string, opts *cliOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	var configOpts []config.Option
	if opts.configFile != "" {
		settings, err := config.LoadSettingsFile(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		configOpts = append(configOpts, config.WithSettings(settings))
	}
	configOpts = append(configOpts, opts.apply(cmd.Flags(), args))

	cfg, err := config.NewFromEnv(configOpts...)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "invalid configuration")
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) (*log.Logger, func(), error) {
	if cfg.System.LogFile == "" {
		return log.New(os.Stderr, cfg.LogLevel(), cfg.LogFormat()), func() {}, nil
	}
	fl, err := log.NewTeeLogger(os.Stderr, cfg.LogFormat(), cfg.System.LogFile, cfg.LogLevel())
	if err != nil {
		return nil, nil, err
	}
	return fl.Logger, func() { _ = fl.Close() }, nil
}

func runTranslate(cmd *cobra.Command, args []string, opts *cliOptions) error {
	ctx := cmd.Context()
	root := args[0]

	cfg, err := loadConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	log.SetLogger(logger)

	if opts.saveConfig != "" {
		if err := config.WriteSettingsFile(opts.saveConfig, cfg.Settings()); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		logger.Info("Saved settings to %s", opts.saveConfig)
	}

	printBanner(logger, root, cfg)

	client, err := llm.NewClient(cfg.LLMClientConfig(), llm.WithLogger(logger))
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "invalid LLM configuration")
	}
	checkServer(cmd, client, logger)

	cli := translator.NewLLMTranslator(client, translator.Options{
		Source:                 cfg.Source(),
		Target:                 cfg.Target(),
		Lines:                  translator.LinePolicy{Fixed: cfg.Translate.MaxLines},
		MaxConsecutiveFailures: cfg.Translate.MaxConsecutiveFailures,
	})
	fileTranslator := service.NewFileTranslator(service.TranslatorConfig{
		Source:             cfg.Source(),
		Target:             cfg.Target(),
		Force:              cfg.Translate.Force,
		SkipIfTargetExists: cfg.Translate.SkipIfTargetExists,
	}, cli)

	schedulerOpts := []service.SchedulerOption{service.WithLogger(logger)}
	if cfg.System.HistoryDB != "" {
		store, err := persistence.NewSQLiteStore(cfg.System.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		schedulerOpts = append(schedulerOpts, service.WithHistory(store))
	}
	if isatty.IsTerminal(os.Stderr.Fd()) && cfg.LogFormat() == log.FormatConsole {
		schedulerOpts = append(schedulerOpts, service.WithProgress(os.Stderr))
	}

	scheduler := service.NewScheduler(fileTranslator, service.SchedulerConfig{
		Workers: cfg.Translate.Workers,
		Source:  cfg.Source(),
		Target:  cfg.Target(),
		Model:   cfg.LLM.Model,
	}, schedulerOpts...)

	out := cmd.OutOrStdout()
	if cfg.Translate.CronExpr != "" {
		return scheduler.Schedule(ctx, root, cfg.Translate.CronExpr, func(summary service.Summary) {
			if err := service.RenderSummary(out, summary); err != nil {
				logger.Warn("Failed to print summary: %v", err)
			}
		})
	}

	summary, err := scheduler.Run(ctx, root)
	if err != nil {
		return err
	}
	if err := service.RenderSummary(out, summary); err != nil {
		logger.Warn("Failed to print summary: %v", err)
	}
	if ctx.Err() != nil {
		logger.Warn("Interrupted, %d folder(s) were not translated", summary.Failed)
	}
	if summary.ExitCode() != 0 {
		return errFoldersFailed
	}
	return nil
}

func printBanner(logger *log.Logger, root string, cfg *config.Config) {
	logger.Info("Movies directory: %s", root)
	logger.Info("Translating %s -> %s", cfg.Source(), cfg.Target())
	logger.Info("Model %s at %s (timeout %ds, %d attempt(s))", cfg.LLM.Model, cfg.LLM.URL, cfg.LLM.Timeout, cfg.LLM.MaxAttempts)
	logger.Info("Workers: %d, force: %t, skip if target exists: %t", cfg.Translate.Workers, cfg.Translate.Force, cfg.Translate.SkipIfTargetExists)
	if cfg.Translate.CronExpr != "" {
		logger.Info("Cron schedule: %s", cfg.Translate.CronExpr)
	}
	if cfg.System.HistoryDB != "" {
		logger.Info("Run history: %s", cfg.System.HistoryDB)
	}
}

// checkServer warns when Ollama is unreachable or lacks the model; the run
// goes on either way.
func checkServer(cmd *cobra.Command, client *llm.Client, logger *log.Logger) {
	models, err := client.Ping(cmd.Context())
	if err != nil {
		logger.Warn("Ollama server check failed: %v", err)
		return
	}
	if !llm.HasModel(models, client.Model()) {
		logger.Warn("Model %s is not installed on the Ollama server", client.Model())
	}
}
