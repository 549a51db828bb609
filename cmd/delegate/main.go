// delegate runs a task through the tool-calling agent loop from the
// command line, prompting on the terminal when a tool needs approval.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/delegate/internal/agent"
	"github.com/haasonsaas/delegate/internal/config"
	"github.com/haasonsaas/delegate/internal/dispatch"
	"github.com/haasonsaas/delegate/internal/observability"
	"github.com/haasonsaas/delegate/internal/permission"
	"github.com/haasonsaas/delegate/internal/providers"
	"github.com/haasonsaas/delegate/pkg/models"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "delegate",
		Short: "delegate - autonomous tool-calling agent loop",
		Long: `delegate hands a task to an LLM agent that works through it with
shell, HTTP, builtin, and remote tools. Sensitive commands pause for
approval on the terminal before they run.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := observability.NewLogger(observability.LogConfig{
				Level:  logLevel,
				Format: logFormat,
				Output: os.Stderr,
			})
			slog.SetDefault(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "delegate.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildToolsCmd(),
	)
	return rootCmd
}

func buildRunCmd() *cobra.Command {
	var (
		taskContext   string
		expected      string
		providerName  string
		model         string
		maxToolCalls  int
		timeout       time.Duration
		autoConfirm   bool
		abortOnReject bool
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run one delegation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Root().PersistentFlags().Changed("config"))
			if err != nil {
				return err
			}
			if providerName == "" {
				providerName = cfg.Provider
			}
			if model == "" {
				model = cfg.Model
			}
			if maxToolCalls == 0 {
				maxToolCalls = cfg.MaxToolCalls
			}
			if timeout == 0 && cfg.TimeoutSeconds > 0 {
				timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
			}

			registry := prometheus.NewRegistry()
			metrics := observability.NewMetrics(registry)
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						slog.Error("metrics server failed", "error", err)
					}
				}()
			}

			provider, err := buildProvider(providerName)
			if err != nil {
				return err
			}

			console := newConsole(os.Stdin, os.Stdout)
			gate := permission.NewGate(permission.WithLogger(slog.Default()))
			gate.Subscribe(newConsoleGateObserver(console, gate, metrics))

			dispatcher := dispatch.New(dispatch.Options{
				Registry: dispatch.NewRegistry(),
				Custom:   cfg.Tools,
				Gate:     gate,
				Metrics:  metrics,
				Logger:   slog.Default(),
			})

			loop := agent.NewLoop(agent.Options{
				Provider:   provider,
				Dispatcher: dispatcher,
				Observer:   console,
				Metrics:    metrics,
				Logger:     slog.Default(),
			})

			sessionID := uuid.NewString()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				gate.ClearSession(sessionID)
			}()

			req := models.DelegationRequest{
				Task:            args[0],
				Context:         taskContext,
				ExpectedOutcome: expected,
				SessionID:       sessionID,
				MessageID:       uuid.NewString(),
			}
			agentCtx := models.AgentContext{
				SessionID:            sessionID,
				MessageID:            req.MessageID,
				Provider:             providerName,
				Model:                model,
				MaxToolCalls:         maxToolCalls,
				Timeout:              timeout,
				AutoConfirmDangerous: autoConfirm,
				AbortOnReject:        abortOnReject || cfg.AbortOnReject,
			}

			result, err := loop.Run(ctx, req, agentCtx)
			if err != nil {
				return err
			}
			console.printResult(result)
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskContext, "context", "", "Background context for the task")
	cmd.Flags().StringVar(&expected, "expect", "", "Hint describing a successful outcome")
	cmd.Flags().StringVar(&providerName, "provider", "", "LLM provider (anthropic, openai)")
	cmd.Flags().StringVar(&model, "model", "", "Model override")
	cmd.Flags().IntVar(&maxToolCalls, "max-tool-calls", 0, "Tool call budget (default 25)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Delegation timeout (0 = none)")
	cmd.Flags().BoolVar(&autoConfirm, "yes", false, "Auto-confirm gated tools without prompting")
	cmd.Flags().BoolVar(&abortOnReject, "abort-on-reject", false, "Stop the delegation when a permission is rejected")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func buildToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List configured tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Root().PersistentFlags().Changed("config"))
			if err != nil {
				return err
			}
			if len(cfg.Tools) == 0 {
				fmt.Println("no tools configured")
				return nil
			}
			for _, def := range cfg.Tools {
				gated := ""
				if def.Gated() {
					gated = " (requires approval)"
				}
				fmt.Printf("%-20s %-8s %s%s\n", def.Name, def.Kind, def.Description, gated)
			}
			return nil
		},
	}
}

// loadConfig reads the config file. A missing file is tolerated only
// for the default path; a path passed via --config must exist.
func loadConfig(explicit bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &config.Config{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

func buildProvider(name string) (agent.LLMProvider, error) {
	switch name {
	case "", "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: key})
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: key})
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
