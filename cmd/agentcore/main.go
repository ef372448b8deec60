// Command agentcore is a small operator-facing CLI over the core: it runs
// one exec call (through a fresh ExecSupervisor, with no TurnState or
// SessionState) or one read-code call (against a fresh TurnState/SessionState
// pair) and prints the result, for manual exercise and smoke testing. The core
// itself is meant to be embedded in a surrounding agent loop, which wires
// the same ExecSupervisor/ReadCodeTool into its own tool dispatch instead
// of going through this CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coderunner/agentcore/internal/config"
	"github.com/coderunner/agentcore/internal/execcore"
	"github.com/coderunner/agentcore/internal/logger"
	"github.com/coderunner/agentcore/internal/readcode"
	"github.com/coderunner/agentcore/internal/sandbox"
	"github.com/coderunner/agentcore/internal/turnstate"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel string
	var logFile string

	root := &cobra.Command{
		Use:   "agentcore",
		Short: "agentcore — sandboxed tool-execution core",
		Long:  "Runs the exec and read-code tool calls the core implements, for manual exercise and smoke testing outside a full agent loop.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logLevel, logFile)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path (logs always go to stdout; also to this file if set)")

	root.AddCommand(execCmd(), readCodeCmd(), configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadCoreConfig() config.CoreConfig {
	userDir, err := config.GetUserConfigDir()
	if err != nil {
		return config.Default()
	}
	projectDir, err := config.GetProjectDir()
	if err != nil {
		return config.Default()
	}
	m := config.NewManager()
	if err := m.Load(userDir, projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		return config.Default()
	}
	return m.Get()
}

func execCmd() *cobra.Command {
	var sandboxKind string
	var timeoutMS int64
	var cwd string
	var stream bool

	cmd := &cobra.Command{
		Use:   "exec -- <command...>",
		Short: "run a command through ExecSupervisor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCoreConfig()
			kind, err := parseSandboxKind(sandboxKind)
			if err != nil {
				return err
			}

			sandboxExePath := ""
			if kind == sandbox.Linux {
				sandboxExePath, err = os.Executable()
				if err != nil {
					return fmt.Errorf("resolve sandbox helper path: %w", err)
				}
			}

			supervisor := &execcore.ExecSupervisor{
				Kind:            kind,
				SandboxExePath:  sandboxExePath,
				Log:             logger.NewComponent("exec"),
				GenericMaxBytes: cfg.ExecGenericOutputMaxBytes,
				RipgrepMaxBytes: cfg.ExecRipgrepOutputMaxBytes,
				DefaultTimeout:  cfg.ExecDefaultTimeout(),
			}

			params := execcore.ExecParams{Command: args, Cwd: cwd}
			if timeoutMS > 0 {
				params.TimeoutMS = &timeoutMS
			}

			var sub *execcore.Subscriber
			if stream {
				callID := uuid.New().String()
				events := make(chan execcore.DeltaEvent, 64)
				sub = &execcore.Subscriber{CallID: callID, Events: events}
				done := make(chan struct{})
				go func() {
					defer close(done)
					for ev := range events {
						streamName := "stdout"
						if ev.Stream == execcore.StreamStderr {
							streamName = "stderr"
						}
						fmt.Printf("[%s] %s", streamName, ev.Chunk)
					}
				}()
				defer func() {
					close(events)
					<-done
				}()
			}

			result, runErr := supervisor.Run(context.Background(), params, sub)
			if result == nil {
				return runErr
			}

			fmt.Printf("exit: %d (%dms)\n", result.ExitCode, result.DurationMS)
			if result.Aggregated.Text != "" {
				fmt.Println(result.Aggregated.Text)
			}
			if runErr != nil {
				return runErr
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sandboxKind, "sandbox", "none", "sandbox kind: none, mac, linux")
	cmd.Flags().Int64Var(&timeoutMS, "timeout-ms", 0, "timeout in milliseconds (0 = use config default)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for the command")
	cmd.Flags().BoolVar(&stream, "stream", false, "print stdout/stderr chunks as they arrive")
	return cmd
}

func readCodeCmd() *cobra.Command {
	var lines string
	var contextLines uint32
	var maxBytes int
	var workspaceRoot string

	cmd := &cobra.Command{
		Use:   "read-code <path>",
		Short: "run the read-code tool against a fresh session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCoreConfig()
			if workspaceRoot == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspaceRoot = wd
			}

			argsObj := map[string]any{"path": args[0]}
			if lines != "" {
				pair, err := parseLinesFlag(lines)
				if err != nil {
					return err
				}
				argsObj["lines"] = pair
			}
			if cmd.Flags().Changed("context") {
				argsObj["context"] = contextLines
			}
			if cmd.Flags().Changed("max-bytes") {
				argsObj["maxBytes"] = maxBytes
			}

			argsJSON, err := json.Marshal(argsObj)
			if err != nil {
				return err
			}

			tool := &readcode.Tool{
				WorkspaceRoot:     workspaceRoot,
				DefaultMaxLines:   cfg.ReadCodeDefaultMaxLines,
				SmallFileMaxLines: cfg.ReadCodeSmallFileMaxLines,
			}
			session := turnstate.NewSessionStateWithBreakerConfig(turnstate.RepeatCommandConfig{
				MaxRepeats:   cfg.RepeatMaxRepeats,
				Window:       cfg.RepeatWindow(),
				PreviewBytes: cfg.RepeatPreviewBytes,
			})
			turn := turnstate.NewTurnStateWithBudget(cfg.TurnOutputMaxBytes)

			output, err := tool.Handle(string(argsJSON), session, turn)
			if err != nil {
				return err
			}
			fmt.Println(output)
			return nil
		},
	}
	cmd.Flags().StringVar(&lines, "lines", "", "line range as start:end")
	cmd.Flags().Uint32Var(&contextLines, "context", 0, "context lines around the requested range")
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "per-call byte budget override")
	cmd.Flags().StringVar(&workspaceRoot, "workspace", "", "workspace root (defaults to the current directory)")
	return cmd
}

func configCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "inspect the merged configuration",
	}
	root.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "print the merged CoreConfig",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCoreConfig()
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})
	return root
}

func parseSandboxKind(s string) (sandbox.Kind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return sandbox.None, nil
	case "mac":
		return sandbox.Mac, nil
	case "linux":
		return sandbox.Linux, nil
	default:
		return sandbox.None, fmt.Errorf("unknown sandbox kind %q (want none, mac, or linux)", s)
	}
}

// parseLinesFlag turns "start:end" into the [2]int pair read_code.Args
// expects for its "lines" field.
func parseLinesFlag(s string) ([2]int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("--lines must be start:end, got %q", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return [2]int{}, fmt.Errorf("--lines start: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return [2]int{}, fmt.Errorf("--lines end: %w", err)
	}
	return [2]int{start, end}, nil
}
