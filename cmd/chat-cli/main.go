package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"casedesk/internal/config"
	"casedesk/internal/container"
	"casedesk/internal/logging"
	"casedesk/models"
	"casedesk/ports"
	"casedesk/ui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:   "casedesk-chat",
		Short: "Terminal chat over the case and email data",
	}

	rootCmd.AddCommand(
		newChatCmd(),
		newAskCmd(),
		newThreadsCmd(),
		newHistoryCmd(),
		newClearCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session bundles what a command needs and releases it on close
type session struct {
	cfg       *config.Config
	container *container.Container
	agent     ports.Agent
	closeFn   func() error
}

func (s *session) close() {
	if s.closeFn != nil {
		s.closeFn()
	}
	if s.container != nil {
		s.container.Shutdown(context.Background())
	}
}

func openContainer(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Log.Level = "warn"
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := c.OpenCheckpoints(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	return &session{cfg: cfg, container: c}, nil
}

// openAgent talks to a chat server when serverURL is set, otherwise builds a
// local agent against the tool server and model runtime
func openAgent(ctx context.Context, serverURL, threadID string) (*session, error) {
	if serverURL != "" {
		client, err := ui.Dial(ctx, serverURL, threadID)
		if err != nil {
			return nil, err
		}
		return &session{agent: client, closeFn: client.Close}, nil
	}

	s, err := openContainer(ctx)
	if err != nil {
		return nil, err
	}
	agent, err := s.container.BuildAgent(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	s.agent = agent
	return s, nil
}

func resolveThread(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil && cfg.Agent.ThreadID != "" {
		return cfg.Agent.ThreadID
	}
	return "cli"
}

func printTokens(w io.Writer) ports.TokenFunc {
	return func(token string) error {
		_, err := fmt.Fprint(w, token)
		return err
	}
}

func newChatCmd() *cobra.Command {
	var threadID, serverURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat; one question per line, empty line or EOF quits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openAgent(ctx, serverURL, threadID)
			if err != nil {
				return err
			}
			defer s.close()

			thread := resolveThread(threadID, s.cfg)
			return repl(ctx, s.agent, thread, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread (default THREAD_ID or \"cli\")")
	cmd.Flags().StringVar(&serverURL, "server", "", "chat server URL, e.g. http://localhost:8000")
	return cmd
}

func repl(ctx context.Context, agent ports.Agent, threadID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}

		if err := agent.Stream(ctx, threadID, question, printTokens(out)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "\nerror: %v\n", err)
			continue
		}
		fmt.Fprintln(out)
	}
}

func newAskCmd() *cobra.Command {
	var threadID, serverURL string

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and print the streamed answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openAgent(ctx, serverURL, threadID)
			if err != nil {
				return err
			}
			defer s.close()

			thread := resolveThread(threadID, s.cfg)
			if err := s.agent.Stream(ctx, thread, strings.Join(args, " "), printTokens(cmd.OutOrStdout())); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread (default THREAD_ID or \"cli\")")
	cmd.Flags().StringVar(&serverURL, "server", "", "chat server URL, e.g. http://localhost:8000")
	return cmd
}

func newThreadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List stored conversation threads, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			threads, err := s.container.Checkpoints.Threads(cmd.Context())
			if err != nil {
				return err
			}
			for _, thread := range threads {
				fmt.Fprintln(cmd.OutOrStdout(), thread)
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history [thread-id]",
		Short: "Print the stored messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			history, err := s.container.Checkpoints.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(history)
			}
			for _, msg := range history {
				switch {
				case msg.Role == models.RoleTool:
					fmt.Fprintf(out, "[%d] tool %s: %s\n", msg.Seq, msg.ToolName, msg.Content)
				case len(msg.ToolCalls) > 0:
					for _, call := range msg.ToolCalls {
						fmt.Fprintf(out, "[%d] %s -> %s %v\n", msg.Seq, msg.Role, call.Name, call.Arguments)
					}
				default:
					fmt.Fprintf(out, "[%d] %s: %s\n", msg.Seq, msg.Role, msg.Content)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print messages as JSON")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [thread-id]",
		Short: "Delete the stored messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.container.Checkpoints.Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.container.Logger.Info("thread cleared", zap.String("thread_id", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
			return nil
		},
	}
}
