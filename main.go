package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/interviewforge/agent/artifact"
	"github.com/tanpawarit/interviewforge/agent/agents/orchestrator"
	configx "github.com/tanpawarit/interviewforge/pkg/config"
)

type runFlags struct {
	role        string
	resumeFile  string
	interactive bool
	resumeFrom  string
	envFile     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &runFlags{}

	root := &cobra.Command{
		Use:   "interviewforge",
		Short: "Run a mock interview from a resume",
		Long: `Parse a resume, generate interview rounds for the target role, conduct the
interview, critique every answer, and write a study plan and follow-up email.

The resume is read from --resume-file, or from stdin when no file is given.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configx.SetEnvFile(flags.envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterview(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env", "", "path to a .env file (default ./.env when present)")
	root.Flags().StringVar(&flags.role, "role", "", "target role for the interview (required)")
	root.Flags().StringVar(&flags.resumeFile, "resume-file", "", "path to the resume text; stdin when empty")
	root.Flags().BoolVar(&flags.interactive, "interactive", false, "ask each question on the terminal instead of using demo answers")
	root.Flags().StringVar(&flags.resumeFrom, "resume-from", "", "checkpoints.json of an earlier run to continue from")

	root.AddCommand(newHistoryCmd())
	return root
}

func runInterview(ctx context.Context, stdin io.Reader, stdout io.Writer, flags *runFlags) error {
	if strings.TrimSpace(flags.role) == "" {
		return errors.New("--role is required")
	}

	resumeText, err := readResume(flags.resumeFile, stdin, flags.interactive)
	if err != nil {
		return err
	}

	app, err := newApp(ctx, stdin, stdout, flags.interactive)
	if err != nil {
		return err
	}
	defer app.Close()

	var opts []orchestrator.RunOption
	if flags.resumeFrom != "" {
		resumption, err := artifact.ReadResumption(flags.resumeFrom)
		if err != nil {
			return fmt.Errorf("read resume checkpoints: %w", err)
		}
		opts = append(opts, orchestrator.WithResumption(resumption))
	}

	summary, err := app.orchestrator.Run(ctx, resumeText, flags.role, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run %s complete: %d questions, %d critiques, %d fallbacks\n",
		summary.RunID, len(summary.Transcript), len(summary.Critiques), summary.Metrics.Fallbacks)
	if summary.ArtifactDir != "" {
		fmt.Fprintf(stdout, "artifacts: %s\n", summary.ArtifactDir)
	}
	return nil
}

// readResume reads the resume from path, or from stdin when path is empty.
// Interactive runs need stdin for answers, so they require a file.
func readResume(path string, stdin io.Reader, interactive bool) (string, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read resume: %w", err)
		}
		return string(raw), nil
	}
	if interactive {
		return "", errors.New("--resume-file is required with --interactive")
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read resume from stdin: %w", err)
	}
	return string(raw), nil
}
