package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"csgclient/domain/usecase"
)

type runCasesOptions struct {
	backend  string
	attempts int
	delay    time.Duration
	timeout  time.Duration
	only     []string
	yes      bool
}

func newRunCasesCommand(env *environment) *cobra.Command {
	opts := runCasesOptions{}

	cmd := &cobra.Command{
		Use:   "run-cases",
		Short: "Replay catalog questions through the server and record the responses",
		Long: `Replay every use case that has a question through POST /upstream/analyze
on a running server, and save each answer as the use case's response file.

Gateway errors, timeouts and connection failures are retried; any other
error fails the use case immediately.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			catalog, err := env.store.Catalog(ctx)
			if err != nil {
				return err
			}
			cases := selectCases(catalog.WithQuestions(), opts.only)
			if len(cases) == 0 {
				printf(out, "No use cases with a question to run.\n")
				return nil
			}

			h := NewHarness(opts.backend, opts.timeout, opts.attempts, opts.delay, env.logger)
			if err := h.CheckBackend(ctx); err != nil {
				return err
			}
			upstream, err := h.CheckUpstream(ctx)
			if err != nil {
				return err
			}
			printf(out, "Backend %s, upstream %s\n", opts.backend, upstream)

			if !opts.yes {
				ok, err := confirm(cmd, fmt.Sprintf("Run %d use case(s) and overwrite their response files? [y/N] ", len(cases)))
				if err != nil {
					return err
				}
				if !ok {
					printf(out, "Cancelled.\n")
					return nil
				}
			}

			results := h.Run(ctx, cases, env.store)
			renderRunSummary(cmd, results)

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d use case(s) failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.backend, "backend", "http://localhost:8080", "base URL of the running server")
	cmd.Flags().IntVar(&opts.attempts, "attempts", 2, "attempts per use case")
	cmd.Flags().DurationVar(&opts.delay, "delay", 5*time.Second, "wait between attempts")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "per-request timeout")
	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "run only these use case ids")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func selectCases(cases []usecase.UseCase, only []string) []usecase.UseCase {
	if len(only) == 0 {
		return cases
	}
	want := make(map[string]bool, len(only))
	for _, id := range only {
		want[id] = true
	}
	out := make([]usecase.UseCase, 0, len(only))
	for _, uc := range cases {
		if want[uc.ID] {
			out = append(out, uc)
		}
	}
	return out
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	printf(cmd.OutOrStdout(), "%s", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func renderRunSummary(cmd *cobra.Command, results []caseResult) {
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		detail := r.File
		if r.Err != nil {
			detail = r.Err.Error()
		}
		rows = append(rows, table.Row{
			r.UseCase.ID,
			r.status(),
			r.Attempts,
			r.Nodes,
			r.Edges,
			r.Duration.Round(time.Millisecond),
			detail,
		})
	}
	renderTable(cmd.OutOrStdout(), "Use cases",
		table.Row{"ID", "Status", "Attempts", "Nodes", "Edges", "Duration", "File / Error"},
		rows,
	)
}
