package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"csgclient/application/services"
	"csgclient/domain/graph"
)

type normalizeOptions struct {
	maxChildren int
	maxDepth    int
	summary     bool
}

func newNormalizeCommand(env *environment) *cobra.Command {
	opts := normalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Normalize a local analysis document and print the envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := graph.DecodeJSON(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			normalizer := graph.NewNormalizer(graph.Options{
				MaxArrayChildren: opts.maxChildren,
				MaxDepth:         opts.maxDepth,
			})
			envelope := services.NewEnvelopeBuilder(normalizer, env.metrics, env.logger).Build(doc)

			if !opts.summary {
				return renderJSON(cmd.OutOrStdout(), envelope)
			}
			nodes, edges := 0, 0
			if envelope.Graph != nil {
				nodes, edges = len(envelope.Graph.Nodes), len(envelope.Graph.Edges)
			}
			renderTable(cmd.OutOrStdout(), args[0],
				table.Row{"Graph present", "Data included", "Nodes", "Edges"},
				[]table.Row{{envelope.GraphPresent, envelope.DataIncluded, nodes, edges}},
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.maxChildren, "max-children", graph.DefaultMaxArrayChildren, "array children rendered by the tree walk")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", graph.DefaultMaxDepth, "deepest level rendered by the tree walk")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print counts instead of the envelope")
	return cmd
}
