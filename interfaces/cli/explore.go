package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"csgclient/infrastructure/graphdb"
)

func newExploreCommand(env *environment) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Summarize the labels, relationship types and patterns in Neo4j",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			executor, err := graphdb.NewExecutor(env.cfg)
			if err != nil {
				return err
			}
			defer executor.Close(context.Background())
			if err := executor.Verify(ctx); err != nil {
				return fmt.Errorf("cannot reach Neo4j at %s: %w", env.cfg.Neo4jURI, err)
			}

			report, err := graphdb.NewExplorer(executor, env.logger).Explore(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return renderJSON(cmd.OutOrStdout(), report)
			}
			renderSchemaReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func renderSchemaReport(w io.Writer, report *graphdb.SchemaReport) {
	renderTable(w, "Database",
		table.Row{"Nodes", "Relationships"},
		[]table.Row{{report.NodeCount, report.RelationshipCount}},
	)

	rows := make([]table.Row, 0, len(report.Labels))
	for _, l := range report.Labels {
		rows = append(rows, table.Row{l.Name, l.Count})
	}
	renderTable(w, "Node labels", table.Row{"Label", "Count"}, rows)

	rows = make([]table.Row, 0, len(report.RelationshipTypes))
	for _, t := range report.RelationshipTypes {
		rows = append(rows, table.Row{t.Name, t.Count})
	}
	renderTable(w, "Relationship types", table.Row{"Type", "Count"}, rows)

	rows = make([]table.Row, 0, len(report.Patterns))
	for _, p := range report.Patterns {
		rows = append(rows, table.Row{fmt.Sprintf("(%s)-[%s]->(%s)", p.From, p.Type, p.To), p.Count})
	}
	renderTable(w, "Relationship patterns", table.Row{"Pattern", "Count"}, rows)
}
