package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csgclient/domain/usecase"
	"csgclient/infrastructure/graphdb"
)

// useCaseFetcher runs one use case query against the database
type useCaseFetcher interface {
	Fetch(ctx context.Context, uc usecase.UseCase) (*graphdb.Export, error)
}

type fetchResult struct {
	UseCase usecase.UseCase
	Export  *graphdb.Export
	File    string
	Err     error
}

// fetchAll exports every use case. Error documents are written too so the
// server reports the failure instead of a missing file.
func fetchAll(ctx context.Context, fetcher useCaseFetcher, cases []usecase.UseCase, store responseSaver, logger *zap.Logger) []fetchResult {
	results := make([]fetchResult, 0, len(cases))
	for _, uc := range cases {
		export, err := fetcher.Fetch(ctx, uc)
		res := fetchResult{UseCase: uc, Export: export, Err: err}

		file, saveErr := store.SaveJSON(uc.ResponseFile, export)
		if saveErr != nil {
			logger.Error("Failed to save export", zap.String("use_case", uc.ID), zap.Error(saveErr))
			if res.Err == nil {
				res.Err = saveErr
			}
		}
		res.File = file
		results = append(results, res)
	}
	return results
}

func newFetchCommand(env *environment) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run catalog Cypher queries against Neo4j and write the response files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalog, err := env.store.Catalog(ctx)
			if err != nil {
				return err
			}
			cases := selectCases(catalog.WithCypher(), only)
			if len(cases) == 0 {
				printf(cmd.OutOrStdout(), "No use cases with a cypher query to fetch.\n")
				return nil
			}

			executor, err := graphdb.NewExecutor(env.cfg)
			if err != nil {
				return err
			}
			defer executor.Close(context.Background())
			if err := executor.Verify(ctx); err != nil {
				return fmt.Errorf("cannot reach Neo4j at %s: %w", env.cfg.Neo4jURI, err)
			}

			results := fetchAll(ctx, graphdb.NewExporter(executor, env.logger), cases, env.store, env.logger)

			rows := make([]table.Row, 0, len(results))
			failed := 0
			for _, r := range results {
				s := r.Export.Analysis
				detail := r.File
				if r.Err != nil {
					failed++
					detail = r.Err.Error()
				}
				rows = append(rows, table.Row{r.UseCase.ID, s.Status, s.RecordCount, s.NodeCount, s.RelationshipCount, detail})
			}
			renderTable(cmd.OutOrStdout(), "Neo4j export",
				table.Row{"ID", "Status", "Records", "Nodes", "Relationships", "File / Error"},
				rows,
			)

			if failed > 0 {
				return fmt.Errorf("%d of %d use case(s) failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "fetch only these use case ids")
	return cmd
}
