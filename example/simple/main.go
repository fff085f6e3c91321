package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	cdcconfig "github.com/Trendyol/go-pq-cdc/config"
	"github.com/Trendyol/go-pq-cdc/pq/publication"
	"github.com/Trendyol/go-pq-cdc/pq/slot"
	cdc "github.com/ezeql/go-pq-cdc-memgraph"
	"github.com/ezeql/go-pq-cdc-memgraph/config"
	"github.com/ezeql/go-pq-cdc-memgraph/cypher"
	"github.com/ezeql/go-pq-cdc-memgraph/graph"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.TODO()

	cfg := config.Connector{
		CDC: cdcconfig.Config{
			Host:     "127.0.0.1",
			Username: "cdc_user",
			Password: "cdc_pass",
			Database: "ivy",
			Publication: publication.Config{
				CreateIfNotExists: true,
				Name:              "graph_publication",
				Operations: publication.Operations{
					publication.OperationInsert,
					publication.OperationDelete,
					publication.OperationUpdate,
				},
				Tables: publication.Tables{
					{Name: "merged_entities", ReplicaIdentity: publication.ReplicaIdentityFull},
					{Name: "merged_relationships", ReplicaIdentity: publication.ReplicaIdentityFull},
				},
			},
			Slot: slot.Config{
				CreateIfNotExists:           true,
				Name:                        "graph_slot",
				SlotActivityCheckerInterval: 3000,
			},
			Metric: cdcconfig.MetricConfig{Port: 8081},
			Logger: cdcconfig.LoggerConfig{LogLevel: slog.LevelInfo},
		},
		Graph: config.Graph{
			TableStreamMapping: map[string]string{
				"public.merged_entities":      config.StreamEntity,
				"public.merged_relationships": config.StreamRelationship,
			},
			BatchTickerDuration: 200 * time.Millisecond,
		},
	}

	// Stand-in executor: a real deployment would run the statements
	// against Memgraph through a Bolt session here.
	executor := graph.ExecutorFunc(func(_ context.Context, statements []cypher.Statement) error {
		for _, stmt := range statements {
			slog.Info("statement", "query", stmt.Query)
		}
		return nil
	})

	connector, err := cdc.NewConnector(ctx, cfg, executor)
	if err != nil {
		slog.Error("new connector", "error", err)
		os.Exit(1)
	}
	defer connector.Close()
	connector.Start(ctx)
}
