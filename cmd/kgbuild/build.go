package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/kgbuilder/internal/config"
	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/ingestion"
)

var (
	buildLabel   string
	buildExport  bool
	buildEmbed   bool
	buildNoBrand bool
	buildNoCat   bool
	buildNodeIDs bool
	buildSchema  string
)

var buildCmd = &cobra.Command{
	Use:   "build <reviews.json[.gz]> <metadata.json[.gz]>",
	Short: "Build a graph snapshot from review and metadata dumps",
	Long: `Build loads an Amazon-style review dump and item metadata dump, encodes
users, items, brands and categories into dense ids, builds every relation
of the schema, and stores the result as a snapshot.

Examples:
  kgbuild build reviews_Beauty.json.gz meta_Beauty.json.gz
  kgbuild build reviews.json meta.json --no-brand --export --label beauty-v2`,
	Args: cobra.ExactArgs(2),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildLabel, "label", "", "human-readable snapshot label")
	buildCmd.Flags().BoolVar(&buildExport, "export", false, "export the graph to Neo4j (overrides neo4j.enabled)")
	buildCmd.Flags().BoolVar(&buildEmbed, "embed", false, "attach item text embeddings")
	buildCmd.Flags().BoolVar(&buildNoBrand, "no-brand", false, "omit brand nodes")
	buildCmd.Flags().BoolVar(&buildNoCat, "no-category", false, "omit category nodes")
	buildCmd.Flags().BoolVar(&buildNodeIDs, "node-ids", false, "attach an identity feature to every node type")
	buildCmd.Flags().StringVar(&buildSchema, "schema", "", "schema YAML file (default: built-in schema)")
}

// signalContext cancels on interrupt
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if cmd.Flags().Changed("export") {
		cfg.Neo4j.Enabled = buildExport
	}
	ctxName := config.ValidationContextBuild
	if buildEmbed {
		ctxName = config.ValidationContextAll
	}
	if err := cfg.Validate(ctxName).Err(); err != nil {
		return err
	}

	schemaFile := cfg.Build.SchemaFile
	if buildSchema != "" {
		schemaFile = buildSchema
	}
	registry, err := loadRegistry(schemaFile)
	if err != nil {
		return err
	}
	logger.WithField("schema", registry.Describe()).Debug("Schema loaded")

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	var backend graph.Backend
	if cfg.Neo4j.Enabled {
		b, err := openBackend(ctx, cfg.Neo4j, buildLabel)
		if err != nil {
			return err
		}
		defer b.Close(context.Background())
		backend = b
	}

	orch := ingestion.NewOrchestrator(registry, store, backend, logger)
	if buildEmbed {
		svc, cleanup, err := openEmbedding(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		orch.WithEmbedding(svc)
	}

	result, err := orch.Build(ctx, ingestion.BuildRequest{
		ReviewsPath:  args[0],
		MetadataPath: args[1],
		Label:        buildLabel,
		Encode: graph.EncodeOptions{
			UseBrand:    cfg.Build.UseBrand && !buildNoBrand,
			UseCategory: cfg.Build.UseCategory && !buildNoCat,
		},
		AddNodeIDs: cfg.Build.AddNodeIDs || buildNodeIDs,
		Embed:      buildEmbed,
	})
	if err != nil {
		return err
	}

	printBuildSummary(result)
	return nil
}

func printBuildSummary(result *ingestion.BuildResult) {
	fmt.Printf("Snapshot: %s\n", result.SnapshotID)
	fmt.Printf("Reviews:  %d loaded, %d skipped, %d malformed\n",
		result.Stats.Reviews.Loaded, result.Stats.Reviews.Skipped, result.Stats.Reviews.Malformed)
	fmt.Printf("Metadata: %d loaded, %d skipped, %d malformed\n",
		result.Stats.Metadata.Loaded, result.Stats.Metadata.Skipped, result.Stats.Metadata.Malformed)

	fmt.Println("\nNodes:")
	for _, t := range result.Graph.NodeTypes() {
		fmt.Printf("  %-10s %d\n", t, result.Graph.NumNodes(t))
	}

	fmt.Println("\nEdges:")
	names := make([]string, 0, len(result.Stats.Edges))
	for name := range result.Stats.Edges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-30s %d\n", name, result.Stats.Edges[name])
	}

	if result.Export != nil {
		fmt.Printf("\nExported to Neo4j in %s\n", result.Export.Duration)
	}
	fmt.Printf("\nCompleted in %s\n", result.Duration)
}
