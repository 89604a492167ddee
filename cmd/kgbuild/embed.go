package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/kgbuilder/internal/config"
	"github.com/rohankatakam/kgbuilder/internal/ingestion"
)

var embedCmd = &cobra.Command{
	Use:   "embed <snapshot> <metadata.json[.gz]>",
	Short: "Attach item text embeddings to a stored snapshot",
	Long: `Embed encodes "title. description" for every item of a snapshot, in item
id order, and stores the vectors as the item feature "text_embedding".
Vectors are cached by model and text, so re-running only pays for new items.`,
	Args: cobra.ExactArgs(2),
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if err := cfg.Validate(config.ValidationContextEmbed).Err(); err != nil {
		return err
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, cleanup, err := openEmbedding(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := ingestion.NewOrchestrator(nil, store, nil, logger).WithEmbedding(svc)
	vectors, err := orch.EmbedSnapshot(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Embedded %d items (%d dims) into snapshot %s\n", vectors.Rows, vectors.Cols, args[0])
	return nil
}
