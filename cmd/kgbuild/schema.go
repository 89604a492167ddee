package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/kgbuilder/internal/graph"
)

var (
	schemaFormat string
	schemaFile   string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the graph schema",
	Long: `Schema prints the node types, relations, reverse relations and path
templates of the built-in schema or of a schema YAML file. The yaml format
can be edited and passed back with --file.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaFormat, "format", "table", "output format: table or yaml")
	schemaCmd.Flags().StringVar(&schemaFile, "file", "", "schema YAML file to validate and show")
}

func runSchema(cmd *cobra.Command, args []string) error {
	file := schemaFile
	if file == "" {
		file = cfg.Build.SchemaFile
	}
	registry, err := loadRegistry(file)
	if err != nil {
		return err
	}

	switch schemaFormat {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(registry)
	case "table":
		printSchemaTable(registry)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or yaml)", schemaFormat)
	}
}

func printSchemaTable(r *graph.Registry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NODE TYPE\tALIAS")
	for _, t := range r.NodeTypes() {
		fmt.Fprintf(w, "%s\t%s\n", t, r.Alias(t))
	}

	fmt.Fprintln(w, "\nEDGE TYPE\tREVERSE")
	for _, et := range r.EdgeTypes() {
		reverse := "-"
		if rev, ok := r.Reverse(et); ok {
			reverse = rev.String()
		}
		fmt.Fprintf(w, "%s\t%s\n", et, reverse)
	}

	fmt.Fprintf(w, "\nexplanation relevant:\t%s\n", strings.Join(r.ExplanationRelevantEdges(), ", "))
	fmt.Fprintf(w, "propagation:\t%s\n", strings.Join(r.PropagationEdges(), ", "))
	for _, p := range r.PathTemplates() {
		fmt.Fprintf(w, "path template:\t%s\n", p)
	}
}
