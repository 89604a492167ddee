package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/kgbuilder/internal/config"
	"github.com/rohankatakam/kgbuilder/internal/errors"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, errorReport(err, verbose))
		os.Exit(exitCode(err))
	}
}

// errorReport formats err for stderr. With verbose set, structured errors
// also print their type, context and stack.
func errorReport(err error, verbose bool) string {
	var e *errors.Error
	if verbose && errors.As(err, &e) {
		return fmt.Sprintf("Error: %v\n%s", err, e.DetailedString())
	}
	return fmt.Sprintf("Error: %v\n", err)
}

// exitCode is 2 for critical errors (config, schema, storage) and 1 otherwise
func exitCode(err error) int {
	if errors.IsFatal(err) {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "kgbuild",
	Short: "Build heterogeneous recommendation graphs from review datasets",
	Long: `kgbuild turns user-item review dumps and item metadata into a typed
heterogeneous graph (users, items, brands, categories), stores it as a
snapshot, and optionally exports it to Neo4j or attaches text embeddings.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(verbose)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			if cfgFile != "" {
				return err
			}
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		return nil
	},
}

// newLogger writes colored text to a terminal and JSON everywhere else
func newLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .kgbuilder/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`kgbuild {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(configCmd)
}
