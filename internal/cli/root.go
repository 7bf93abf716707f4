package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/repolens/internal/analysis"
	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/config"
	"github.com/sprite-ai/repolens/internal/deps"
	"github.com/sprite-ai/repolens/internal/logging"
	"github.com/sprite-ai/repolens/internal/ollama"
	"github.com/sprite-ai/repolens/internal/review"
	"github.com/sprite-ai/repolens/internal/scan"
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Review a local repository with a local LLM",
	Long: `repolens scans a source tree, builds its file dependency graph,
finds circular dependencies and asks a model served by Ollama for a
structured review in one of three tones.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		v, _ := cmd.Flags().GetBool("verbose")
		logging.SetVerbose(v)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default is the user config dir)")
	pf.String("model", "", "Ollama model to review with")
	pf.String("mode", "", "review mode: calm, informative, hardcore")
	pf.String("host", "", "Ollama host (default $OLLAMA_HOST or http://localhost:11434)")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(reviewCmd, checkCmd, modelsCmd, configCmd, serveCmd, versionCmd)
}

// overrideFlags maps persistent flag names to config keys.
var overrideFlags = map[string]string{
	"model": "model",
	"mode":  "mode",
	"host":  "host",
}

// loadConfig resolves the effective config for cmd. Only flags the user
// actually set override the lower layers.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	overrides := make(map[string]string)
	for flag, key := range overrideFlags {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			overrides[key] = v
		}
	}
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newClient(cfg config.Config) *ollama.Client {
	opts := []ollama.Option{
		ollama.WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
	}
	if cfg.Temperature != nil {
		opts = append(opts, ollama.WithTemperature(*cfg.Temperature))
	}
	return ollama.New(cfg.Host, opts...)
}

func newPipeline(cfg config.Config, client *ollama.Client) (*app.Pipeline, error) {
	extractor, err := deps.NewExtractor(0)
	if err != nil {
		return nil, err
	}
	return &app.Pipeline{
		Scanner:   &scan.Scanner{MaxFileBytes: cfg.MaxFileBytes, Exclude: cfg.Exclude},
		Extractor: extractor,
		Querier:   review.NewEngine(client),
		Options: analysis.Options{
			TopFiles:       cfg.TopFiles,
			LargeFileLines: cfg.LargeFileLines,
		},
	}, nil
}

// resolveRoot returns the absolute repository root named by args, or the
// working directory.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
