// Package main trains the violation classifier on the seeded synthetic
// dataset and writes it where the server and worker load it from.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/scoring"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("train-model: failed to load configuration: %v", err)
	}
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("train-model: failed to set up logger: %v", err)
	}

	if err := run(os.Args[1:], cfg.Model.Path, l, os.Stderr); err != nil {
		log.Fatalf("train-model: %v", err)
	}
}

func run(args []string, defaultPath string, l *slog.Logger, out io.Writer) error {
	defaults := scoring.DefaultTrainConfig()

	fs := flag.NewFlagSet("train-model", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("out", defaultPath, "model file to write")
	samples := fs.Int("samples", defaults.Samples, "number of synthetic samples")
	seed := fs.Int64("seed", defaults.Seed, "random seed for the synthetic dataset")
	iterations := fs.Int("iterations", defaults.Iterations, "gradient descent iterations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *samples <= 0 || *iterations <= 0 {
		return fmt.Errorf("samples and iterations must be positive")
	}

	cfg := defaults
	cfg.Samples = *samples
	cfg.Seed = *seed
	cfg.Iterations = *iterations

	model := scoring.Train(cfg)
	if err := scoring.Save(*path, model); err != nil {
		return err
	}

	l.Info("model trained",
		"path", *path,
		"samples", cfg.Samples,
		"seed", cfg.Seed,
		"weights", model.Weights,
		"bias", model.Bias)
	fmt.Fprintf(out, "Model saved to %s\n", *path)
	return nil
}
