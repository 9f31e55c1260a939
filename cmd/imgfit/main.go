// Command imgfit resizes batches of images into an acceptance envelope:
// either bounded pixel dimensions or bounded encoded file size.
//
// Usage:
//
//	imgfit [flags] <file-or-dir> [more files or dirs]
//	imgfit -watch [flags] <dir>
//
// Examples:
//
//	imgfit -min 100 -max 1920 photos/
//	imgfit -mode filesize -min-size 20KB -max-size 200KB photos/
//	imgfit -mode filesize -max-size 500KB -format webp -out fitted/ photo.jpg
//	imgfit -config imgfit.yaml photos/
//	imgfit -watch -mode filesize -min-size 20KB -max-size 200KB incoming/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imgfit/imgfit"
)

func main() {
	var (
		mode       string
		minPx      int
		maxPx      int
		minSize    string
		maxSize    string
		format     string
		outDir     string
		configPath string
		watch      bool
		quiet      bool
	)

	flag.StringVar(&mode, "mode", "dimension", "Constraint mode: dimension|filesize")
	flag.IntVar(&minPx, "min", 100, "Minimum pixel dimension (dimension mode)")
	flag.IntVar(&maxPx, "max", 1920, "Maximum pixel dimension (dimension mode)")
	flag.StringVar(&minSize, "min-size", "20KB", "Minimum encoded size (filesize mode, e.g. 20KB)")
	flag.StringVar(&maxSize, "max-size", "500KB", "Maximum encoded size (filesize mode, e.g. 1MB)")
	flag.StringVar(&format, "format", "jpeg", "Lossy output codec for filesize mode: jpeg|webp")
	flag.StringVar(&outDir, "out", "", "Output directory (default: alongside each input)")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file")
	flag.BoolVar(&watch, "watch", false, "Watch the given directories and fit new images as they appear")
	flag.BoolVar(&quiet, "quiet", false, "Suppress structured logs")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: imgfit [flags] <file-or-dir> [more files or dirs]")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// Explicitly set flags win over config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Set("mode", mode)
		case "min":
			cfg.Set("min", minPx)
		case "max":
			cfg.Set("max", maxPx)
		case "min-size":
			cfg.Set("min_size", minSize)
		case "max-size":
			cfg.Set("max_size", maxSize)
		case "format":
			cfg.Set("format", format)
		case "out":
			cfg.Set("out", outDir)
		}
	})

	opts, err := buildOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := zap.NewNop()
	if !quiet {
		if log, err = newLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
	}

	runner, err := imgfit.NewRunner(imgfit.RunnerOptions{
		Options: opts,
		OutDir:  cfg.GetString("out"),
		Logger:  log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		runWatch(ctx, runner, args)
		return
	}

	jobs, err := expandInputs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, "No image files found in the given inputs")
		os.Exit(1)
	}

	outcomes, skips, err := runner.Run(ctx, jobs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for i := range outcomes {
		fmt.Println(outcomes[i].String())
	}
	for _, s := range skips {
		fmt.Printf("%s: skipped (%s)\n", s.Name, s.Reason)
	}
	fmt.Println(imgfit.Summarize(outcomes, skips))

	if len(skips) > 0 {
		os.Exit(1)
	}
}

func runWatch(ctx context.Context, runner *imgfit.Runner, dirs []string) {
	watcher, err := imgfit.NewWatcher(runner, dirs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig wires defaults, the optional config file, and IMGFIT_*
// environment variables.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("mode", "dimension")
	v.SetDefault("min", 100)
	v.SetDefault("max", 1920)
	v.SetDefault("min_size", "20KB")
	v.SetDefault("max_size", "500KB")
	v.SetDefault("format", "jpeg")
	v.SetDefault("out", "")

	v.SetEnvPrefix("IMGFIT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func buildOptions(cfg *viper.Viper) (imgfit.Options, error) {
	opts := imgfit.DefaultOptions()

	switch strings.ToLower(cfg.GetString("mode")) {
	case "dimension", "dim":
		opts.Mode = imgfit.DimensionMode
	case "filesize", "size":
		opts.Mode = imgfit.FileSizeMode
	default:
		return opts, fmt.Errorf("unknown mode %q (use dimension or filesize)", cfg.GetString("mode"))
	}

	opts.Dimensions = imgfit.DimensionEnvelope{
		Min: cfg.GetInt("min"),
		Max: cfg.GetInt("max"),
	}

	minKB, err := parseSizeKB(cfg.GetString("min_size"))
	if err != nil {
		return opts, fmt.Errorf("invalid min-size %q: %w", cfg.GetString("min_size"), err)
	}
	maxKB, err := parseSizeKB(cfg.GetString("max_size"))
	if err != nil {
		return opts, fmt.Errorf("invalid max-size %q: %w", cfg.GetString("max_size"), err)
	}
	opts.Size = imgfit.ByteEnvelope{MinKB: minKB, MaxKB: maxKB}

	switch strings.ToLower(cfg.GetString("format")) {
	case "jpeg", "jpg":
		opts.Format = imgfit.FormatJPEG
	case "webp":
		opts.Format = imgfit.FormatWebP
	default:
		return opts, fmt.Errorf("unknown format %q (use jpeg or webp)", cfg.GetString("format"))
	}

	return opts, nil
}

// parseSizeKB parses a size like "250", "250KB" or "1.5MB" into kilobytes.
func parseSizeKB(s string) (int, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		s = strings.TrimSuffix(s, "KB")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int(n * multiplier), nil
}

// expandInputs turns file and directory arguments into an ordered job list.
// Directories are listed non-recursively; non-image files are ignored here
// and unreadable entries surface as decode skips later.
func expandInputs(args []string) ([]imgfit.Job, error) {
	var jobs []imgfit.Job
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			jobs = append(jobs, imgfit.Job{Src: arg})
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !imgfit.IsImagePath(entry.Name()) {
				continue
			}
			jobs = append(jobs, imgfit.Job{Src: filepath.Join(arg, entry.Name())})
		}
	}
	return jobs, nil
}

// newLogger builds the production logger used for batch diagnostics.
func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	return config.Build()
}
