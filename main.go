package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"seriesflow/config"
	"seriesflow/internal/convert"
	"seriesflow/internal/exporter"
	"seriesflow/internal/format"
	"seriesflow/internal/loader"
	"seriesflow/internal/storage"
	"seriesflow/logger"
	"seriesflow/processor"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	inPath := flag.String("in", "", "Input file path")
	outPath := flag.String("out", "", "Output file path")
	inFormat := flag.String("input-format", "", "Input format (default: detect from extension)")
	outFormat := flag.String("output-format", "", "Output format (default: detect from extension)")
	baseFormat := flag.String("base-format", "", "Payload format for compressed outputs")
	table := flag.String("table", "", "Table name for database targets")
	listFormats := flag.Bool("list-formats", false, "List supported formats by category and exit")
	push := flag.Bool("push", false, "Push the output artifact to the configured storage backend")

	flag.Parse()

	cfg, err := loadConfigOrDefault(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if *listFormats {
		printFormats()
		return
	}

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: seriesflow -in <input> -out <output> [-input-format f] [-output-format f]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	log.WithEnv("LOG_LEVEL", "AWS_REGION").WithFields(logger.Fields{
		"service": cfg.Seriesflow.Name,
		"version": cfg.Seriesflow.Version,
	}).Info("starting seriesflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace, cfg.Metrics.Dashboard)
	}

	opts, err := buildOptions(cfg, *inFormat, *outFormat, *baseFormat, *table)
	if err != nil {
		log.WithError(err).Error("invalid format selection")
		os.Exit(1)
	}

	conv := convert.New(log)
	if !conv.Convert(*inPath, *outPath, opts) {
		log.Error("conversion failed")
		os.Exit(1)
	}

	if *push {
		if err := pushArtifact(ctx, cfg, *outPath); err != nil {
			log.WithError(err).Error("failed to push output to storage backend")
			os.Exit(1)
		}
	}

	log.Info("seriesflow finished")
}

// loadConfigOrDefault tolerates a missing file at the default location so the
// CLI works without any configuration.
func loadConfigOrDefault(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}

func buildOptions(cfg *config.Config, inFormat, outFormat, baseFormat, table string) (convert.Options, error) {
	opts := convert.Options{
		Validate:   cfg.Converter.Validate,
		RecordKind: processor.Kind(cfg.Converter.RecordKind),
	}
	if cfg.Converter.DefaultInputFormat != "" {
		id, err := format.Parse(cfg.Converter.DefaultInputFormat)
		if err != nil {
			return opts, err
		}
		opts.DefaultInputFormat = id
	}

	if inFormat != "" {
		id, err := format.Parse(inFormat)
		if err != nil {
			return opts, err
		}
		opts.InputFormat = id
	}
	if outFormat != "" {
		id, err := format.Parse(outFormat)
		if err != nil {
			return opts, err
		}
		opts.OutputFormat = id
	}
	if baseFormat != "" {
		id, err := format.Parse(baseFormat)
		if err != nil {
			return opts, err
		}
		opts.BaseFormat = id
	}

	opts.Export = exporter.Options{
		Indent:      cfg.Exporter.JSONIndent,
		IfExists:    cfg.Exporter.IfExists,
		Table:       cfg.Exporter.Table,
		Compression: cfg.Exporter.Parquet.Compression,
	}
	if cfg.Exporter.Delimiter != "" {
		opts.Export.Delimiter = []rune(cfg.Exporter.Delimiter)[0]
	}
	opts.Load = loader.Options{Table: cfg.Exporter.Table}
	if table != "" {
		opts.Export.Table = table
		opts.Load.Table = table
	}
	return opts, nil
}

func printFormats() {
	byCat := format.ByCategory()
	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		fmt.Printf("%s:\n", cat)
		for _, id := range byCat[cat] {
			d, _ := format.Lookup(id)
			caps := make([]string, 0, 2)
			if d.Loadable {
				caps = append(caps, "load")
			}
			if d.Exportable {
				caps = append(caps, "export")
			}
			fmt.Printf("  %-16s %-12s [%s]\n", id, strings.Join(d.Extensions, ","), strings.Join(caps, ","))
		}
	}
}

func pushArtifact(ctx context.Context, cfg *config.Config, outPath string) error {
	backend, err := storage.New(&cfg.Storage)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return fmt.Errorf("read output artifact: %w", err)
	}
	key := filepath.Base(outPath)
	if prefix := cfg.Storage.Push["prefix"]; prefix != "" {
		key = strings.TrimSuffix(prefix, "/") + "/" + key
	}
	return backend.Save(ctx, key, data)
}
