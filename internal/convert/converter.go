package convert

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"seriesflow/internal/exporter"
	"seriesflow/internal/format"
	"seriesflow/internal/loader"
	"seriesflow/logger"
	"seriesflow/models"
	"seriesflow/processor"
)

// Options is the per-conversion knob set, typically populated from the
// converter and exporter config blocks.
type Options struct {
	// InputFormat overrides extension detection on the input path.
	InputFormat format.ID
	// OutputFormat overrides extension detection on the output path.
	OutputFormat format.ID
	// BaseFormat names the payload format when the output is compressed. When
	// empty it is derived from the inner extension (out.csv.gz).
	BaseFormat format.ID
	// DefaultInputFormat applies when the input extension is unknown.
	DefaultInputFormat format.ID
	// Validate runs records through the processor between load and export.
	Validate bool
	// RecordKind selects the validation rule set.
	RecordKind processor.Kind
	// Load and Export pass through to the respective stages.
	Load   loader.Options
	Export exporter.Options
}

// Converter orchestrates one load-process-export pass. It owns no state
// between calls and reports outcomes as booleans; every failure reason is
// logged on the way out.
type Converter struct {
	log  *logger.Log
	load *loader.FileLoader
	exp  *exporter.FileExporter
	proc *processor.Processor
}

func New(log *logger.Log) *Converter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Converter{
		log:  log,
		load: loader.NewFileLoader(log),
		exp:  exporter.NewFileExporter(log),
		proc: processor.New(log),
	}
}

// Loader exposes the underlying loader so callers can tune its defaults.
func (c *Converter) Loader() *loader.FileLoader { return c.load }

// Exporter exposes the underlying exporter so callers can tune its defaults.
func (c *Converter) Exporter() *exporter.FileExporter { return c.exp }

// Convert reads inputPath, optionally validates, and writes outputPath in the
// target format. Compressed inputs are unwrapped one layer per pass: a
// .tar.gz input is detected as gzip, decompressed to a scratch file, and the
// scratch .tar goes through detection again.
func (c *Converter) Convert(inputPath, outputPath string, opts Options) bool {
	log := c.log.WithComponent("converter").WithFields(logger.Fields{
		"input_path":  inputPath,
		"output_path": outputPath,
	})

	var (
		start       = time.Now()
		inFmt       = opts.InputFormat
		outFmt      = opts.OutputFormat
		recordCount int
		succeeded   bool
	)
	// One summary line per attempt, win or lose.
	defer func() {
		log.WithFields(logger.Fields{
			"input_format":  string(inFmt),
			"output_format": string(outFmt),
			"record_count":  recordCount,
			"success":       succeeded,
		}).Info("conversion finished")
		logger.LogPerformanceEntry(log, "converter", "convert", time.Since(start), logger.Fields{
			"success": succeeded,
		})
	}()

	if outFmt == "" {
		detected, ok := format.Detect(outputPath)
		if !ok {
			log.Error("cannot determine output format from path; pass an explicit format")
			return false
		}
		outFmt = detected
	}

	if inFmt == "" {
		if detected, ok := format.Detect(inputPath); ok {
			inFmt = detected
		} else if opts.DefaultInputFormat != "" {
			inFmt = opts.DefaultInputFormat
		} else {
			inFmt = format.JSON
		}
	}

	// Unwrap compression layers before loading. Each pass peels one codec and
	// re-detects on the inner name, so stacked suffixes resolve naturally.
	cleanup := []string{}
	defer func() {
		for _, p := range cleanup {
			os.Remove(p)
		}
	}()
	for format.IsCompressed(inFmt) {
		inner, err := c.unwrap(inFmt, inputPath)
		if err != nil {
			log.WithError(err).Error("failed to unwrap compressed input")
			return false
		}
		cleanup = append(cleanup, inner)
		inputPath = inner
		detected, ok := format.Detect(inner)
		if !ok {
			log.Error("cannot determine payload format inside compressed input")
			return false
		}
		inFmt = detected
	}

	records := c.load.Load(inputPath, inFmt, &opts.Load)
	if opts.Validate {
		records = c.proc.ProcessBatch(records, opts.RecordKind)
	}
	recordCount = len(records)
	if len(records) == 0 {
		log.Warn("no records loaded; nothing to convert")
		return false
	}

	exportOpts := opts.Export
	if desc, ok := format.Lookup(outFmt); ok && desc.RequiresBase && exportOpts.BaseFormat == "" {
		base := opts.BaseFormat
		if base == "" {
			if detected, ok := format.Detect(strings.TrimSuffix(outputPath, filepath.Ext(outputPath))); ok {
				base = detected
			}
		}
		if base == "" {
			log.Error("compressed output requires a base format (name the file out.csv.gz or pass one)")
			return false
		}
		exportOpts.BaseFormat = base
	}

	if !c.exp.Export(records, outputPath, outFmt, &exportOpts) {
		return false
	}

	logger.IncrementConversions()
	logger.RecordFlow(string(inFmt)+"->"+string(outFmt), len(records))
	log.LogMetric("converter", "records_converted", len(records), "counter", logger.Fields{
		"output_format": string(outFmt),
	})
	succeeded = true
	return true
}

// ConvertRecords exports an in-memory batch, skipping the load stage.
func (c *Converter) ConvertRecords(records []models.Record, outputPath string, opts Options) bool {
	outFmt := opts.OutputFormat
	if outFmt == "" {
		detected, ok := format.Detect(outputPath)
		if !ok {
			c.log.WithComponent("converter").Error("cannot determine output format from path")
			return false
		}
		outFmt = detected
	}
	if opts.Validate {
		records = c.proc.ProcessBatch(records, opts.RecordKind)
	}
	exportOpts := opts.Export
	if exportOpts.BaseFormat == "" {
		exportOpts.BaseFormat = opts.BaseFormat
	}
	return c.exp.Export(records, outputPath, outFmt, &exportOpts)
}

// SupportedFormats groups every registered format id by category.
func (c *Converter) SupportedFormats() map[string][]format.ID {
	return format.ByCategory()
}

// SupportedConversions lists the loadable sources and exportable targets.
func (c *Converter) SupportedConversions() (from []format.ID, to []format.ID) {
	return c.load.SupportedFormats(), c.exp.SupportedFormats()
}

// IsConversionSupported reports whether records can move from one format to
// the other.
func (c *Converter) IsConversionSupported(from, to format.ID) bool {
	src, okSrc := format.Lookup(from)
	dst, okDst := format.Lookup(to)
	return okSrc && okDst && src.Loadable && dst.Exportable
}

// unwrap decompresses one codec layer into a scratch file named after the
// input minus its outer extension, so payload detection works on the result.
func (c *Converter) unwrap(id format.ID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open compressed input: %w", err)
	}
	defer f.Close()

	inner := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	scratch := filepath.Join(os.TempDir(), "seriesflow-"+uuid.NewString()+"-"+inner)

	var r io.Reader
	switch id {
	case format.Gzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	case format.Bzip2:
		br, err := bzip2.NewReader(f, nil)
		if err != nil {
			return "", fmt.Errorf("open bzip2 stream: %w", err)
		}
		defer br.Close()
		r = br
	case format.Zstandard:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case format.LZ4:
		r = lz4.NewReader(f)
	case format.Zip:
		return c.unwrapZip(path, scratch)
	case format.Tar:
		return c.unwrapTar(f, scratch, inner)
	default:
		return "", fmt.Errorf("format %q is not a compression wrapper", id)
	}

	out, err := os.Create(scratch)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("decompress input: %w", err)
	}
	return scratch, nil
}

// unwrapZip extracts the first file entry.
func (c *Converter) unwrapZip(path, scratch string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip archive: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("open zip entry: %w", err)
		}
		defer rc.Close()

		// Keep the entry's own extension so payload detection sees it.
		scratch += filepath.Ext(entry.Name)
		out, err := os.Create(scratch)
		if err != nil {
			return "", fmt.Errorf("create scratch file: %w", err)
		}
		defer out.Close()
		if _, err := io.Copy(out, rc); err != nil {
			os.Remove(scratch)
			return "", fmt.Errorf("extract zip entry: %w", err)
		}
		return scratch, nil
	}
	return "", fmt.Errorf("zip archive contains no file entries")
}

// unwrapTar extracts the first regular file entry.
func (c *Converter) unwrapTar(f io.Reader, scratch, fallback string) (string, error) {
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read tar archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if ext := filepath.Ext(hdr.Name); ext != "" && filepath.Ext(fallback) == "" {
			scratch += ext
		}
		out, err := os.Create(scratch)
		if err != nil {
			return "", fmt.Errorf("create scratch file: %w", err)
		}
		defer out.Close()
		if _, err := io.Copy(out, tr); err != nil {
			os.Remove(scratch)
			return "", fmt.Errorf("extract tar entry: %w", err)
		}
		return scratch, nil
	}
	return "", fmt.Errorf("tar archive contains no regular files")
}
