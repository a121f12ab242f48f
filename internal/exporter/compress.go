package exporter

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"seriesflow/internal/format"
	"seriesflow/models"
)

// exportCompressed materializes the base format into a scratch file, then
// wraps it in the requested codec. The base format is taken from Options and
// never inferred from the output name.
func (e *FileExporter) exportCompressed(id format.ID, records []models.Record, path string, opts Options) error {
	scratch, err := e.exportScratch(records, opts)
	if err != nil {
		return err
	}
	defer os.Remove(scratch)

	src, err := os.Open(scratch)
	if err != nil {
		return fmt.Errorf("open scratch file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	var w io.WriteCloser
	switch id {
	case format.Gzip:
		w = gzip.NewWriter(out)
	case format.Bzip2:
		w, err = bzip2.NewWriter(out, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return fmt.Errorf("create bzip2 writer: %w", err)
		}
	case format.Zstandard:
		w, err = zstd.NewWriter(out)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
	case format.LZ4:
		w = lz4.NewWriter(out)
	default:
		return fmt.Errorf("unsupported compression format %q", id)
	}

	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("compress payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize compressed stream: %w", err)
	}
	return nil
}

// exportArchive writes a single-entry zip or tar whose member is named after
// the output file with the base format's extension.
func (e *FileExporter) exportArchive(id format.ID, records []models.Record, path string, opts Options) error {
	scratch, err := e.exportScratch(records, opts)
	if err != nil {
		return err
	}
	defer os.Remove(scratch)

	src, err := os.Open(scratch)
	if err != nil {
		return fmt.Errorf("open scratch file: %w", err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat scratch file: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	entry := archiveEntryName(path, opts.BaseFormat)

	switch id {
	case format.Zip:
		zw := zip.NewWriter(out)
		f, err := zw.Create(entry)
		if err != nil {
			zw.Close()
			return fmt.Errorf("create zip entry: %w", err)
		}
		if _, err := io.Copy(f, src); err != nil {
			zw.Close()
			return fmt.Errorf("write zip entry: %w", err)
		}
		return zw.Close()
	case format.Tar:
		tw := tar.NewWriter(out)
		hdr := &tar.Header{
			Name:    entry,
			Mode:    0o644,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tw.Close()
			return fmt.Errorf("write tar header: %w", err)
		}
		if _, err := io.Copy(tw, src); err != nil {
			tw.Close()
			return fmt.Errorf("write tar entry: %w", err)
		}
		return tw.Close()
	}
	return fmt.Errorf("unsupported archive format %q", id)
}

// exportScratch runs the base-format handler into a temp file and returns its
// path. The caller owns removal.
func (e *FileExporter) exportScratch(records []models.Record, opts Options) (string, error) {
	base := opts.BaseFormat
	desc, ok := format.Lookup(base)
	if !ok || !desc.Exportable || desc.RequiresBase {
		return "", fmt.Errorf("invalid base format %q for compressed export", base)
	}
	handler, ok := e.handlers[base]
	if !ok {
		return "", fmt.Errorf("no export handler registered for base format %q", base)
	}

	ext := ""
	if len(desc.Extensions) > 0 {
		ext = desc.Extensions[0]
	}
	scratch := filepath.Join(os.TempDir(), "seriesflow-"+uuid.NewString()+ext)

	inner := opts
	inner.BaseFormat = ""
	if err := handler(records, scratch, inner); err != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("export base format %q: %w", base, err)
	}
	return scratch, nil
}

func archiveEntryName(path string, base format.ID) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if desc, ok := format.Lookup(base); ok && len(desc.Extensions) > 0 {
		if !strings.HasSuffix(name, desc.Extensions[0]) {
			name += desc.Extensions[0]
		}
	}
	return name
}
