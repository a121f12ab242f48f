package exporter

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"seriesflow/models"
)

// numericFrame is the array-oriented view the scientific exporters share: a
// time axis in unix seconds plus one float64 column per numeric measurement,
// NaN standing in for gaps.
type numericFrame struct {
	n      int
	times  []float64
	cols   []string
	data   map[string][]float64
	series []string
}

func buildNumericFrame(records []models.Record) numericFrame {
	fr := numericFrame{
		n:     len(records),
		times: make([]float64, len(records)),
		data:  make(map[string][]float64),
	}
	seenSeries := make(map[string]bool)
	for i, rec := range records {
		if t, ok := models.ParseTimestamp(rec.Timestamp); ok {
			fr.times[i] = float64(t.Unix())
		} else {
			fr.times[i] = math.NaN()
		}
		if rec.SeriesID != "" && !seenSeries[rec.SeriesID] {
			seenSeries[rec.SeriesID] = true
			fr.series = append(fr.series, rec.SeriesID)
		}
		for k, v := range rec.Measurements {
			n, numeric := models.AsFloat(v)
			if !numeric {
				continue
			}
			col, ok := fr.data[k]
			if !ok {
				col = make([]float64, len(records))
				for j := range col {
					col[j] = math.NaN()
				}
				fr.data[k] = col
				fr.cols = append(fr.cols, k)
			}
			col[i] = n
		}
	}
	sort.Strings(fr.cols)
	return fr
}

// netCDF classic (CDF-1) constants.
const (
	ncDimension = 0x0A
	ncVariable  = 0x0B
	ncAttribute = 0x0C
	ncChar      = 2
	ncDouble    = 6
)

// exportNetCDF writes a self-describing classic-format file: a single time
// dimension, a time coordinate variable in unix seconds, and one double
// variable per numeric measurement. Series ids are recorded in a global
// attribute since the classic model has no string columns.
func (e *FileExporter) exportNetCDF(records []models.Record, path string, opts Options) error {
	fr := buildNumericFrame(records)

	vars := append([]string{"time"}, fr.cols...)
	vsize := int32(fr.n * 8)
	if rem := vsize % 4; rem != 0 {
		vsize += 4 - rem
	}

	// Header size is independent of the begin offsets (fixed-width ints), so
	// serialize once with zeros to measure, then again with real offsets.
	dry := encodeNetCDFHeader(fr, vars, vsize, nil)
	begins := make([]int32, len(vars))
	off := int32(len(dry))
	for i := range begins {
		begins[i] = off
		off += vsize
	}
	header := encodeNetCDFHeader(fr, vars, vsize, begins)

	var buf bytes.Buffer
	buf.Write(header)
	pad := make([]byte, int(vsize)-fr.n*8)
	writeCol := func(col []float64) {
		for _, v := range col {
			binary.Write(&buf, binary.BigEndian, v)
		}
		buf.Write(pad)
	}
	writeCol(fr.times)
	for _, name := range fr.cols {
		writeCol(fr.data[name])
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write netcdf file: %w", err)
	}
	return nil
}

func encodeNetCDFHeader(fr numericFrame, vars []string, vsize int32, begins []int32) []byte {
	var b bytes.Buffer
	b.WriteString("CDF\x01")
	binary.Write(&b, binary.BigEndian, int32(0)) // numrecs

	// dim_list: one fixed dimension.
	binary.Write(&b, binary.BigEndian, int32(ncDimension))
	binary.Write(&b, binary.BigEndian, int32(1))
	writeNCName(&b, "time")
	binary.Write(&b, binary.BigEndian, int32(fr.n))

	// gatt_list: series id roster.
	ids := strings.Join(fr.series, ",")
	binary.Write(&b, binary.BigEndian, int32(ncAttribute))
	binary.Write(&b, binary.BigEndian, int32(1))
	writeNCName(&b, "series_ids")
	binary.Write(&b, binary.BigEndian, int32(ncChar))
	binary.Write(&b, binary.BigEndian, int32(len(ids)))
	b.WriteString(ids)
	padNC(&b, len(ids))

	// var_list.
	binary.Write(&b, binary.BigEndian, int32(ncVariable))
	binary.Write(&b, binary.BigEndian, int32(len(vars)))
	for i, name := range vars {
		writeNCName(&b, name)
		binary.Write(&b, binary.BigEndian, int32(1)) // ndims
		binary.Write(&b, binary.BigEndian, int32(0)) // dimid
		binary.Write(&b, binary.BigEndian, int32(0)) // vatt_list ABSENT
		binary.Write(&b, binary.BigEndian, int32(0))
		binary.Write(&b, binary.BigEndian, int32(ncDouble))
		binary.Write(&b, binary.BigEndian, vsize)
		if begins == nil {
			binary.Write(&b, binary.BigEndian, int32(0))
		} else {
			binary.Write(&b, binary.BigEndian, begins[i])
		}
	}
	return b.Bytes()
}

func writeNCName(b *bytes.Buffer, name string) {
	binary.Write(b, binary.BigEndian, int32(len(name)))
	b.WriteString(name)
	padNC(b, len(name))
}

func padNC(b *bytes.Buffer, n int) {
	for n%4 != 0 {
		b.WriteByte(0)
		n++
	}
}

// exportZarr writes a v2 group directory: .zgroup and .zattrs at the root and
// one uncompressed little-endian float64 array per column, the whole axis in
// a single chunk.
func (e *FileExporter) exportZarr(records []models.Record, path string, opts Options) error {
	fr := buildNumericFrame(records)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create zarr group: %w", err)
	}
	if err := writeJSONFile(filepath.Join(path, ".zgroup"), map[string]any{"zarr_format": 2}); err != nil {
		return err
	}
	attrs := map[string]any{"series_ids": fr.series}
	if err := writeJSONFile(filepath.Join(path, ".zattrs"), attrs); err != nil {
		return err
	}

	writeArray := func(name string, col []float64) error {
		dir := filepath.Join(path, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create array dir: %w", err)
		}
		meta := map[string]any{
			"zarr_format": 2,
			"shape":       []int{fr.n},
			"chunks":      []int{fr.n},
			"dtype":       "<f8",
			"compressor":  nil,
			"fill_value":  "NaN",
			"filters":     nil,
			"order":       "C",
		}
		if err := writeJSONFile(filepath.Join(dir, ".zarray"), meta); err != nil {
			return err
		}
		var buf bytes.Buffer
		for _, v := range col {
			binary.Write(&buf, binary.LittleEndian, v)
		}
		if err := os.WriteFile(filepath.Join(dir, "0"), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		return nil
	}

	if err := writeArray("time", fr.times); err != nil {
		return err
	}
	for _, name := range fr.cols {
		if err := writeArray(name, fr.data[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

const fitsBlock = 2880

// exportFITS writes an empty primary HDU followed by a BINTABLE extension:
// a fixed-width SERIES_ID string column, a TIME double column and one double
// column per numeric measurement, big-endian as the standard requires.
func (e *FileExporter) exportFITS(records []models.Record, path string, opts Options) error {
	fr := buildNumericFrame(records)

	idWidth := 1
	for _, rec := range records {
		if len(rec.SeriesID) > idWidth {
			idWidth = len(rec.SeriesID)
		}
	}

	names := []string{"SERIES_ID", "TIME"}
	forms := []string{fmt.Sprintf("%dA", idWidth), "D"}
	for _, c := range fr.cols {
		names = append(names, strings.ToUpper(c))
		forms = append(forms, "D")
	}
	rowBytes := idWidth + 8*(len(names)-1)

	var buf bytes.Buffer
	writeFITSHeader(&buf, []string{
		fitsCard("SIMPLE", "T", "conforms to FITS standard"),
		fitsCard("BITPIX", "8", ""),
		fitsCard("NAXIS", "0", ""),
		fitsCard("EXTEND", "T", ""),
	})

	cards := []string{
		fitsCard("XTENSION", "'BINTABLE'", "binary table extension"),
		fitsCard("BITPIX", "8", ""),
		fitsCard("NAXIS", "2", ""),
		fitsCard("NAXIS1", fmt.Sprintf("%d", rowBytes), "bytes per row"),
		fitsCard("NAXIS2", fmt.Sprintf("%d", fr.n), "number of rows"),
		fitsCard("PCOUNT", "0", ""),
		fitsCard("GCOUNT", "1", ""),
		fitsCard("TFIELDS", fmt.Sprintf("%d", len(names)), ""),
	}
	for i := range names {
		cards = append(cards,
			fitsCard(fmt.Sprintf("TTYPE%d", i+1), fmt.Sprintf("'%-8s'", names[i]), ""),
			fitsCard(fmt.Sprintf("TFORM%d", i+1), fmt.Sprintf("'%-8s'", forms[i]), ""),
		)
	}
	writeFITSHeader(&buf, cards)

	for i, rec := range records {
		id := rec.SeriesID
		if len(id) > idWidth {
			id = id[:idWidth]
		}
		buf.WriteString(id)
		buf.WriteString(strings.Repeat(" ", idWidth-len(id)))
		binary.Write(&buf, binary.BigEndian, fr.times[i])
		for _, c := range fr.cols {
			binary.Write(&buf, binary.BigEndian, fr.data[c][i])
		}
	}
	padFITS(&buf)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write fits file: %w", err)
	}
	return nil
}

func fitsCard(key, value, comment string) string {
	card := fmt.Sprintf("%-8s= %20s", key, value)
	if comment != "" {
		card += " / " + comment
	}
	if len(card) > 80 {
		card = card[:80]
	}
	return card + strings.Repeat(" ", 80-len(card))
}

func writeFITSHeader(buf *bytes.Buffer, cards []string) {
	for _, c := range cards {
		buf.WriteString(c)
	}
	buf.WriteString("END" + strings.Repeat(" ", 77))
	padFITSWith(buf, ' ')
}

func padFITS(buf *bytes.Buffer) { padFITSWith(buf, 0) }

func padFITSWith(buf *bytes.Buffer, fill byte) {
	for buf.Len()%fitsBlock != 0 {
		buf.WriteByte(fill)
	}
}
