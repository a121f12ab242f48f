package format

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Detect infers a format id from the path extension alone. It is a pure
// function of the file name: no I/O, case-insensitive, outermost suffix wins
// for stacked extensions ("archive.tar.gz" detects as gzip; the converter
// unwraps one layer per pass). The boolean is false for unknown extensions
// and callers choose their own fallback.
func Detect(path string) (ID, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	id, ok := byExt[ext]
	return id, ok
}

// stooqHeader lists the tokens whose presence in a comma-delimited first line
// reclassifies a .txt file as the Stooq financial format.
var stooqHeader = []string{"TICKER", "PER", "DATE"}

// SniffText inspects the first line of a .txt file and refines the detected
// format: a comma-delimited header containing TICKER, PER and DATE means
// Stooq; otherwise the delimiter is inferred by checking comma, tab,
// semicolon and pipe in that priority order, defaulting to tab.
func SniffText(path string) (ID, rune) {
	f, err := os.Open(path)
	if err != nil {
		return TXT, '\t'
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return TXT, '\t'
	}
	line := scanner.Text()

	if strings.Contains(line, ",") {
		upper := strings.ToUpper(line)
		tokens := make(map[string]bool)
		for _, tok := range strings.Split(upper, ",") {
			tokens[strings.TrimSpace(strings.Trim(strings.TrimSpace(tok), "<>"))] = true
		}
		matched := 0
		for _, want := range stooqHeader {
			if tokens[want] {
				matched++
			}
		}
		if matched == len(stooqHeader) {
			return Stooq, ','
		}
	}

	for _, d := range []rune{',', '\t', ';', '|'} {
		if strings.ContainsRune(line, d) {
			return TXT, d
		}
	}
	return TXT, '\t'
}
