// Package ingest discovers dated run files on disk and decodes their
// raw per-game rows. A run lives at
// runs/YYYY-MM-DD/pruned/<date>_top-earning_pruned.json; the date is
// taken from the path, not file metadata.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

var dateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// RunFile is one discovered pruned run file.
type RunFile struct {
	Date time.Time
	Path string
}

// DiscoverRunFiles scans runsDir for pruned run files and returns them
// sorted by date. Files whose path carries no date are skipped; a
// missing runs directory is an error.
func DiscoverRunFiles(runsDir string) ([]RunFile, error) {
	if _, err := os.Stat(runsDir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("runs dir not found: %s", runsDir)
		}
		return nil, fmt.Errorf("failed to stat runs dir %s: %w", runsDir, err)
	}

	matches, err := filepath.Glob(filepath.Join(runsDir, "*", "pruned", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob runs dir %s: %w", runsDir, err)
	}

	files := make([]RunFile, 0, len(matches))
	for _, path := range matches {
		dateStr := dateRe.FindString(path)
		if dateStr == "" {
			continue
		}
		date, err := contracts.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q in run path %s", dateStr, path)
		}
		files = append(files, RunFile{Date: date, Path: path})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Date.Before(files[j].Date)
	})

	return files, nil
}

// LoadRunFile reads one pruned run file and returns its raw rows.
func LoadRunFile(path string) ([]contracts.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file %s: %w", path, err)
	}
	return decodeRows(data, path)
}

// decodeRows accepts the three payload shapes run files come in: a
// plain list of objects, {"data": [...]}, or a map of id to object.
func decodeRows(data []byte, name string) ([]contracts.RawRow, error) {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON in %s: %w", name, err)
	}

	switch v := payload.(type) {
	case []interface{}:
		return objectRows(v), nil

	case map[string]interface{}:
		if inner, ok := v["data"].([]interface{}); ok {
			return objectRows(inner), nil
		}
		if rows, ok := mappedRows(v); ok {
			return rows, nil
		}
	}

	return nil, fmt.Errorf("unsupported JSON shape in %s", name)
}

// objectRows keeps the object elements of a decoded list. Stray
// non-object entries carry no game id and are dropped here rather than
// failing the whole file.
func objectRows(items []interface{}) []contracts.RawRow {
	rows := make([]contracts.RawRow, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			rows = append(rows, contracts.RawRow(obj))
		}
	}
	return rows
}

// mappedRows handles the id-keyed shape. All values must be objects;
// keys are sorted so the row order is reproducible.
func mappedRows(m map[string]interface{}) ([]contracts.RawRow, bool) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if _, ok := v.(map[string]interface{}); !ok {
			return nil, false
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]contracts.RawRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, contracts.RawRow(m[k].(map[string]interface{})))
	}
	return rows, true
}
