// Package dumpfile reads and writes store dumps on disk.
//
// A path ending in .jsonl holds one {"key":...,"value":...} object per line,
// sorted by key so dumps diff cleanly under version control. Any other path
// holds one flat JSON object mapping keys to raw values. Writes are atomic:
// temp file, fsync, rename.
package dumpfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/store"
)

type line struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func isJSONL(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jsonl")
}

// Read loads the dump stored at path.
func Read(path string) (store.Dump, error) {
	if isJSONL(path) {
		return readJSONL(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	d := store.Dump{}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return d, nil
}

// Write stores d at path, replacing any existing file.
func Write(path string, d store.Dump) error {
	return writeAtomic(path, func(w *bufio.Writer) error {
		if isJSONL(path) {
			return encodeJSONL(w, d)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	})
}

// readJSONL skips blank and malformed lines.
func readJSONL(path string) (store.Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	d := store.Dump{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil || l.Key == "" {
			continue
		}
		d[l.Key] = l.Value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return d, nil
}

func encodeJSONL(w *bufio.Writer, d store.Dump) error {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	enc := json.NewEncoder(w)
	for _, k := range keys {
		if err := enc.Encode(line{Key: k, Value: d[k]}); err != nil {
			return fmt.Errorf("writing %s: %w", k, err)
		}
	}
	return nil
}

func writeAtomic(path string, fill func(*bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".larder-dump-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		return fail(err)
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
