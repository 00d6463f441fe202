package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelguard.ai/internal/sim/world"
)

// ListFiles returns <prefix>-*.jsonl.zst files in dir, oldest hour first.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadJSONL calls fn with each line of a .jsonl.zst file. Returning an error
// from fn stops the scan.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadTickLog streams every tick entry under dir in file order.
func ReadTickLog(dir string, fn func(world.TickLogEntry) error) error {
	files, err := ListFiles(dir, "events")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no events files in %s", dir)
	}
	for _, path := range files {
		err := ReadJSONL(path, func(line []byte) error {
			var entry world.TickLogEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			return fn(entry)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadFlags returns the flag records in a flags directory.
func ReadFlags(dir string) ([]FlagRecord, error) {
	files, err := ListFiles(dir, "flags")
	if err != nil {
		return nil, err
	}
	var out []FlagRecord
	for _, path := range files {
		err := ReadJSONL(path, func(line []byte) error {
			var r FlagRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
