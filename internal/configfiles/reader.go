// Package configfiles reads a directory of text snippets into a Map keyed by
// filename. Each snippet later becomes one CONFIG_ column in the output.
package configfiles

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the suffix a directory entry must carry to be read.
const Ext = ".txt"

// Map maps a config filename (e.g. "region.txt") to its trimmed content.
type Map map[string]string

// Names returns the filenames in ascending order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Read lists dir (non-recursively) and loads every regular entry whose name
// ends in ".txt". Content is normalized and trimmed of surrounding whitespace.
// Other entries, subdirectories included, are skipped.
func Read(dir string) (Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("read config directory failed", "dir", dir, "error", err)
		return nil, fmt.Errorf("list config directory: %w", err)
	}

	configs := make(Map, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("read config file failed", "path", path, "error", err)
			return nil, fmt.Errorf("read config file %s: %w", entry.Name(), err)
		}

		configs[entry.Name()] = strings.TrimSpace(normalize(data))
	}

	slog.Debug("config files read", "dir", dir, "count", len(configs))
	return configs, nil
}

// ColumnName returns the output column for a config filename:
// "region.txt" becomes "CONFIG_region".
func ColumnName(filename string) string {
	return "CONFIG_" + strings.TrimSuffix(filename, Ext)
}
