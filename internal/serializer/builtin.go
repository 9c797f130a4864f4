package serializer

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtins lists the names of the starter sequences bundled with cadence.
func Builtins() ([]string, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin sequences: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Builtin decodes one bundled starter sequence by name.
func Builtin(name string) (*OrderedSequence, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown builtin sequence %q", name)
	}
	seq, err := Decode(data, FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("parse builtin sequence %s: %w", name, err)
	}
	return seq, nil
}
