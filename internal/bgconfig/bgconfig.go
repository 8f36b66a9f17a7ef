// Package bgconfig loads optional defaults for the CLI driver from a
// ".boringrep.kdl" file, walking the parsed KDL document by hand node by
// node. These values are defaults only: they never become part of an
// [engine.GrepRequest] and are overridden by any CLI flag the caller
// passes explicitly (see cmd/boringrep).
//
// Recognised nodes: "workers", "name", "inputs-capacity",
// "results-capacity", and "chunk-size" — the same knobs
// [engine.Options] exposes, sourced from a file instead of only
// constructor arguments.
package bgconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Config holds defaults for the engine's tunables.
type Config struct {
	// Workers is the default Match Worker Pool size. 0 means "use the
	// engine's own default" ([engine.DefaultWorkers]).
	Workers int
	// Name is the default filename pattern when none is given on the
	// command line.
	Name string
	// InputsCapacity bounds the enumerator-to-worker pipe. 0 means
	// unbounded.
	InputsCapacity int
	// ResultsCapacity bounds the worker-to-aggregator pipe. 0 means
	// unbounded.
	ResultsCapacity int
	// ChunkSize is the enumerator's flush batch size. 0 means a batch size
	// equal to the worker count.
	ChunkSize int
}

// Load reads ".boringrep.kdl" from dir, if present. A missing file is not
// an error: it returns a zero Config, meaning "use built-in defaults".
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, ".boringrep.kdl")

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	var cfg Config
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "workers":
			if v, ok := firstIntArg(n); ok {
				cfg.Workers = v
			}
		case "name":
			if s, ok := firstStringArg(n); ok {
				cfg.Name = s
			}
		case "inputs-capacity":
			if v, ok := firstIntArg(n); ok {
				cfg.InputsCapacity = v
			}
		case "results-capacity":
			if v, ok := firstIntArg(n); ok {
				cfg.ResultsCapacity = v
			}
		case "chunk-size":
			if v, ok := firstIntArg(n); ok {
				cfg.ChunkSize = v
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
