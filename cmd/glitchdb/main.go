// Command glitchdb is a thin CLI front-end over the partition engine,
// grounded on the teacher's cmd/mddb/main.go: flag parsing, a
// structured logger installed as slog's default, then a single
// action dispatched from the parsed arguments.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/subramanian-elavathur/glitch-db/internal/applog"
	"github.com/subramanian-elavathur/glitch-db/internal/config"
	"github.com/subramanian-elavathur/glitch-db/pkg/glitchdb"
)

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "glitchdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	baseDir := flag.String("base-dir", "", "Base directory for partitions (overrides config)")
	partition := flag.String("partition", "", "Partition name to operate on")
	flavor := flag.String("flavor", "plain", "Partition flavor: plain, versioned, bitemporal")
	indexPaths := flag.StringSlice("index-paths", nil, "Comma-separated field paths to index")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	version := flag.Int("version", 0, "Version number for versioned get (0 means latest)")
	validAsOf := flag.Int64("as-of", 0, "Valid-time instant (epoch ms) for bitemporal get (0 means now)")
	validFrom := flag.Int64("valid-from", 0, "Valid-time interval start (epoch ms) for bitemporal set")
	validTo := flag.Int64("valid-to", glitchdb.InfinityTime, "Valid-time interval end (epoch ms, -1 means open-ended)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *baseDir != "" {
		cfg.BaseDir = *baseDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := applog.New(cfg.LogLevel)
	slog.SetDefault(logger)

	args := flag.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: glitchdb [flags] <set|get|versions|delete|keys|backup> ...")
	}

	registry, err := glitchdb.NewRegistry(cfg.BaseDir, cfg.DefaultCache, glitchdb.WithLogger(logger))
	if err != nil {
		return err
	}
	defer registry.Close()

	if *partition == "" && args[0] != "backup" {
		return fmt.Errorf("--partition is required")
	}

	switch args[0] {
	case "set":
		return runSet(registry, *partition, *flavor, *indexPaths, args[1:], *validFrom, *validTo)
	case "get":
		return runGet(registry, *partition, *flavor, *indexPaths, args[1:], *version, *validAsOf)
	case "versions":
		return runVersions(registry, *partition, *flavor, *indexPaths, args[1:])
	case "delete":
		return runDelete(registry, *partition, *flavor, *indexPaths, args[1:])
	case "keys":
		return runKeys(registry, *partition, *flavor, *indexPaths)
	case "backup":
		return runBackup(registry, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runSet(r *glitchdb.Registry, name, flavor string, idxPaths, args []string, validFrom, validTo int64) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: glitchdb set <key> <json-value>")
	}
	key, raw := args[0], args[1]
	var value map[string]any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return fmt.Errorf("failed to parse value as JSON object: %w", err)
	}

	switch flavor {
	case "plain":
		p, err := glitchdb.GetPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		return p.Set(key, value)
	case "versioned":
		p, err := glitchdb.GetVersionedPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		return p.Set(key, value, nil)
	case "bitemporal":
		p, err := glitchdb.GetBitemporalPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		vf, vt := &validFrom, &validTo
		return p.Set(key, value, vf, vt, nil)
	default:
		return fmt.Errorf("unknown flavor %q", flavor)
	}
}

func runGet(r *glitchdb.Registry, name, flavor string, idxPaths, args []string, version int, asOf int64) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: glitchdb get <key>")
	}
	key := args[0]

	switch flavor {
	case "plain":
		p, err := glitchdb.GetPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		v, ok := p.Get(key)
		return printResult(v, ok)
	case "versioned":
		p, err := glitchdb.GetVersionedPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		var vp *int
		if version != 0 {
			vp = &version
		}
		v, ok := p.Get(key, vp)
		return printResult(v, ok)
	case "bitemporal":
		p, err := glitchdb.GetBitemporalPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		var ap *int64
		if asOf != 0 {
			ap = &asOf
		}
		v, ok := p.Get(key, ap)
		return printResult(v, ok)
	default:
		return fmt.Errorf("unknown flavor %q", flavor)
	}
}

func runVersions(r *glitchdb.Registry, name, flavor string, idxPaths, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: glitchdb versions <key>")
	}
	key := args[0]

	switch flavor {
	case "versioned":
		p, err := glitchdb.GetVersionedPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		v, ok := p.GetAllVersions(key)
		return printResult(v, ok)
	case "bitemporal":
		p, err := glitchdb.GetBitemporalPartition[map[string]any](r, name, idxPaths, nil)
		if err != nil {
			return err
		}
		v, ok := p.GetAllVersions(key)
		return printResult(v, ok)
	default:
		return fmt.Errorf("versions is only meaningful for versioned or bitemporal partitions")
	}
}

func runDelete(r *glitchdb.Registry, name, flavor string, idxPaths, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: glitchdb delete <key>")
	}
	key := args[0]

	p, err := glitchdb.GetPartition[map[string]any](r, name, idxPaths, nil)
	if err != nil {
		return err
	}
	removed := p.Delete(key)
	fmt.Println(strconv.FormatBool(removed))
	return nil
}

func runKeys(r *glitchdb.Registry, name, flavor string, idxPaths []string) error {
	p, err := glitchdb.GetPartition[map[string]any](r, name, idxPaths, nil)
	if err != nil {
		return err
	}
	keys, err := p.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

func runBackup(r *glitchdb.Registry, args []string) error {
	outDir := "."
	if len(args) > 0 {
		outDir = args[0]
	}
	path, err := r.Backup(outDir)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func printResult(v any, ok bool) error {
	if !ok {
		fmt.Println("null")
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
