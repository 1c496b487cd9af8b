// Package main is the prefkit command-line tool: it assembles a
// settings registry from extension directories and a snapshot file,
// then inspects or modifies it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/prefkit/internal/extension"
	"github.com/dshills/prefkit/internal/extension/luaext"
	"github.com/dshills/prefkit/internal/notify"
	"github.com/dshills/prefkit/internal/registry"
	"github.com/dshills/prefkit/internal/store"
	"github.com/dshills/prefkit/internal/typesys"
	"github.com/dshills/prefkit/internal/watcher"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	storePath string
	extDirs   stringList
	verbose   bool
}

type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func run() int {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.storePath, "store", "", "Path to the settings snapshot (.toml, .json, .yaml)")
	flag.Var(&opts.extDirs, "ext", "Extension directory to scan (repeatable)")
	flag.BoolVar(&opts.verbose, "v", false, "Print diagnostics")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("prefkit %s (%s)\n", version, commit)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return 2
	}

	ctx := context.Background()
	reg, st, cleanup, err := build(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	switch cmd := args[0]; cmd {
	case "list":
		for _, e := range reg.Entries() {
			fmt.Printf("%s = %v\n", e.Name, e.Value)
		}
		return 0

	case "get":
		if len(args) != 2 {
			return badUsage("get NAME")
		}
		value, ok := reg.Get(args[1])
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown setting %q\n", args[1])
			return 1
		}
		fmt.Printf("%v\n", value)
		return 0

	case "set":
		if len(args) != 3 {
			return badUsage("set NAME VALUE")
		}
		if err := reg.SetString(ctx, args[1], args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return persist(ctx, reg, st)

	case "reset":
		if len(args) != 2 {
			return badUsage("reset NAME")
		}
		if err := reg.Reset(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return persist(ctx, reg, st)

	case "watch":
		return watch(ctx, reg, st, opts)

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		usage()
		return 2
	}
}

// build assembles the resolver, extension catalog, store and registry.
func build(ctx context.Context, opts options) (*registry.Registry, store.Store, func(), error) {
	runner := luaext.NewRunner()

	loader := extension.NewLoader(
		extension.WithPaths(opts.extDirs...),
		extension.WithScriptRunner(runner),
	)
	catalog, errs := loader.Catalog()
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	var st store.Store
	if opts.storePath != "" {
		var err error
		st, err = store.ForPath(opts.storePath)
		if err != nil {
			runner.Close()
			return nil, nil, nil, err
		}
	}

	regOpts := []registry.Option{}
	if st != nil {
		regOpts = append(regOpts, registry.WithStore(st))
	}
	if opts.verbose {
		regOpts = append(regOpts, registry.WithDiagnostics(log.Printf))
	}

	reg := registry.New(typesys.NewWithBuiltins(), catalog, regOpts...)
	if err := reg.Initialize(ctx); err != nil {
		runner.Close()
		return nil, nil, nil, err
	}
	return reg, st, runner.Close, nil
}

func persist(ctx context.Context, reg *registry.Registry, st store.Store) int {
	if st == nil {
		fmt.Fprintln(os.Stderr, "Warning: no -store configured, change not persisted")
		return 0
	}
	if err := reg.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// watch prints every change and live-reloads when the snapshot file is
// rewritten, until interrupted.
func watch(ctx context.Context, reg *registry.Registry, st store.Store, opts options) int {
	reg.Subscribe(func(e notify.Event) {
		fmt.Printf("%s = %v\n", e.Name, e.Value)
	})

	if st != nil && opts.storePath != "" {
		w, err := watcher.New(opts.storePath, func() {
			snapshot, err := st.Load(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: reload failed: %v\n", err)
				return
			}
			reg.LoadFrom(ctx, snapshot)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer w.Close()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	return 0
}

func badUsage(form string) int {
	fmt.Fprintf(os.Stderr, "Usage: prefkit %s\n", form)
	return 2
}

func usage() {
	fmt.Fprintf(os.Stderr, `prefkit - typed, extensible settings registry

Usage: prefkit [flags] <command> [args]

Commands:
  list              Print all settings with their current values
  get NAME          Print one setting's value
  set NAME VALUE    Set a setting (VALUE parsed by the setting's type)
  reset NAME        Restore a setting's default
  watch             Print changes and live-reload on snapshot writes

Flags:
`)
	flag.PrintDefaults()
}
