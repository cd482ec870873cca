// Calyx CLI - loads serialized value files and provides a reader REPL
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/calyxlang/calyx/config"
	"github.com/calyxlang/calyx/vm"
)

func main() {
	// Exit through a helper so deferred teardown still runs on error paths.
	os.Exit(run())
}

func run() int {
	interactive := flag.Bool("i", false, "Start interactive reader REPL")
	verbosity := flag.Int("v", 0, "Log verbosity (0 quiet, higher is chattier)")
	configDir := flag.String("config", "", "Directory containing calyx.toml (default: search upward from cwd)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: calyx [options] [paths...]\n\n")
		fmt.Fprintf(os.Stderr, "Reads serialized values from the given files and echoes their canonical form.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  calyx data.scm          # Echo every value in data.scm\n")
		fmt.Fprintf(os.Stderr, "  calyx -i                # Start the reader REPL\n")
		fmt.Fprintf(os.Stderr, "  calyx -config ./etc x.scm  # Use ./etc/calyx.toml\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	level := cfg.Log.Verbosity
	if *verbosity > level {
		level = *verbosity
	}
	commonlog.Configure(level, nil)

	env := vm.NewEnv(vm.Options{
		InitialCells:   cfg.Heap.InitialCells,
		DefaultBuckets: cfg.Hashtable.DefaultBuckets,
		TabWidth:       cfg.Port.TabWidth,
		WriteMarker:    cfg.Port.WriteMarker,
	})
	defer env.Shutdown()

	paths := flag.Args()
	for _, path := range paths {
		if err := echoFile(env, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if *interactive || (len(paths) == 0 && isatty.IsTerminal(os.Stdin.Fd())) {
		repl(env)
	}
	return 0
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// echoFile reads every value in the file on a trusted port and writes its
// canonical form to standard output.
func echoFile(env *vm.Env, path string) error {
	p := env.OpenFile(path, vm.PortRead|vm.PortTrustedInput)
	defer p.Close()

	out := env.Stdout()
	for {
		sp := env.StackPos()
		c, err := env.ReadCell(p)
		if errors.Is(err, io.EOF) {
			env.Unwind(sp)
			return nil
		}
		if err != nil {
			env.Unwind(sp)
			return err
		}
		env.WriteLine(out, c)
		env.Unwind(sp)
	}
}

// repl runs a line-oriented read-echo loop over liner.
func repl(env *vm.Env) {
	cli := liner.NewLiner()
	defer cli.Close()

	cli.SetCtrlCAborts(true)

	out := env.Stdout()
	for {
		line, err := cli.Prompt("> ")
		switch err {
		case nil:
			// fall through
		case liner.ErrPromptAborted:
			continue
		default:
			fmt.Println()
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cli.AppendHistory(line)

		p := env.WrapReader(strings.NewReader(line), vm.PortTrustedInput)
		for {
			sp := env.StackPos()
			c, rerr := env.ReadCell(p)
			if errors.Is(rerr, io.EOF) {
				env.Unwind(sp)
				break
			}
			if rerr != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", rerr)
				env.Unwind(sp)
				break
			}
			env.WriteLine(out, c)
			env.Unwind(sp)
		}
	}
}
