// dbctl creates, inspects and drives daqbuf shared-memory buffers.
//
//	dbctl <command> [flags]
//
// Settings come from dbctl.ini (see -config) and are overridden by flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/greedchase/daqbuf/stlog"
	"github.com/greedchase/daqbuf/stutil"
)

var LOG = stlog.NewLogger()

type command struct {
	usage string
	run   func(ctx context.Context, cfg *dbConfig) error
	flags func(fs *flag.FlagSet)
}

var commands = map[string]command{
	"create":  {"create a buffer (-hold keeps it until a signal, then destroys it)", runCreate, createFlags},
	"attach":  {"attach and print the descriptor", runAttach, nil},
	"status":  {"print the state of every block", runStatus, nil},
	"clear":   {"force every block FREE and every header empty", runClear, nil},
	"destroy": {"remove segment and semaphores from the kernel", runDestroy, nil},
	"produce": {"fill blocks around the ring", runProduce, countFlags},
	"consume": {"read blocks around the ring and free them", runConsume, countFlags},
	"dump":    {"copy one block to a file", runDump, dumpFlags},
	"monitor": {"serve block states over HTTP", runMonitor, nil},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dbctl <command> [flags]")
	names := make([]string, 0, len(commands))
	for k := range commands {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", k, commands[k].usage)
	}
}

func main() {
	code := run(os.Args[1:])
	LOG.Close()
	os.Exit(code)
}

func run(args []string) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		usage()
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "dbctl: unknown command %q\n", args[0])
		usage()
		return 2
	}

	fs := flag.NewFlagSet("dbctl "+args[0], flag.ContinueOnError)
	ov := overrideFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if e := fs.Parse(args[1:]); e != nil {
		return 2
	}

	cfg, e := LoadCfg(*ov.config)
	if e != nil {
		fmt.Fprintf(os.Stderr, "dbctl: %v\n", e)
		return 1
	}
	if e = ov.apply(fs, cfg); e != nil {
		fmt.Fprintf(os.Stderr, "dbctl: %v\n", e)
		return 1
	}
	cfg.setupLog(LOG)

	ctx, cancel := stutil.SignalContext(context.Background())
	defer cancel()
	if e = cmd.run(ctx, cfg); e != nil {
		LOG.Error("%s: %v", args[0], e)
		return 1
	}
	return 0
}
