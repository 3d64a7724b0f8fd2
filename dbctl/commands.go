// commands
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/greedchase/daqbuf/databuf"
	"github.com/greedchase/daqbuf/monitor"
	"github.com/greedchase/daqbuf/statdb"
	"github.com/greedchase/daqbuf/stlog"
	"github.com/greedchase/daqbuf/stutil"
)

var (
	flagHold  bool
	flagCount int64
	flagBlock int
	flagOut   string
)

type overrides struct {
	config    *string
	id        *int
	key       *int
	nBlock    *int
	blockSize *uint64
	timeout   *time.Duration
	level     *string
}

func overrideFlags(fs *flag.FlagSet) *overrides {
	return &overrides{
		config:    fs.String("config", "dbctl.ini", "configuration file"),
		id:        fs.Int("id", 0, "buffer id, key is key_base+id-1"),
		key:       fs.Int("key", 0, "explicit IPC key"),
		nBlock:    fs.Int("nblock", 0, "number of blocks (create)"),
		blockSize: fs.Uint64("blocksize", 0, "payload bytes per block (create)"),
		timeout:   fs.Duration("timeout", 0, "bound of one wait"),
		level:     fs.String("log", "", "terminal log level"),
	}
}

// apply copies the flags given on the command line over cfg.
func (ov *overrides) apply(fs *flag.FlagSet, cfg *dbConfig) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "id":
			cfg.ID = *ov.id
		case "key":
			cfg.Key = *ov.key
		case "nblock":
			cfg.NBlock = *ov.nBlock
		case "blocksize":
			cfg.BlockSize = *ov.blockSize
		case "timeout":
			cfg.WaitTimeout = *ov.timeout
		case "log":
			cfg.LogLevel, err = stlog.ParseLevel(*ov.level)
		}
	})
	return err
}

func createFlags(fs *flag.FlagSet) {
	fs.BoolVar(&flagHold, "hold", false, "keep the buffer until SIGINT/SIGTERM, then destroy it")
}

func countFlags(fs *flag.FlagSet) {
	fs.Int64Var(&flagCount, "count", 0, "blocks to process, 0 runs until a signal")
}

func dumpFlags(fs *flag.FlagSet) {
	fs.IntVar(&flagBlock, "block", 0, "block index")
	fs.StringVar(&flagOut, "out", "block.dump", "output file")
}

func attachCfg(cfg *dbConfig) (*databuf.Databuf, error) {
	db, e := databuf.AttachKey(cfg.key())
	if e != nil {
		if errors.Is(e, databuf.ErrNotFound) {
			return nil, fmt.Errorf("no buffer under key 0x%08x", cfg.key())
		}
		return nil, e
	}
	db.SetWaitTimeout(cfg.WaitTimeout)
	return db, nil
}

func printDescriptor(db *databuf.Databuf) {
	d := db.Descriptor()
	fmt.Printf("key               0x%08x\n", db.Key())
	fmt.Printf("shm_id            %d\n", d.ShmID)
	fmt.Printf("sem_id            %d\n", d.SemID)
	fmt.Printf("n_block           %d\n", d.NBlock)
	fmt.Printf("block_size        %d\n", d.BlockSize)
	fmt.Printf("header_size       %d\n", d.HeaderSize)
	fmt.Printf("index_size        %d\n", d.IndexSize)
	fmt.Printf("headers_per_block %d\n", d.HeadersPerBlock)
	fmt.Printf("region_size       %d\n", db.Layout().RegionSize())
}

func runCreate(ctx context.Context, cfg *dbConfig) error {
	db, e := databuf.CreateKey(cfg.key(), cfg.layout())
	if e != nil {
		return e
	}
	printDescriptor(db)
	if !flagHold {
		return db.Detach()
	}
	LOG.Info("holding buffer 0x%08x until a signal", cfg.key())
	<-ctx.Done()
	return db.Destroy()
}

func runAttach(ctx context.Context, cfg *dbConfig) error {
	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()
	printDescriptor(db)
	return nil
}

func runStatus(ctx context.Context, cfg *dbConfig) error {
	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()
	states, e := db.Snapshot()
	if e != nil {
		return e
	}
	filled := 0
	for i, s := range states {
		if s == databuf.StateFilled {
			filled++
		}
		fmt.Printf("%4d %s\n", i, s)
	}
	fmt.Printf("filled %d/%d\n", filled, len(states))
	return nil
}

func runClear(ctx context.Context, cfg *dbConfig) error {
	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()
	return db.Clear()
}

func runDestroy(ctx context.Context, cfg *dbConfig) error {
	return databuf.DestroyKey(cfg.key())
}

func runProduce(ctx context.Context, cfg *dbConfig) error {
	lock, e := stutil.SysLock(cfg.LockFile)
	if e != nil {
		return e
	}
	defer lock.Close()

	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()

	n, e := produce(ctx, db, flagCount)
	LOG.Info("produced %d blocks", n)
	return e
}

func runConsume(ctx context.Context, cfg *dbConfig) error {
	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()

	st, e := consume(ctx, db, flagCount)
	LOG.Info("consumed %d blocks, %d digest mismatches, last seq %d", st.Blocks, st.Mismatch, st.LastSeq)
	if e == nil && st.Mismatch > 0 {
		e = fmt.Errorf("%d blocks failed the digest check", st.Mismatch)
	}
	return e
}

func runDump(ctx context.Context, cfg *dbConfig) error {
	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()
	sum, e := dump(db, flagBlock, flagOut)
	if e != nil {
		return e
	}
	fmt.Printf("%s  %s\n", sum, flagOut)
	return nil
}

func runMonitor(ctx context.Context, cfg *dbConfig) error {
	db, e := attachCfg(cfg)
	if e != nil {
		return e
	}
	defer db.Detach()

	var rec monitor.Recorder
	if cfg.DBDriver != "" {
		sdb, e := statdb.Open(cfg.DBDriver, cfg.DBDSN)
		if e != nil {
			return e
		}
		defer sdb.Close()
		rec = sdb
	}
	s := monitor.NewSampler(db, cfg.MonitorInterval, rec, LOG)

	LOG.Info("monitor on http://%s/status", cfg.MonitorAddr)
	return monitor.Serve(ctx, cfg.MonitorAddr, cfg.MonitorMaxConns, s)
}

