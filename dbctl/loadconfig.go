// loadconfig
package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/greedchase/daqbuf/databuf"
	"github.com/greedchase/daqbuf/statdb"
	"github.com/greedchase/daqbuf/stconfig"
	"github.com/greedchase/daqbuf/stlog"
)

type dbConfig struct {
	KeyBase         int
	ID              int
	Key             int // explicit key, wins over KeyBase+ID when nonzero
	NBlock          int
	BlockSize       uint64
	HeaderSize      uint64
	HeadersPerBlock int
	WaitTimeout     time.Duration
	LockFile        string

	LogLevel     stlog.Level
	LogFile      string
	LogFileLevel stlog.Level
	LogMaxSize   int
	LogDaily     bool
	LogBackup    int

	MonitorAddr     string
	MonitorInterval time.Duration
	MonitorMaxConns int

	DBDriver string
	DBDSN    string
}

func defaultConfig() *dbConfig {
	return &dbConfig{
		KeyBase:         databuf.DefaultKeyBase,
		ID:              1,
		NBlock:          4,
		BlockSize:       1 << 20,
		HeaderSize:      databuf.DefaultHeaderSize,
		HeadersPerBlock: 1,
		WaitTimeout:     databuf.WaitTimeout,
		LockFile:        "/tmp/dbctl.produce.lock",
		LogLevel:        stlog.INFO,
		LogFileLevel:    stlog.INFO,
		LogMaxSize:      100 << 20,
		LogBackup:       10,
		MonitorAddr:     "127.0.0.1:8631",
		MonitorInterval: time.Second,
		MonitorMaxConns: 16,
	}
}

// LoadCfg reads path over the defaults. A missing file leaves the defaults.
func LoadCfg(path string) (*dbConfig, error) {
	cfg := defaultConfig()
	c, e := stconfig.LoadINI(path)
	if errors.Is(e, fs.ErrNotExist) {
		return cfg, nil
	}
	if e != nil {
		return nil, e
	}
	if e = cfg.apply(c); e != nil {
		return nil, e
	}
	return cfg, cfg.layout().Validate()
}

func (cfg *dbConfig) apply(c *stconfig.Config) error {
	cfg.KeyBase = int(c.IntegerSection("databuf", "key_base", int64(cfg.KeyBase)))
	cfg.ID = int(c.IntegerSection("databuf", "id", int64(cfg.ID)))
	cfg.Key = int(c.IntegerSection("databuf", "key", int64(cfg.Key)))
	cfg.NBlock = int(c.IntegerSection("databuf", "n_block", int64(cfg.NBlock)))
	cfg.BlockSize = uint64(c.IntegerSection("databuf", "block_size", int64(cfg.BlockSize)))
	cfg.HeaderSize = uint64(c.IntegerSection("databuf", "header_size", int64(cfg.HeaderSize)))
	cfg.HeadersPerBlock = int(c.IntegerSection("databuf", "headers_per_block", int64(cfg.HeadersPerBlock)))
	cfg.WaitTimeout = c.DurationSection("databuf", "wait_timeout", cfg.WaitTimeout)
	cfg.LockFile = c.StringSection("databuf", "lock_file", cfg.LockFile)

	var e error
	if cfg.LogLevel, e = level(c, "level", cfg.LogLevel); e != nil {
		return e
	}
	if cfg.LogFileLevel, e = level(c, "file_level", cfg.LogFileLevel); e != nil {
		return e
	}
	cfg.LogFile = c.StringSection("log", "file", cfg.LogFile)
	cfg.LogMaxSize = int(c.IntegerSection("log", "max_size", int64(cfg.LogMaxSize)))
	cfg.LogDaily = c.BooleanSection("log", "daily", cfg.LogDaily)
	cfg.LogBackup = int(c.IntegerSection("log", "max_backup", int64(cfg.LogBackup)))

	cfg.MonitorAddr = c.StringSection("monitor", "addr", cfg.MonitorAddr)
	cfg.MonitorInterval = c.DurationSection("monitor", "interval", cfg.MonitorInterval)
	cfg.MonitorMaxConns = int(c.IntegerSection("monitor", "max_conns", int64(cfg.MonitorMaxConns)))

	cfg.DBDriver = c.StringSection("statdb", "driver", cfg.DBDriver)
	cfg.DBDSN = c.StringSection("statdb", "dsn", cfg.DBDSN)
	if cfg.DBDriver == "mysql" && cfg.DBDSN == "" {
		cfg.DBDSN = statdb.MySQLDSN(
			c.StringSection("statdb", "user", "root"),
			c.StringSection("statdb", "password", ""),
			c.StringSection("statdb", "host", "127.0.0.1"),
			int(c.IntegerSection("statdb", "port", 3306)),
			c.StringSection("statdb", "database", "daq"))
	}
	return nil
}

func level(c *stconfig.Config, key string, def stlog.Level) (stlog.Level, error) {
	s := c.StringSection("log", key, "")
	if s == "" {
		return def, nil
	}
	return stlog.ParseLevel(s)
}

func (cfg *dbConfig) key() int {
	if cfg.Key != 0 {
		return cfg.Key
	}
	return databuf.Key(cfg.KeyBase, cfg.ID)
}

func (cfg *dbConfig) layout() databuf.Layout {
	l := databuf.NewLayout(cfg.NBlock, cfg.BlockSize)
	l.HeaderSize = cfg.HeaderSize
	l.HeadersPerBlock = cfg.HeadersPerBlock
	return l
}

func (cfg *dbConfig) setupLog(log *stlog.Logger) {
	log.SetTermLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		daily := 0
		if cfg.LogDaily {
			daily = 1
		}
		log.SetFileLevel(cfg.LogFileLevel, cfg.LogFile, cfg.LogMaxSize, daily, cfg.LogBackup)
	}
	databuf.SetLogger(log)
}
