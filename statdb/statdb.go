// Package statdb keeps a history of buffer status samples in SQL, MySQL on
// shared monitoring hosts or SQLite on a single acquisition node.
package statdb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const createTable = `CREATE TABLE IF NOT EXISTS databuf_status (
	ts BIGINT NOT NULL,
	buffer_key BIGINT NOT NULL,
	n_block INT NOT NULL,
	filled INT NOT NULL,
	blocks VARCHAR(4096) NOT NULL
)`

// Sample is the state of one buffer at one time. Blocks has one digit per
// block, '1' for FILLED and '0' for FREE.
type Sample struct {
	Time   time.Time `json:"time"`
	Key    int       `json:"key"`
	NBlock int       `json:"n_block"`
	Filled int       `json:"filled"`
	Blocks string    `json:"blocks"`
}

type DB struct {
	db     *sql.DB
	driver string
}

// Open connects with driver "mysql" or "sqlite3" and creates the table.
func Open(driver, dsn string) (*DB, error) {
	if driver != "mysql" && driver != "sqlite3" {
		return nil, fmt.Errorf("statdb: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if _, err = db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("statdb: create table: %w", err)
	}
	return &DB{db: db, driver: driver}, nil
}

// MySQLDSN builds a mysql driver DSN, "user:pwd@tcp(host:port)/dbname".
func MySQLDSN(user, pwd, host string, port int, dbname string) string {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = pwd
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = dbname
	c.Timeout = 5 * time.Second
	return c.FormatDSN()
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Record(ctx context.Context, s Sample) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO databuf_status (ts, buffer_key, n_block, filled, blocks) VALUES (?, ?, ?, ?, ?)",
		s.Time.UnixMilli(), s.Key, s.NBlock, s.Filled, s.Blocks)
	if err != nil {
		return fmt.Errorf("statdb: record: %w", err)
	}
	return nil
}

// Recent returns up to limit samples of key, newest first.
func (d *DB) Recent(ctx context.Context, key int, limit int) ([]Sample, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT ts, buffer_key, n_block, filled, blocks FROM databuf_status WHERE buffer_key = ? ORDER BY ts DESC LIMIT ?",
		key, limit)
	if err != nil {
		return nil, fmt.Errorf("statdb: recent: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var ts int64
		if err := rows.Scan(&ts, &s.Key, &s.NBlock, &s.Filled, &s.Blocks); err != nil {
			return nil, err
		}
		s.Time = time.UnixMilli(ts)
		out = append(out, s)
	}
	return out, rows.Err()
}
