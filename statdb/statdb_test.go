package statdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func openTest(t *testing.T, driver, dsn string) *DB {
	db, err := Open(driver, dsn)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED") {
		t.Skipf("%s driver needs cgo: %v", driver, err)
	}
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecordRecent(t *testing.T, db *DB) {
	ctx := context.Background()
	base := time.UnixMilli(time.Now().UnixMilli())
	key := 0x00C62C70 + int(base.UnixMilli()%1000)
	for i := 0; i < 3; i++ {
		s := Sample{Time: base.Add(time.Duration(i) * time.Second), Key: key, NBlock: 4, Filled: i, Blocks: "0000"[:4-i] + "1111"[:i]}
		if err := db.Record(ctx, s); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	if err := db.Record(ctx, Sample{Time: base, Key: key + 1, NBlock: 2, Blocks: "00"}); err != nil {
		t.Fatalf("Record other key: %v", err)
	}

	got, err := db.Recent(ctx, key, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d samples, want 2", len(got))
	}
	if got[0].Filled != 2 || got[0].Blocks != "0011" || !got[0].Time.Equal(base.Add(2*time.Second)) {
		t.Errorf("newest = %+v", got[0])
	}
	if got[1].Filled != 1 || got[1].NBlock != 4 || got[1].Key != key {
		t.Errorf("second = %+v", got[1])
	}
}

func TestSQLite(t *testing.T) {
	db := openTest(t, "sqlite3", filepath.Join(t.TempDir(), "status.db"))
	if db.Driver() != "sqlite3" {
		t.Errorf("Driver = %q", db.Driver())
	}
	testRecordRecent(t, db)
}

// TestMySQL runs against the server in DAQBUF_MYSQL_DSN, e.g.
// "user:pwd@tcp(127.0.0.1:3306)/daq".
func TestMySQL(t *testing.T) {
	dsn := os.Getenv("DAQBUF_MYSQL_DSN")
	if dsn == "" {
		t.Skip("DAQBUF_MYSQL_DSN not set")
	}
	testRecordRecent(t, openTest(t, "mysql", dsn))
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", "x"); err == nil {
		t.Fatal("Open accepted an unsupported driver")
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN("daq", "p@ss", "10.0.0.7", 3306, "daq")
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if c.User != "daq" || c.Passwd != "p@ss" || c.Net != "tcp" || c.Addr != "10.0.0.7:3306" || c.DBName != "daq" {
		t.Errorf("parsed %q = %+v", dsn, c)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
}
