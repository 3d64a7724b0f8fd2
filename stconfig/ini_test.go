package stconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = "\ufeffname = daq\n" +
	"; comment\n" +
	"[databuf]\n" +
	"# another comment\n" +
	"key_base = 0x00C62C70\n" +
	"n_block = 4\n" +
	"lock = true\n" +
	"wait = 250ms\n" +
	"interval = 1500\n" +
	"[log]\n" +
	"file = \"daq.log\"\n"

func TestParseINI(t *testing.T) {
	c, err := ParseINI(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("ParseINI: %v", err)
	}
	if got := c.String("name", ""); got != "daq" {
		t.Errorf("name = %q", got)
	}
	if got := c.IntegerSection("databuf", "key_base", 0); got != 0x00C62C70 {
		t.Errorf("key_base = %#x", got)
	}
	if got := c.IntegerSection("databuf", "n_block", 0); got != 4 {
		t.Errorf("n_block = %d", got)
	}
	if !c.BooleanSection("databuf", "lock", false) {
		t.Error("lock = false")
	}
	if got := c.DurationSection("databuf", "wait", 0); got != 250*time.Millisecond {
		t.Errorf("wait = %v", got)
	}
	if got := c.DurationSection("databuf", "interval", 0); got != 1500*time.Millisecond {
		t.Errorf("interval = %v", got)
	}
	if got := c.StringSection("log", "file", ""); got != "daq.log" {
		t.Errorf("log file = %q", got)
	}
	if got := c.IntegerSection("missing", "x", 7); got != 7 {
		t.Errorf("default from missing section = %d", got)
	}
	if s := c.Sections(); len(s) != 2 || s[0] != "databuf" || s[1] != "log" {
		t.Errorf("sections = %v", s)
	}
}

func TestParseINIErrors(t *testing.T) {
	for _, in := range []string{"[broken\n", "novalue\n", "= x\n"} {
		if _, err := ParseINI(strings.NewReader(in)); err == nil {
			t.Errorf("ParseINI(%q) succeeded", in)
		}
	}
}

func TestLoadINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.ini")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadINI(path)
	if err != nil {
		t.Fatalf("LoadINI: %v", err)
	}
	if c.Path() != path {
		t.Errorf("Path = %q", c.Path())
	}
	if _, err := LoadINI(filepath.Join(t.TempDir(), "none.ini")); err == nil {
		t.Error("LoadINI of a missing file succeeded")
	}
}
