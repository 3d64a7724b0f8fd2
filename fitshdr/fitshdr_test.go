package fitshdr

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func card(s string) string {
	return s + strings.Repeat(" ", CardSize-len(s))
}

func TestSearch(t *testing.T) {
	buf := []byte(card("MCNT    =                    7") + card("NPKT    =                   12") + card("END") + card("AFTER   = 1"))

	cases := []struct {
		key  string
		want int
	}{
		{"MCNT", 0},
		{"NPKT", CardSize},
		{"END", 2 * CardSize},
		{"AFTER", -1},
		{"MCN", -1},
		{"MISSING", -1},
		{"", -1},
		{"TOOLONGKEY", -1},
	}
	for _, c := range cases {
		if got := Search(buf, c.key); got != c.want {
			t.Errorf("Search(%q) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestSearchIgnoresPartialCard(t *testing.T) {
	buf := []byte(card("MCNT    = 1") + "END")
	if got := Search(buf, "END"); got != -1 {
		t.Fatalf("Search found END in a partial card at %d", got)
	}
}

func TestClearWithEnd(t *testing.T) {
	buf := []byte(card("MCNT    = 1") + card("NPKT    = 2") + card("END") + card("JUNK"))
	Clear(buf)

	if !IsEmpty(buf) {
		t.Fatalf("first card = %q, want END card", buf[:CardSize])
	}
	if !bytes.Equal(buf[CardSize:3*CardSize], bytes.Repeat([]byte{' '}, 2*CardSize)) {
		t.Error("cards up to the old END were not blanked")
	}
	// Past the old terminator nothing is touched.
	if string(buf[3*CardSize:3*CardSize+4]) != "JUNK" {
		t.Error("card after END was modified")
	}
}

func TestClearWithoutEnd(t *testing.T) {
	buf := bytes.Repeat([]byte{'x'}, 3*CardSize)
	Clear(buf)
	if !IsEmpty(buf) {
		t.Fatal("missing END card after Clear")
	}
	if !bytes.Equal(buf[CardSize:], bytes.Repeat([]byte{' '}, 2*CardSize)) {
		t.Error("region without END was not fully blanked")
	}
}

func TestClearZeroed(t *testing.T) {
	buf := make([]byte, 2*CardSize)
	Clear(buf)
	if !IsEmpty(buf) || buf[CardSize] != ' ' {
		t.Fatal("zeroed header was not reset to the empty form")
	}
}

func TestPutGet(t *testing.T) {
	buf := bytes.Repeat([]byte{' '}, 4*CardSize)
	Clear(buf)

	if err := PutInt(buf, "BLKSEQ", 42); err != nil {
		t.Fatalf("PutInt: %v", err)
	}
	if err := PutString(buf, "STATUS", "it's ok"); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	if Search(buf, "END") != 2*CardSize {
		t.Fatalf("END at %d, want %d", Search(buf, "END"), 2*CardSize)
	}
	if v, ok := GetInt(buf, "BLKSEQ"); !ok || v != 42 {
		t.Errorf("GetInt = %d, %v", v, ok)
	}
	if v, ok := Get(buf, "STATUS"); !ok || v != "it's ok" {
		t.Errorf("Get STATUS = %q, %v", v, ok)
	}

	// replacing keeps the card in place
	if err := PutInt(buf, "BLKSEQ", -3); err != nil {
		t.Fatal(err)
	}
	if Search(buf, "BLKSEQ") != 0 || Search(buf, "END") != 2*CardSize {
		t.Error("replace moved cards")
	}
	if v, _ := GetInt(buf, "BLKSEQ"); v != -3 {
		t.Errorf("BLKSEQ = %d after replace", v)
	}

	if err := PutInt(buf, "THIRD", 3); err != nil {
		t.Fatal(err)
	}
	if err := PutInt(buf, "FOURTH", 4); !errors.Is(err, ErrFull) {
		t.Errorf("PutInt into full header: %v", err)
	}
	if _, ok := Get(buf, "FOURTH"); ok {
		t.Error("FOURTH present after failed put")
	}
}

func TestPutErrors(t *testing.T) {
	buf := bytes.Repeat([]byte{' '}, 2*CardSize)
	if err := PutInt(buf, "A", 1); !errors.Is(err, ErrNoEnd) {
		t.Errorf("no END: %v", err)
	}
	Clear(buf)
	for _, k := range []string{"", "END", "TOOLONGKEY", "A B"} {
		if err := PutInt(buf, k, 1); !errors.Is(err, ErrKeyword) {
			t.Errorf("keyword %q: %v", k, err)
		}
	}
	if err := PutString(buf, "LONG", strings.Repeat("x", CardSize)); !errors.Is(err, ErrValue) {
		t.Errorf("long value: %v", err)
	}
}

func TestGetComment(t *testing.T) {
	buf := []byte(card("NPKT    =                   12 / packets") + card("END"))
	if v, ok := GetInt(buf, "NPKT"); !ok || v != 12 {
		t.Errorf("GetInt = %d, %v", v, ok)
	}
	if _, ok := GetInt(buf, "MISSING"); ok {
		t.Error("GetInt found MISSING")
	}
}
