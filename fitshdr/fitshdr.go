// Package fitshdr handles the FITS-style card text that heads every block:
// a sequence of 80-byte cards terminated by an END card.
// Cards are "KEYWORD = value" with strings quoted, as written by Put.
package fitshdr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoEnd   = errors.New("fitshdr: no END card")
	ErrFull    = errors.New("fitshdr: header full")
	ErrKeyword = errors.New("fitshdr: bad keyword")
	ErrValue   = errors.New("fitshdr: value too long")
)

const (
	CardSize    = 80
	KeywordSize = 8
)

// EndCard is "END" padded with spaces to one card.
var EndCard = []byte("END" + strings.Repeat(" ", CardSize-3))

// Search returns the offset of the first whole card whose keyword is
// keyword, or -1. When keyword is not END the scan stops at the END card.
func Search(buf []byte, keyword string) int {
	if len(keyword) == 0 || len(keyword) > KeywordSize {
		return -1
	}
	for off := 0; off+CardSize <= len(buf); off += CardSize {
		card := buf[off : off+CardSize]
		if matchKeyword(card, keyword) {
			return off
		}
		if keyword != "END" && matchKeyword(card, "END") {
			return -1
		}
	}
	return -1
}

func matchKeyword(card []byte, keyword string) bool {
	key := card[:KeywordSize]
	if !bytes.HasPrefix(key, []byte(keyword)) {
		return false
	}
	for _, c := range key[len(keyword):] {
		if c != ' ' {
			return false
		}
	}
	return true
}

// Clear blanks every card up to and including END (the whole buffer when
// there is no END) and writes a fresh END card at the start.
func Clear(buf []byte) {
	n := len(buf)
	if end := Search(buf, "END"); end >= 0 {
		n = end + CardSize
	}
	blank(buf[:n])
	if len(buf) >= CardSize {
		copy(buf, EndCard)
	}
}

// IsEmpty reports whether buf holds only the END card.
func IsEmpty(buf []byte) bool {
	return len(buf) >= CardSize && bytes.Equal(buf[:CardSize], EndCard)
}

func blank(b []byte) {
	for i := range b {
		b[i] = ' '
	}
}

// Put sets keyword to the already formatted value, replacing an existing
// card or inserting a new one in place of END.
func Put(buf []byte, keyword, value string) error {
	if len(keyword) == 0 || len(keyword) > KeywordSize || keyword == "END" || strings.ContainsAny(keyword, " =") {
		return fmt.Errorf("%w: %q", ErrKeyword, keyword)
	}
	card := fmt.Sprintf("%-8s= %s", keyword, value)
	if len(card) > CardSize {
		return fmt.Errorf("%w: %s", ErrValue, keyword)
	}
	card += strings.Repeat(" ", CardSize-len(card))

	if off := Search(buf, keyword); off >= 0 {
		copy(buf[off:], card)
		return nil
	}
	end := Search(buf, "END")
	if end < 0 {
		return ErrNoEnd
	}
	if end+2*CardSize > len(buf) {
		return ErrFull
	}
	copy(buf[end+CardSize:], EndCard)
	copy(buf[end:], card)
	return nil
}

func PutString(buf []byte, keyword, value string) error {
	return Put(buf, keyword, fmt.Sprintf("'%-8s'", strings.ReplaceAll(value, "'", "''")))
}

func PutInt(buf []byte, keyword string, value int64) error {
	return Put(buf, keyword, fmt.Sprintf("%20d", value))
}

// Get returns the value of keyword with string quotes and comments removed.
func Get(buf []byte, keyword string) (string, bool) {
	off := Search(buf, keyword)
	if off < 0 {
		return "", false
	}
	card := string(buf[off : off+CardSize])
	if card[KeywordSize:KeywordSize+2] != "= " {
		return "", true
	}
	v := strings.TrimSpace(card[KeywordSize+2:])
	if strings.HasPrefix(v, "'") {
		var sb strings.Builder
		for i := 1; i < len(v); i++ {
			if v[i] == '\'' {
				if i+1 < len(v) && v[i+1] == '\'' {
					sb.WriteByte('\'')
					i++
					continue
				}
				break
			}
			sb.WriteByte(v[i])
		}
		return strings.TrimRight(sb.String(), " "), true
	}
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v, true
}

func GetInt(buf []byte, keyword string) (int64, bool) {
	v, ok := Get(buf, keyword)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}
