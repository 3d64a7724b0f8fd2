// pipeline
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/greedchase/daqbuf/databuf"
	"github.com/greedchase/daqbuf/fitshdr"
	"github.com/greedchase/daqbuf/stmmap"
	"github.com/greedchase/daqbuf/stutil"
	"golang.org/x/crypto/sha3"
)

// retryable waits are retried until ctx is done.
func retryable(err error) bool {
	return errors.Is(err, databuf.ErrTimeout) || databuf.IsInterrupted(err)
}

func fillPayload(data []byte, seq int64) {
	for i := range data {
		data[i] = byte(seq + int64(i))
	}
}

func digest(b []byte) string {
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// produce writes count blocks (forever when count <= 0) around the ring,
// stamping each header with its sequence number and payload digest.
// It returns the number of blocks written.
func produce(ctx context.Context, db *databuf.Databuf, count int64) (int64, error) {
	var seq int64
	idx := 0
	for count <= 0 || seq < count {
		for {
			err := db.WaitFree(idx)
			if err == nil {
				break
			}
			if !retryable(err) {
				return seq, err
			}
			if ctx.Err() != nil {
				return seq, nil
			}
		}
		if ctx.Err() != nil {
			return seq, nil
		}

		data := db.Data(idx)
		fillPayload(data, seq)
		hdr := db.Header(idx)
		fitshdr.Clear(hdr)
		for _, e := range []error{
			fitshdr.PutInt(hdr, "BLKSEQ", seq),
			fitshdr.PutInt(hdr, "BLKIDX", int64(idx)),
			fitshdr.PutString(hdr, "DATE", time.Now().UTC().Format("2006-01-02T15:04:05.000")),
			fitshdr.PutString(hdr, "PAYSHA3", digest(data)),
		} {
			if e != nil {
				return seq, fmt.Errorf("block %d header: %w", idx, e)
			}
		}
		if err := db.SetFilled(idx); err != nil {
			return seq, err
		}
		LOG.Debug("produced block %d seq %d", idx, seq)

		seq++
		idx = (idx + 1) % db.NBlock()
	}
	return seq, nil
}

type consumeStats struct {
	Blocks   int64
	Mismatch int64
	LastSeq  int64
}

// consume reads count blocks (forever when count <= 0): wait for FILLED,
// check the payload digest against the header, hand the block back.
func consume(ctx context.Context, db *databuf.Databuf, count int64) (consumeStats, error) {
	st := consumeStats{LastSeq: -1}
	idx := 0
	tc := stutil.NewTimeCost()
	for count <= 0 || st.Blocks < count {
		LOG.Debug("waiting block %d", idx)
		for {
			err := db.WaitFilled(idx)
			if err == nil {
				break
			}
			if !retryable(err) {
				return st, err
			}
			if ctx.Err() != nil {
				return st, nil
			}
			LOG.Debug("blocked on block %d", idx)
		}
		tc.Reset()

		hdr := db.Header(idx)
		sum := digest(db.Data(idx))
		if want, ok := fitshdr.Get(hdr, "PAYSHA3"); ok && want != sum {
			st.Mismatch++
			LOG.Error("block %d payload digest %s, header says %s", idx, sum, want)
		}
		if seq, ok := fitshdr.GetInt(hdr, "BLKSEQ"); ok {
			if st.LastSeq >= 0 && seq != st.LastSeq+1 {
				LOG.Warn("block %d seq %d follows %d", idx, seq, st.LastSeq)
			}
			st.LastSeq = seq
		}
		if err := db.SetFree(idx); err != nil {
			return st, err
		}
		LOG.Debug("processed block %d seq %d in %dms", idx, st.LastSeq, tc.Escape())

		st.Blocks++
		idx = (idx + 1) % db.NBlock()
	}
	return st, nil
}

// dump copies header and payload of block i into file out and returns the
// digest of the copied bytes.
func dump(db *databuf.Databuf, i int, out string) (string, error) {
	if i < 0 || i >= db.NBlock() {
		return "", fmt.Errorf("%w: %d", databuf.ErrBlockIndex, i)
	}
	hdr, data := db.Header(i), db.Data(i)
	size := len(hdr) + len(data)

	f, e := stmmap.CreateFile(out, int64(size))
	if e != nil {
		return "", e
	}
	defer f.Close()
	m, e := stmmap.NewMmap(f, 0, size)
	if e != nil {
		return "", e
	}
	copy(m.Data(), hdr)
	copy(m.Data()[len(hdr):], data)
	sum := digest(m.Data())
	if e = m.Flush(); e != nil {
		m.Unmap()
		return "", e
	}
	return sum, m.Unmap()
}
