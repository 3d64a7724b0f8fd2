// Package monitor samples the block states of a databuf ring and publishes
// the latest sample over HTTP.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/greedchase/daqbuf/databuf"
	"github.com/greedchase/daqbuf/statdb"
	"github.com/greedchase/daqbuf/stlog"
	"github.com/greedchase/daqbuf/stutil"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// Source is the read-only view the sampler needs. *databuf.Databuf
// satisfies it.
type Source interface {
	Key() int
	NBlock() int
	Snapshot() ([]databuf.State, error)
}

type Recorder interface {
	Record(ctx context.Context, s statdb.Sample) error
}

type Sampler struct {
	src      Source
	rec      Recorder
	interval time.Duration
	log      *stlog.Logger

	mu     sync.RWMutex
	latest statdb.Sample
	valid  bool
}

// NewSampler samples src every interval. rec and log may be nil.
func NewSampler(src Source, interval time.Duration, rec Recorder, log *stlog.Logger) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{src: src, rec: rec, interval: interval, log: log}
}

// Sample takes one snapshot and stores it as the latest sample.
func (s *Sampler) Sample(ctx context.Context) (statdb.Sample, error) {
	states, err := s.src.Snapshot()
	if err != nil {
		return statdb.Sample{}, err
	}
	var sb strings.Builder
	filled := 0
	for _, st := range states {
		if st == databuf.StateFilled {
			filled++
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	smp := statdb.Sample{
		Time:   time.Now(),
		Key:    s.src.Key(),
		NBlock: s.src.NBlock(),
		Filled: filled,
		Blocks: sb.String(),
	}

	s.mu.Lock()
	s.latest = smp
	s.valid = true
	s.mu.Unlock()

	if s.rec != nil {
		if err := s.rec.Record(ctx, smp); err != nil {
			return smp, err
		}
	}
	return smp, nil
}

// Latest returns the last sample and whether one has been taken.
func (s *Sampler) Latest() (statdb.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.valid
}

// Run samples until ctx is done. Sample errors are logged, not fatal.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sample(ctx); err != nil && s.log != nil {
			s.log.Error("monitor sample key 0x%08x: %v", s.src.Key(), err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type statusReply struct {
	Time   string  `json:"time"`
	Age    float64 `json:"age_seconds"`
	Key    string  `json:"key"`
	NBlock int     `json:"n_block"`
	Filled int     `json:"filled"`
	Blocks string  `json:"blocks"`
}

// Handler serves GET /status and GET /healthz.
func Handler(s *Sampler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		smp, ok := s.Latest()
		if !ok {
			http.Error(w, "no sample yet", http.StatusServiceUnavailable)
			return
		}
		b, err := sonnet.Marshal(statusReply{
			Time:   stutil.TimeFormatMilli(smp.Time),
			Age:    time.Since(smp.Time).Seconds(),
			Key:    fmt.Sprintf("0x%08x", smp.Key),
			NBlock: smp.NBlock,
			Filled: smp.Filled,
			Blocks: smp.Blocks,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve runs the sampler and an HTTP server on addr until ctx is done.
// maxConns caps concurrent connections when positive.
func Serve(ctx context.Context, addr string, maxConns int, s *Sampler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln, maxConns, s)
}

func ServeListener(ctx context.Context, ln net.Listener, maxConns int, s *Sampler) error {
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	srv := &http.Server{Handler: Handler(s), ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
