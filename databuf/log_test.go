//go:build linux && (amd64 || arm64)

package databuf

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/greedchase/daqbuf/stlog"
	"github.com/greedchase/daqbuf/stsem"
)

// captureLog routes the package logger into a buffer until the test ends.
// The returned function closes the logger and hands back what it wrote.
func captureLog(t *testing.T) func() string {
	var buf bytes.Buffer
	log := stlog.NewWriterLogger(&buf, stlog.DEBUG)
	old := sysLog
	SetLogger(log)
	t.Cleanup(func() {
		log.Close()
		SetLogger(old)
	})
	return func() string {
		log.Close()
		return buf.String()
	}
}

func TestExpectedOutcomesNotLogged(t *testing.T) {
	d := newTestBuf(t, 20, 2, 128)
	d.SetWaitTimeout(10 * time.Millisecond)
	missing := testKey(t, 21)
	logged := captureLog(t)

	if _, err := AttachKey(missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attach missing key: %v", err)
	}
	if err := noEINTR(func() error { return d.WaitFilled(0) }); !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitFilled on FREE block: %v", err)
	}
	if err := d.SetFilled(1); err != nil {
		t.Fatal(err)
	}
	if err := noEINTR(func() error { return d.WaitFree(1) }); !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitFree on FILLED block: %v", err)
	}
	if out := logged(); out != "" {
		t.Fatalf("not-found and timeout outcomes were logged: %q", out)
	}
}

func TestKernelFailureLogged(t *testing.T) {
	d := newTestBuf(t, 22, 1, 128)
	if err := DestroyKey(d.Key()); err != nil {
		t.Fatalf("DestroyKey: %v", err)
	}
	logged := captureLog(t)

	err := noEINTR(func() error { return d.WaitFree(0) })
	var se *SysError
	if !errors.As(err, &se) {
		t.Fatalf("WaitFree on removed semaphores = %v, want *SysError", err)
	}
	if se.Op != "databuf.WaitFree" || IsInterrupted(err) || errors.Is(err, ErrTimeout) {
		t.Errorf("SysError = %+v", se)
	}

	var errLine string
	for _, line := range strings.Split(logged(), "\n") {
		if strings.Contains(line, "|EROR|") {
			errLine = line
		}
	}
	if !strings.Contains(errLine, "databuf.WaitFree: SYS_SEMTIMEDOP") {
		t.Fatalf("failure not logged with its operation: %q", errLine)
	}
	if !strings.Contains(errLine, "|sync.go:databuf.(*Databuf).WaitFree:") {
		t.Errorf("logged source is not the failing operation: %q", errLine)
	}
}

func TestInterruptedWaitNotLogged(t *testing.T) {
	d := newTestBuf(t, 23, 1, 128)
	old := semOp
	semOp = func(*stsem.Set, []stsem.Sembuf, time.Duration) error {
		return os.NewSyscallError("SYS_SEMTIMEDOP", syscall.EINTR)
	}
	t.Cleanup(func() { semOp = old })
	logged := captureLog(t)

	for op, wait := range map[string]func(int) error{
		"databuf.WaitFree":   d.WaitFree,
		"databuf.WaitFilled": d.WaitFilled,
	} {
		err := wait(0)
		var se *SysError
		if !errors.As(err, &se) || se.Op != op {
			t.Errorf("%s interrupted = %v, want *SysError", op, err)
			continue
		}
		if !IsInterrupted(err) || errors.Is(err, ErrTimeout) {
			t.Errorf("%s: IsInterrupted = %v, timeout = %v", op, IsInterrupted(err), errors.Is(err, ErrTimeout))
		}
	}
	if out := logged(); out != "" {
		t.Fatalf("interrupted waits were logged: %q", out)
	}
}
