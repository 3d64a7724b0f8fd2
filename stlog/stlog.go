// a simple level logger
// records are formatted and written by one goroutine, so logging never blocks
// on disk; the terminal sink is stderr and the file sink is closed by default.
// use SetxxxLevel to open or close a sink, it prints records at or above its level.
package stlog

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	CRITICAL
	CLOSE
)

var (
	levelStrings = [...]string{"DEBG", "INFO", "WARN", "EROR", "CRIT", "CLOS"}
)

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelStrings) {
		return "UNKNOWN"
	}
	return levelStrings[int(l)]
}

// ParseLevel accepts the short names printed in records as well as the long ones.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "DEBG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARNING, nil
	case "ERROR", "EROR":
		return ERROR, nil
	case "CRITICAL", "CRIT":
		return CRITICAL, nil
	case "CLOSE", "OFF", "NONE":
		return CLOSE, nil
	}
	return CLOSE, fmt.Errorf("unknown log level %q", s)
}

type Record struct {
	Level   Level
	Created time.Time
	Source  string // file:func:line of the caller
	Message string
}

// Format renders rec as "2006-01-02 15:04:05.000|LEVL|source|message\n".
func Format(rec *Record) string {
	if rec == nil {
		return "<nil>"
	}
	var builder strings.Builder
	builder.WriteString(rec.Created.Format("2006-01-02 15:04:05.000"))
	builder.WriteString("|")
	builder.WriteString(rec.Level.String())
	builder.WriteString("|")
	builder.WriteString(rec.Source)
	builder.WriteString("|")
	builder.WriteString(rec.Message)
	builder.WriteString("\n")
	return builder.String()
}

type Logger struct {
	recv chan *Record
	done chan struct{}
	wait chan struct{}
	once sync.Once

	term      atomic.Int32
	file      atomic.Int32
	out       io.Writer
	fileMu    sync.Mutex
	fileWrite *fileWriter
}

func (log *Logger) intLogf(depth int, lvl Level, format string, args ...interface{}) {
	if lvl < Level(log.term.Load()) && lvl < Level(log.file.Load()) {
		return
	}

	pc, file, lineno, ok := runtime.Caller(depth)
	src := ""
	if ok {
		src = fmt.Sprintf("%s:%s:%d", path.Base(file), path.Base(runtime.FuncForPC(pc).Name()), lineno)
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	rec := &Record{
		Level:   lvl,
		Created: time.Now(),
		Source:  src,
		Message: msg,
	}

	select {
	case <-log.done:
	case log.recv <- rec:
	default:
		fmt.Fprint(os.Stderr, "log buffer is full\n")
	}
}

// print reports the frame depth levels above intLogf as the source.
func (log *Logger) print(depth int, lvl Level, arg0 interface{}, args ...interface{}) {
	switch first := arg0.(type) {
	case string:
		log.intLogf(depth, lvl, first, args...)
	default:
		log.intLogf(depth, lvl, fmt.Sprint(arg0)+strings.Repeat(" %v", len(args)), args...)
	}
}

func (log *Logger) Debug(arg0 interface{}, args ...interface{}) {
	log.print(3, DEBUG, arg0, args...)
}

func (log *Logger) Info(arg0 interface{}, args ...interface{}) {
	log.print(3, INFO, arg0, args...)
}

func (log *Logger) Warn(arg0 interface{}, args ...interface{}) {
	log.print(3, WARNING, arg0, args...)
}

func (log *Logger) Error(arg0 interface{}, args ...interface{}) {
	log.print(3, ERROR, arg0, args...)
}

// Output logs at lvl with the source taken calldepth frames above the
// caller, so helpers can report the line that called them.
func (log *Logger) Output(calldepth int, lvl Level, arg0 interface{}, args ...interface{}) {
	log.print(3+calldepth, lvl, arg0, args...)
}

// Close flushes pending records and stops the writer goroutine.
// Records logged after Close are dropped.
func (log *Logger) Close() {
	log.once.Do(func() {
		close(log.done)
		<-log.wait
		log.fileMu.Lock()
		if log.fileWrite != nil {
			log.fileWrite.close()
		}
		log.fileMu.Unlock()
	})
}

func (log *Logger) SetLevel(lvl Level) {
	log.term.Store(int32(lvl))
	log.file.Store(int32(lvl))
}

func (log *Logger) SetTermLevel(lvl Level) {
	log.term.Store(int32(lvl))
}

// SetFileLevel opens the file sink at fname.
// param: maxsize int (rotate above this many bytes, 0 never), daily int (rotate daily when >0),
// maxbackup int (number of fname.001, fname.002... kept)
func (log *Logger) SetFileLevel(lvl Level, fname string, param ...int) {
	log.fileMu.Lock()
	defer log.fileMu.Unlock()
	log.file.Store(int32(lvl))
	if log.fileWrite != nil {
		log.fileWrite.close()
		log.fileWrite = nil
	}
	if lvl == CLOSE {
		return
	}

	var maxsize, daily, maxbackup int
	if len(param) > 0 {
		maxsize = param[0]
	}
	if len(param) > 1 {
		daily = param[1]
	}
	if len(param) > 2 {
		maxbackup = param[2]
	}
	log.fileWrite = newFileWriter(fname, maxsize, daily, maxbackup)
}

func (log *Logger) flush(buff *strings.Builder) {
	msg := buff.String()
	if msg == "" {
		return
	}
	buff.Reset()
	log.fileMu.Lock()
	defer log.fileMu.Unlock()
	if log.fileWrite == nil {
		return
	}
	if err := log.fileWrite.write(msg); err != nil {
		fmt.Fprintf(os.Stderr, "log file write error: %s\n", err.Error())
	}
}

func (log *Logger) handle(rec *Record, buff *strings.Builder) {
	msg := Format(rec)
	if Level(log.term.Load()) <= rec.Level {
		fmt.Fprint(log.out, msg)
	}
	if Level(log.file.Load()) <= rec.Level {
		buff.WriteString(msg)
	}
}

// NewWriterLogger logs records at or above lvl to w; the file sink is closed.
func NewWriterLogger(w io.Writer, lvl Level) *Logger {
	log := &Logger{
		recv: make(chan *Record, 4096),
		done: make(chan struct{}),
		wait: make(chan struct{}),
		out:  w,
	}
	log.term.Store(int32(lvl))
	log.file.Store(int32(CLOSE))

	go func() {
		defer close(log.wait)

		var buff strings.Builder
		tk := time.NewTicker(time.Millisecond * 300)
		defer tk.Stop()
		count := 0
		for {
			select {
			case <-tk.C:
				count = 0
				log.flush(&buff)
			case rec := <-log.recv:
				log.handle(rec, &buff)
				count++
				if count >= 1024 {
					count = 0
					log.flush(&buff)
				}
			case <-log.done:
				for {
					select {
					case rec := <-log.recv:
						log.handle(rec, &buff)
						continue
					default:
					}
					break
				}
				log.flush(&buff)
				return
			}
		}
	}()

	return log
}

// NewLogger logs to stderr from DEBUG up.
func NewLogger() *Logger {
	return NewWriterLogger(os.Stderr, DEBUG)
}
