package stlog

import (
	"fmt"
	"io"
	"os"
	"time"
)

// fileWriter appends records to a file, rotating by size or by day.
type fileWriter struct {
	filename string
	basename string
	file     *os.File

	// rotate at size
	maxsize int64
	cursize int64

	// rotate daily, the day is appended to basename
	daily    bool
	openDate int

	// old files kept as .001, .002, ...
	maxbackup int
}

func newFileWriter(fname string, maxsize int, daily int, maxbackup int) *fileWriter {
	return &fileWriter{
		filename:  fname,
		basename:  fname,
		maxsize:   int64(maxsize),
		daily:     daily > 0,
		openDate:  time.Now().Day(),
		maxbackup: maxbackup,
	}
}

func (w *fileWriter) open() error {
	now := time.Now()
	w.openDate = now.Day()
	if w.daily {
		w.filename = w.basename + "." + now.Format("20060102")
	}

	f, err := os.OpenFile(w.filename, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
	if err != nil {
		return err
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return err
	}

	w.file = f
	w.cursize = size
	return nil
}

func (w *fileWriter) close() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

func (w *fileWriter) write(msg string) error {
	if w.file == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	day := w.daily && time.Now().Day() != w.openDate
	oversize := w.maxsize > 0 && w.cursize >= w.maxsize
	if day || oversize {
		if err := w.rotate(oversize); err != nil {
			return err
		}
	}

	n, err := io.WriteString(w.file, msg)
	w.cursize += int64(n)
	if err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *fileWriter) rotate(oversize bool) error {
	w.close()
	if oversize {
		if err := renameFiles(w.filename, w.maxbackup); err != nil {
			return err
		}
	}
	return w.open()
}

// renameFiles shifts name.001 .. name.(max-1) up by one and moves name to name.001.
func renameFiles(name string, maxFiles int) error {
	if maxFiles < 1 {
		return os.Truncate(name, 0)
	}
	for i := maxFiles; i > 1; i-- {
		toPath := name + fmt.Sprintf(".%03d", i)
		fromPath := name + fmt.Sprintf(".%03d", i-1)
		if err := os.Rename(fromPath, toPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(name, name+".001"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
