// ini.go
package stconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is a parsed INI file. Keys before the first [section] are global.
type Config struct {
	values      map[string]string
	sections    map[string]map[string]string
	sectionKeys []string
	path        string
}

func LoadINI(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, e := ParseINI(f)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", path, e)
	}
	cfg.path = path
	return cfg, nil
}

func ParseINI(input io.Reader) (*Config, error) {
	cfg := &Config{
		values:   make(map[string]string),
		sections: make(map[string]map[string]string),
	}
	e := cfg.read(input)
	if e != nil {
		return nil, e
	}
	return cfg, nil
}

func (config *Config) Path() string {
	return config.path
}

func (config *Config) read(input io.Reader) error {
	ln := 0
	current := config.values
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		ln++
		curLine := scanner.Text()
		if ln == 1 { //UTF-8(BOM) file begin with EF,BB,BF
			curLine = strings.TrimPrefix(curLine, "\ufeff")
		}
		curLine = strings.TrimSpace(curLine)
		if curLine == "" || curLine[0] == '#' || curLine[0] == ';' {
			continue
		}

		if strings.HasPrefix(curLine, "[") {
			if !strings.HasSuffix(curLine, "]") {
				return fmt.Errorf("begin with '[' but not end with ']';line[%d]", ln)
			}
			name := strings.TrimSpace(curLine[1 : len(curLine)-1])
			sec, ok := config.sections[name]
			if !ok {
				sec = make(map[string]string)
				config.sections[name] = sec
				config.sectionKeys = append(config.sectionKeys, name)
			}
			current = sec
			continue
		}

		index := strings.Index(curLine, "=")
		if index <= 0 {
			return fmt.Errorf("requires an equals between the key and value;line[%d]", ln)
		}
		key := strings.TrimSpace(curLine[0:index])
		current[key] = strings.Trim(strings.TrimSpace(curLine[index+1:]), "\"'")
	}
	return scanner.Err()
}

func (config *Config) String(key string, def string) string {
	return str(config.values, key, def)
}
func (config *Config) Boolean(key string, def bool) bool {
	return boolean(config.values, key, def)
}
func (config *Config) Integer(key string, def int64) int64 {
	return integer(config.values, key, def)
}
func (config *Config) Duration(key string, def time.Duration) time.Duration {
	return duration(config.values, key, def)
}

func (config *Config) StringSection(sec string, key string, def string) string {
	return str(config.sections[sec], key, def)
}
func (config *Config) BooleanSection(sec string, key string, def bool) bool {
	return boolean(config.sections[sec], key, def)
}
func (config *Config) IntegerSection(sec string, key string, def int64) int64 {
	return integer(config.sections[sec], key, def)
}
func (config *Config) DurationSection(sec string, key string, def time.Duration) time.Duration {
	return duration(config.sections[sec], key, def)
}

// Section returns the key/values of sec, nil when absent.
func (config *Config) Section(sec string) map[string]string {
	return config.sections[sec]
}

// Sections lists section names in file order.
func (config *Config) Sections() []string {
	return config.sectionKeys
}

func str(kv map[string]string, key string, def string) string {
	v, ok := kv[key]
	if !ok {
		return def
	}
	return v
}
func boolean(kv map[string]string, key string, def bool) bool {
	v, ok := kv[key]
	if !ok {
		return def
	}
	b, e := strconv.ParseBool(v)
	if e != nil {
		return def
	}
	return b
}

// integer accepts 0x and 0 prefixes, so shm keys can be written in hex.
func integer(kv map[string]string, key string, def int64) int64 {
	v, ok := kv[key]
	if !ok {
		return def
	}
	i, e := strconv.ParseInt(v, 0, 64)
	if e != nil {
		return def
	}
	return i
}

// duration accepts Go durations ("250ms") or a bare number of milliseconds.
func duration(kv map[string]string, key string, def time.Duration) time.Duration {
	v, ok := kv[key]
	if !ok {
		return def
	}
	if d, e := time.ParseDuration(v); e == nil {
		return d
	}
	if ms, e := strconv.ParseInt(v, 10, 64); e == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
