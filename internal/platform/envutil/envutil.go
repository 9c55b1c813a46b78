package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Source resolves a configuration key to its raw value ("" when unset).
type Source func(name string) string

// Env reads the process environment.
var Env Source = os.Getenv

func (s Source) String(name, def string) string {
	v := strings.TrimSpace(s(name))
	if v == "" {
		return def
	}
	return v
}

func (s Source) Int(name string, def int) int {
	v := strings.TrimSpace(s(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (s Source) Float(name string, def float64) float64 {
	v := strings.TrimSpace(s(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (s Source) Bool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Seconds reads an integer number of seconds.
func (s Source) Seconds(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(s(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return time.Duration(i) * time.Second
}

// List splits a comma separated value, dropping empty items.
func (s Source) List(name string) []string {
	var out []string
	for _, part := range strings.Split(s(name), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Overlay returns a Source that prefers s and falls back to values.
func (s Source) Overlay(values map[string]string) Source {
	return func(name string) string {
		if v := strings.TrimSpace(s(name)); v != "" {
			return v
		}
		return values[name]
	}
}

func String(name, def string) string { return Env.String(name, def) }
func Int(name string, def int) int { return Env.Int(name, def) }
func Float(name string, def float64) float64 { return Env.Float(name, def) }
func Bool(name string, def bool) bool { return Env.Bool(name, def) }
func Seconds(name string, def time.Duration) time.Duration { return Env.Seconds(name, def) }
