package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/oleiade/reflections.v1"
)

const mask = "********"

// Entry is one resolved key as reported by Describe.
type Entry struct {
	Key    string
	Value  string
	Secret bool
	// Header names the firmware header group, empty for collector-only keys.
	Header  string
	Numeric bool
}

// Describe lists every key in declaration order with secrets masked.
func (s Settings) Describe() ([]Entry, error) {
	return s.entries(true)
}

func (s Settings) entries(masked bool) ([]Entry, error) {
	var out []Entry
	for _, sec := range s.sections() {
		fields, err := reflections.Fields(sec.ptr)
		if err != nil {
			return nil, fmt.Errorf("list %s fields: %w", sec.name, err)
		}
		for _, field := range fields {
			key, err := reflections.GetFieldTag(sec.ptr, field, "env")
			if err != nil || key == "" {
				continue
			}
			value, err := reflections.GetField(sec.ptr, field)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", key, err)
			}
			secret, _ := reflections.GetFieldTag(sec.ptr, field, "secret")
			header, _ := reflections.GetFieldTag(sec.ptr, field, "header")

			e := Entry{
				Key:    key,
				Value:  fmt.Sprint(value),
				Secret: secret == "true",
				Header: header,
			}
			switch value.(type) {
			case int, float64:
				e.Numeric = true
			}
			if masked && e.Secret && e.Value != "" {
				e.Value = mask
			}
			out = append(out, e)
		}
	}
	return out, nil
}

var headerGroups = []struct{ tag, title string }{
	{"wifi", "WIFI"},
	{"mqtt", "MQTT"},
	{"topics", "TOPICS"},
	{"http", "HTTP COLLECTOR"},
}

// WriteHeader renders the shared firmware header from the resolved settings.
func (s Settings) WriteHeader(w io.Writer) error {
	entries, err := s.entries(false)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("/******************************\n")
	b.WriteString(" *  Shared WiFi / MQTT config *\n")
	b.WriteString(" ******************************/\n")
	b.WriteString("#pragma once\n")

	for _, group := range headerGroups {
		fmt.Fprintf(&b, "\n// ========== %s ==========\n", group.title)
		for _, e := range entries {
			if e.Header != group.tag {
				continue
			}
			value := e.Value
			if !e.Numeric {
				value = strconv.Quote(value)
			}
			fmt.Fprintf(&b, "#define %-18s %s\n", e.Key, value)
		}
	}

	_, err = io.WriteString(w, b.String())
	return err
}
