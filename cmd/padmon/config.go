package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups configuration subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Write a configuration template holding every default"`
}

// ConfigInit writes a configuration template.
type ConfigInit struct {
	Format string `help:"Output format" enum:"yaml,toml" default:"yaml"`
	Output string `help:"Destination file (defaults to padmon.<format> in the working directory)" type:"path"`
	Force  bool   `help:"Overwrite an existing file"`
}

// Run is called by kong when the config init command is executed.
func (c *ConfigInit) Run() error {
	data, err := renderTemplate(c.Format)
	if err != nil {
		return err
	}

	dest := c.Output
	if dest == "" {
		dest = "padmon." + c.Format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s exists; use --force to overwrite", dest)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// renderTemplate encodes the defaults of every configurable flag.
func renderTemplate(format string) ([]byte, error) {
	root := buildMap(reflect.TypeFor[RunCmd]())
	root["log"] = buildMap(reflect.TypeFor[LogOptions]())

	switch format {
	case "yaml":
		return yaml.Marshal(root)
	case "toml":
		return toml.Marshal(root)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// buildMap maps each flag of struct t to its default value. Keys are flag
// names in snake case, the spelling the configuration loaders resolve.
func buildMap(t reflect.Type) map[string]any {
	out := map[string]any{}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		if v := defaultValue(f.Type, f.Tag.Get("default")); v != nil {
			out[snakeCase(f.Name)] = v
		}
	}
	return out
}

func defaultValue(t reflect.Type, def string) any {
	if t == reflect.TypeFor[time.Duration]() {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 0, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 0, 64)
		return n
	default:
		return nil
	}
}

// snakeCase converts a Go field name to a snake-case key.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
