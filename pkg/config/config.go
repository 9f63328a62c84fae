package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a node in the reflected view of a configuration struct. Leaves
// remember where their value came from. Precedence is env, then file, then
// the default tag, then the zero value.
type Config struct {
	Ptr      reflect.Value
	Env      any
	File     any
	Default  any
	Desc     string
	name     string
	tag      reflect.StructTag
	children map[string]*Config
	order    []*Config
	errs     []error
}

var durationType = reflect.TypeOf(time.Duration(0))

// Get returns the child named key, creating it when missing.
func (config *Config) Get(key string) *Config {
	key = strings.ToLower(key)
	if child, ok := config.children[key]; ok {
		return child
	}
	if config.children == nil {
		config.children = make(map[string]*Config)
	}
	child := &Config{name: key}
	config.children[key] = child
	config.order = append(config.order, child)
	return child
}

func (config *Config) Has(key string) bool {
	_, ok := config.children[strings.ToLower(key)]
	return ok
}

func (config *Config) GetValue() any {
	return config.Ptr.Interface()
}

func (config *Config) isSection() bool {
	return config.Ptr.Kind() == reflect.Struct
}

// Parse walks s, applying default tags and environment variables. The env
// name of a field is the path joined with "_" with field names upper-cased.
func (config *Config) Parse(s any, path ...string) {
	v, ok := s.(reflect.Value)
	if !ok {
		v = reflect.ValueOf(s)
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	config.Ptr = v
	if len(path) > 0 && !config.isSection() {
		config.applyDefault()
		config.applyEnv(strings.Join(path, "_"))
	}
	config.Default = v.Interface()
	if !config.isSection() {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, _, _ := strings.Cut(field.Tag.Get("yaml"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		child := config.Get(name)
		child.tag = field.Tag
		child.Desc = field.Tag.Get("desc")
		child.Parse(v.Field(i), append(path, strings.ToUpper(field.Name))...)
		config.errs = append(config.errs, child.errs...)
		child.errs = nil
	}
}

func (config *Config) applyDefault() {
	tag, ok := config.tag.Lookup("default")
	if !ok {
		return
	}
	if value, err := config.decode(tag); err != nil {
		config.errs = append(config.errs, err)
	} else {
		config.Ptr.Set(value)
	}
}

func (config *Config) applyEnv(name string) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return
	}
	if value, err := config.decode(raw); err != nil {
		config.errs = append(config.errs, fmt.Errorf("%s: %w", name, err))
	} else {
		config.Ptr.Set(value)
		config.Env = value.Interface()
	}
}

// ParseUserFile applies a decoded YAML document. Leaves already set from the
// environment keep their environment value.
func (config *Config) ParseUserFile(conf map[string]any) error {
	config.File = conf
	for key, raw := range conf {
		if !config.Has(key) {
			continue
		}
		child := config.Get(key)
		if child.isSection() {
			if raw == nil {
				continue
			}
			section, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("config %s: expected a mapping, got %T", key, raw)
			}
			if err := child.ParseUserFile(section); err != nil {
				return err
			}
			continue
		}
		value, err := child.decode(raw)
		if err != nil {
			return err
		}
		child.File = value.Interface()
		if child.Env == nil {
			child.Ptr.Set(value)
		}
	}
	return nil
}

// Err reports the first default tag or env value that could not be applied.
func (config *Config) Err() error {
	if len(config.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(config.errs...))
}

// GetMap returns the effective values keyed by lower-case field name.
func (config *Config) GetMap() map[string]any {
	m := make(map[string]any, len(config.order))
	for _, child := range config.order {
		if child.isSection() {
			if sub := child.GetMap(); sub != nil {
				m[child.name] = sub
			}
		} else {
			m[child.name] = child.GetValue()
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// decode converts raw into a value of the leaf's type. Strings bound for
// string fields are taken verbatim. Durations must carry a unit.
func (config *Config) decode(raw any) (reflect.Value, error) {
	ft := config.Ptr.Type()
	value := reflect.New(ft)
	if s, ok := raw.(string); ok && ft.Kind() == reflect.String {
		value.Elem().SetString(s)
		return value.Elem(), nil
	}
	if ft == durationType {
		if d, ok := raw.(time.Duration); ok {
			value.Elem().SetInt(int64(d))
			return value.Elem(), nil
		}
		text := strings.TrimSpace(fmt.Sprint(raw))
		d, err := time.ParseDuration(text)
		if err != nil || strings.IndexFunc(text, func(r rune) bool { return r >= 'a' && r <= 'z' || r == 'µ' }) < 0 {
			if text != "0" {
				return value.Elem(), fmt.Errorf("invalid duration %q for %s, add a unit (ms, s, m, h)", text, config.name)
			}
		}
		value.Elem().SetInt(int64(d))
		return value.Elem(), nil
	}
	var doc []byte
	if s, ok := raw.(string); ok {
		doc = []byte(s)
	} else {
		var err error
		if doc, err = yaml.Marshal(raw); err != nil {
			return value.Elem(), fmt.Errorf("invalid value %v for %s: %w", raw, config.name, err)
		}
	}
	if err := yaml.Unmarshal(doc, value.Interface()); err != nil {
		return value.Elem(), fmt.Errorf("invalid value %v for %s: %w", raw, config.name, err)
	}
	return value.Elem(), nil
}

// Parse fills target from defaults, the environment under prefix and the
// YAML document at path. An empty path skips the file.
func Parse(target any, prefix string, path string) (*Config, error) {
	var c Config
	c.Parse(target, prefix)
	if err := c.Err(); err != nil {
		return &c, err
	}
	if path == "" {
		return &c, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return &c, err
	}
	var doc map[string]any
	if err = yaml.Unmarshal(content, &doc); err != nil {
		return &c, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, c.ParseUserFile(doc)
}
