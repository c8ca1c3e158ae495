package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// OptionKind is the value type of a command line option
type OptionKind int

const (
	BoolOption OptionKind = iota
	IntOption
	StringOption
	StringListOption
	EnumOption
)

func (k OptionKind) String() string {
	switch k {
	case BoolOption:
		return "bool"
	case IntOption:
		return "int"
	case StringOption:
		return "string"
	case StringListOption:
		return "strings"
	case EnumOption:
		return "enum"
	default:
		return fmt.Sprintf("OptionKind(%d)", int(k))
	}
}

// ErrDuplicateOption is returned when an option name or key is registered twice
var ErrDuplicateOption = errors.New("duplicate option")

// Option describes one configurable setting, reachable as a flag and as a config key
type Option struct {
	// Flag name, e.g. "object-dir"
	Name string

	// Config key, e.g. "object_dir"
	Key string

	// Optional one letter shorthand
	Short string

	Kind  OptionKind
	Usage string

	// Default value, must match Kind (bool, int, string or []string)
	Default any

	// Allowed values of an EnumOption
	Values []string
}

// adders register the pflag for each option kind
var adders = map[OptionKind]func(fs *pflag.FlagSet, o Option){
	BoolOption: func(fs *pflag.FlagSet, o Option) {
		fs.BoolP(o.Name, o.Short, o.Default.(bool), o.Usage)
	},
	IntOption: func(fs *pflag.FlagSet, o Option) {
		fs.IntP(o.Name, o.Short, o.Default.(int), o.Usage)
	},
	StringOption: func(fs *pflag.FlagSet, o Option) {
		fs.StringP(o.Name, o.Short, o.Default.(string), o.Usage)
	},
	StringListOption: func(fs *pflag.FlagSet, o Option) {
		fs.StringSliceP(o.Name, o.Short, o.Default.([]string), o.Usage)
	},
	EnumOption: func(fs *pflag.FlagSet, o Option) {
		v := &enumValue{value: o.Default.(string), allowed: o.Values}
		fs.VarP(v, o.Name, o.Short, fmt.Sprintf("%s (%s)", o.Usage, strings.Join(o.Values, "|")))
	},
}

// OptionRegistry is the static table of options understood by ncc
type OptionRegistry struct {
	byName map[string]Option
	keys   map[string]bool
}

// NewOptionRegistry creates an empty registry
func NewOptionRegistry() *OptionRegistry {
	return &OptionRegistry{
		byName: make(map[string]Option),
		keys:   make(map[string]bool),
	}
}

// Register adds an option, rejecting duplicates and defaults that do not fit the kind
func (r *OptionRegistry) Register(o Option) error {
	if o.Name == "" || o.Key == "" {
		return errors.New("option name and key are required")
	}

	if _, ok := r.byName[o.Name]; ok {
		return fmt.Errorf("%w: flag %q", ErrDuplicateOption, o.Name)
	}

	if r.keys[o.Key] {
		return fmt.Errorf("%w: key %q", ErrDuplicateOption, o.Key)
	}

	if err := checkDefault(o); err != nil {
		return err
	}

	r.byName[o.Name] = o
	r.keys[o.Key] = true

	return nil
}

func checkDefault(o Option) error {
	var ok bool

	switch o.Kind {
	case BoolOption:
		_, ok = o.Default.(bool)
	case IntOption:
		_, ok = o.Default.(int)
	case StringOption:
		_, ok = o.Default.(string)
	case StringListOption:
		_, ok = o.Default.([]string)
	case EnumOption:
		var def string
		def, ok = o.Default.(string)
		if ok && !slices.Contains(o.Values, def) {
			return fmt.Errorf("option %q: default %q is not one of %v", o.Name, def, o.Values)
		}
	default:
		return fmt.Errorf("option %q: unsupported kind %v", o.Name, o.Kind)
	}

	if !ok {
		return fmt.Errorf("option %q: default %v is not a %v", o.Name, o.Default, o.Kind)
	}

	return nil
}

// Lookup returns the option registered under the flag name
func (r *OptionRegistry) Lookup(name string) (Option, bool) {
	o, ok := r.byName[name]
	return o, ok
}

// Options returns every option sorted by flag name
func (r *OptionRegistry) Options() []Option {
	out := make([]Option, 0, len(r.byName))
	for _, o := range r.byName {
		out = append(out, o)
	}

	slices.SortFunc(out, func(a, b Option) int {
		return strings.Compare(a.Name, b.Name)
	})

	return out
}

// AddFlags registers one flag per option on fs
func (r *OptionRegistry) AddFlags(fs *pflag.FlagSet) {
	for _, o := range r.Options() {
		adders[o.Kind](fs, o)
	}
}

// SetDefaults installs every option default into viper
func (r *OptionRegistry) SetDefaults() {
	for _, o := range r.Options() {
		viper.SetDefault(o.Key, o.Default)
	}
}

// BindFlags binds the flags of fs to their viper keys
// Only flags set on the command line override config files
func (r *OptionRegistry) BindFlags(fs *pflag.FlagSet) error {
	for _, o := range r.Options() {
		f := fs.Lookup(o.Name)
		if f == nil {
			continue
		}

		if err := viper.BindPFlag(o.Key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Name, err)
		}
	}

	return nil
}

// enumValue is a string flag restricted to a fixed set of values
type enumValue struct {
	value   string
	allowed []string
}

func (e *enumValue) String() string {
	return e.value
}

func (e *enumValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(e.allowed, s) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
	}

	e.value = s
	return nil
}

func (e *enumValue) Type() string {
	return "string"
}
