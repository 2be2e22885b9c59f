// Package engineopt holds the tunable-option data model the engine core
// exposes to its external driver. The driver owns the UCI text protocol;
// this package only defines what an option is, validates assignments, and
// keeps the previous value when an assignment is out of range.
package engineopt

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind is an option's value type.
type Kind uint8

const (
	Spin Kind = iota // bounded integer
	Check            // boolean
	Text             // free-form string
)

// Option is one tunable engine option.
type Option struct {
	Name    string
	Kind    Kind
	Min     int
	Max     int
	Default string

	value string

	// OnChange, when set, is invoked after a successful assignment.
	OnChange func(o *Option)
}

// Value returns the current value as a string.
func (o *Option) Value() string {
	if o.value == "" {
		return o.Default
	}
	return o.value
}

// Int returns the current value as an integer (Spin options).
func (o *Option) Int() int {
	v, _ := strconv.Atoi(o.Value())
	return v
}

// Bool returns the current value as a boolean (Check options).
func (o *Option) Bool() bool {
	return strings.EqualFold(o.Value(), "true")
}

// Set validates and assigns a new value. An out-of-range or malformed
// assignment returns an error and keeps the previous value.
func (o *Option) Set(raw string) error {
	switch o.Kind {
	case Spin:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(err, "option %s", o.Name)
		}
		if v < o.Min || v > o.Max {
			return errors.Errorf("option %s: value %d out of range [%d, %d]", o.Name, v, o.Min, o.Max)
		}
	case Check:
		if !strings.EqualFold(raw, "true") && !strings.EqualFold(raw, "false") {
			return errors.Errorf("option %s: %q is not a boolean", o.Name, raw)
		}
	}

	o.value = raw
	if o.OnChange != nil {
		o.OnChange(o)
	}
	return nil
}

// Registry is a named collection of options. Lookup is case-insensitive,
// matching how drivers echo option names back.
type Registry struct {
	options []*Option
}

// NewRegistry creates a registry holding the given options.
func NewRegistry(opts ...*Option) *Registry {
	return &Registry{options: opts}
}

// Add registers an option.
func (r *Registry) Add(o *Option) {
	r.options = append(r.options, o)
}

// Find returns the option with the given name, or nil.
func (r *Registry) Find(name string) *Option {
	for _, o := range r.options {
		if strings.EqualFold(o.Name, name) {
			return o
		}
	}
	return nil
}

// Set assigns a value to a named option.
func (r *Registry) Set(name, value string) error {
	o := r.Find(name)
	if o == nil {
		return errors.Errorf("unknown option %q", name)
	}
	return o.Set(value)
}

// All returns the registered options in registration order.
func (r *Registry) All() []*Option {
	return r.options
}
