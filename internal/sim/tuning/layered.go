package tuning

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Provider is the read side shared by Tuning, Overrides and Layered.
type Provider interface {
	Bool(key string) (bool, bool)
	Number(key string) (float64, bool)
	Strings(key string) ([]string, bool)
}

// Overrides holds operator-set values keyed like the Tuning accessors.
// Values are stored in their textual form, the same way they are persisted.
type Overrides map[string]string

func (o Overrides) Bool(key string) (bool, bool) {
	raw, ok := o[key]
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func (o Overrides) Number(key string) (float64, bool) {
	raw, ok := o[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Strings splits comma-separated values; an empty value clears the list.
func (o Overrides) Strings(key string) ([]string, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	if strings.TrimSpace(raw) == "" {
		return []string{}, true
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// Set validates value against the base tuning before storing it: the key must
// already resolve there and the value must parse as the same type.
func (o Overrides) Set(base Provider, key, value string) error {
	if _, ok := base.Bool(key); ok {
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s: want bool: %w", key, err)
		}
		o[key] = value
		return nil
	}
	if _, ok := base.Number(key); ok {
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%s: want number: %w", key, err)
		}
		o[key] = value
		return nil
	}
	if _, ok := base.Strings(key); ok {
		o[key] = value
		return nil
	}
	return fmt.Errorf("unknown config key %q", key)
}

func (o Overrides) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Layered answers from Over first and falls back to Base.
type Layered struct {
	Over Provider
	Base Provider
}

func (l Layered) Bool(key string) (bool, bool) {
	if l.Over != nil {
		if v, ok := l.Over.Bool(key); ok {
			return v, true
		}
	}
	return l.Base.Bool(key)
}

func (l Layered) Number(key string) (float64, bool) {
	if l.Over != nil {
		if v, ok := l.Over.Number(key); ok {
			return v, true
		}
	}
	return l.Base.Number(key)
}

func (l Layered) Strings(key string) ([]string, bool) {
	if l.Over != nil {
		if v, ok := l.Over.Strings(key); ok {
			return v, true
		}
	}
	return l.Base.Strings(key)
}
