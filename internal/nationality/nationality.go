// Package nationality loads the list of artist nationalities users may
// search by.
package nationality

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"metcatalog/internal/errors"
)

// Registry is an immutable, case-insensitive set of nationalities.
type Registry struct {
	names []string
	index map[string]struct{}
}

// Load reads a nationality file: one name per line, blank lines and lines
// starting with '#' ignored.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "nationality", "Load", "open "+path)
	}
	defer f.Close()

	r, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse builds a registry from r. Duplicates (ignoring case) keep their
// first spelling. An input with no names is an error.
func Parse(r io.Reader) (*Registry, error) {
	reg := &Registry{index: make(map[string]struct{})}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := reg.index[key]; dup {
			continue
		}
		reg.index[key] = struct{}{}
		reg.names = append(reg.names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapFatal(err, "nationality", "Parse", "read list")
	}
	if len(reg.names) == 0 {
		return nil, errors.WrapFatal(errors.ErrInvalidConfig, "nationality", "Parse", "nationality list is empty")
	}
	return reg, nil
}

// Valid reports whether n is a known nationality.
func (r *Registry) Valid(n string) bool {
	_, ok := r.index[strings.ToLower(strings.TrimSpace(n))]
	return ok
}

// All returns the nationalities in file order.
func (r *Registry) All() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of nationalities.
func (r *Registry) Len() int { return len(r.names) }
