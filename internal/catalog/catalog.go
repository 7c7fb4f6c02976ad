// Package catalog holds the htmx attribute dictionary used for completions
// and hover text. A Catalog is immutable once built and safe to share.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed htmx.toml
var defaultData []byte

var (
	// ErrEmptyName is returned for entries without a name
	ErrEmptyName = errors.New("catalog entry name is required")
	// ErrDuplicate is returned when an attribute or value is listed twice
	ErrDuplicate = errors.New("duplicate catalog entry")
	// ErrUnknownAttribute is returned when values are listed for an undeclared attribute
	ErrUnknownAttribute = errors.New("values for unknown attribute")
)

// Entry is a completion item with its documentation
type Entry struct {
	Name        string `toml:"name" json:"name"`
	Description string `toml:"description" json:"description"`
}

type catalogFile struct {
	Attributes []Entry            `toml:"attribute"`
	Values     map[string][]Entry `toml:"values"`
}

// Catalog is the immutable attribute and value dictionary
type Catalog struct {
	tags   []Entry
	values map[string][]Entry
	index  map[string]int
}

// Default returns the built-in htmx catalog
func Default() (*Catalog, error) {
	return New(defaultData)
}

// Load reads a catalog from a TOML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return New(data)
}

// New parses and validates a TOML catalog
func New(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		tags:   make([]Entry, 0, len(file.Attributes)),
		values: make(map[string][]Entry, len(file.Values)),
		index:  make(map[string]int, len(file.Attributes)),
	}

	for _, e := range file.Attributes {
		if e.Name == "" {
			return nil, ErrEmptyName
		}
		if _, ok := c.index[e.Name]; ok {
			return nil, fmt.Errorf("%w: attribute %s", ErrDuplicate, e.Name)
		}
		c.index[e.Name] = len(c.tags)
		c.tags = append(c.tags, e)
	}

	for attr, entries := range file.Values {
		if _, ok := c.index[attr]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, attr)
		}
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			if e.Name == "" {
				return nil, fmt.Errorf("%w: value of %s", ErrEmptyName, attr)
			}
			if seen[e.Name] {
				return nil, fmt.Errorf("%w: %s value %s", ErrDuplicate, attr, e.Name)
			}
			seen[e.Name] = true
		}
		c.values[attr] = append([]Entry(nil), entries...)
	}

	return c, nil
}

// Tags returns every attribute in catalog order
func (c *Catalog) Tags() []Entry {
	return append([]Entry(nil), c.tags...)
}

// Values returns the known values of attr
func (c *Catalog) Values(attr string) ([]Entry, bool) {
	entries, ok := c.values[attr]
	if !ok {
		return nil, false
	}
	return append([]Entry(nil), entries...), true
}

// Hover returns the documentation for an attribute
func (c *Catalog) Hover(name string) (Entry, bool) {
	i, ok := c.index[name]
	if !ok {
		return Entry{}, false
	}
	return c.tags[i], true
}

// Complete returns the attributes whose name starts with prefix, ignoring case
func (c *Catalog) Complete(prefix string) []Entry {
	prefix = strings.ToLower(prefix)
	out := make([]Entry, 0)
	for _, e := range c.tags {
		if strings.HasPrefix(strings.ToLower(e.Name), prefix) {
			out = append(out, e)
		}
	}
	return out
}

// CompleteValue returns the values of attr starting with prefix
func (c *Catalog) CompleteValue(attr, prefix string) []Entry {
	out := make([]Entry, 0)
	for _, e := range c.values[attr] {
		if strings.HasPrefix(e.Name, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of attributes
func (c *Catalog) Len() int {
	return len(c.tags)
}
