package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownItem is returned when a name does not belong to the catalog.
var ErrUnknownItem = errors.New("unknown item")

// Entry is a purchasable item.
type Entry struct {
	Name    string
	Price   Money
	Aliases []string
}

// Alias is a lowercased surface form and the canonical name it stands for.
type Alias struct {
	Surface   string
	Canonical string
}

// Catalog is the immutable menu-and-price table. It is built once at startup and shared
// read-only by every turn.
type Catalog struct {
	entries map[string]Entry  // canonical name -> entry
	aliases map[string]string // lowercased surface form -> canonical name
	names   []string
	sorted  []Alias
}

// New validates entries and builds a Catalog. The lowercased canonical name of every entry
// is always one of its aliases.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]Entry, len(entries)),
		aliases: make(map[string]string, len(entries)),
		names:   make([]string, 0, len(entries)),
	}

	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry with empty name")
		}
		if e.Price < 0 {
			return nil, fmt.Errorf("catalog entry %q has negative price %s", name, e.Price)
		}
		if _, dup := c.aliases[strings.ToLower(name)]; dup {
			return nil, fmt.Errorf("catalog entry %q is defined more than once", name)
		}

		e.Name = name
		surfaces := append([]string{name}, e.Aliases...)
		e.Aliases = make([]string, 0, len(surfaces))
		for _, s := range surfaces {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" {
				continue
			}
			if owner, taken := c.aliases[key]; taken {
				if owner == name {
					continue
				}
				return nil, fmt.Errorf("alias %q maps to both %q and %q", key, owner, name)
			}
			c.aliases[key] = name
			e.Aliases = append(e.Aliases, key)
		}

		c.entries[name] = e
		c.names = append(c.names, name)
	}

	c.sorted = make([]Alias, 0, len(c.aliases))
	for surface, canonical := range c.aliases {
		c.sorted = append(c.sorted, Alias{Surface: surface, Canonical: canonical})
	}
	sort.Slice(c.sorted, func(i, j int) bool {
		a, b := c.sorted[i].Surface, c.sorted[j].Surface
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	return c, nil
}

// Resolve maps a surface form to its canonical name. Matching is exact after trimming and
// lowercasing; fuzzy matching belongs to the extractor.
func (c *Catalog) Resolve(surface string) (string, bool) {
	name, ok := c.aliases[strings.ToLower(strings.TrimSpace(surface))]
	return name, ok
}

// UnitPrice returns the price of one unit of the canonical item name.
func (c *Catalog) UnitPrice(name string) (Money, error) {
	e, ok := c.entries[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}
	return e.Price, nil
}

// LinePrice returns UnitPrice(name) * qty.
func (c *Catalog) LinePrice(name string, qty int) (Money, error) {
	unit, err := c.UnitPrice(name)
	if err != nil {
		return 0, err
	}
	return unit.Times(qty), nil
}

// Aliases returns every surface form, longest first.
func (c *Catalog) Aliases() []Alias {
	out := make([]Alias, len(c.sorted))
	copy(out, c.sorted)
	return out
}

// Names returns the canonical names in table order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Catalog) Len() int { return len(c.names) }
