package gameground

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrGameNotFound is returned by Catalog.Find for an unknown id.
var ErrGameNotFound = errors.New("game not found")

// Catalog is the immutable, ordered list of playable games.
type Catalog struct {
	games []Game
	byID  map[string]int
}

type catalogFile struct {
	Games []Game `yaml:"games"`
}

// LoadCatalog parses a YAML catalog with a top-level "games" list and
// validates it: every game needs a title and a unique, non-empty id usable
// as a path segment.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		games: f.Games,
		byID:  make(map[string]int, len(f.Games)),
	}
	for i, g := range f.Games {
		if g.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if strings.ContainsAny(g.ID, "/,?# ") {
			return nil, fmt.Errorf("catalog game %q: id must be a single path segment", g.ID)
		}
		if g.Title == "" {
			return nil, fmt.Errorf("catalog game %q: missing title", g.ID)
		}
		if _, dup := c.byID[g.ID]; dup {
			return nil, fmt.Errorf("catalog game %q: duplicate id", g.ID)
		}
		c.byID[g.ID] = i
	}
	return c, nil
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	f, err := EmbeddedAssets.Open("embedded/games.yaml")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalogFile reads a catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// All returns every game in catalog order.
func (c *Catalog) All() []Game {
	out := make([]Game, len(c.games))
	copy(out, c.games)
	return out
}

// Len returns the number of games.
func (c *Catalog) Len() int {
	return len(c.games)
}

func (c *Catalog) Find(id string) (Game, error) {
	i, ok := c.byID[id]
	if !ok {
		return Game{}, ErrGameNotFound
	}
	return c.games[i], nil
}

// Featured returns the first n games.
func (c *Catalog) Featured(n int) []Game {
	if n > len(c.games) {
		n = len(c.games)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Game, n)
	copy(out, c.games[:n])
	return out
}

// Suggested returns up to n games other than id, in catalog order.
func (c *Catalog) Suggested(id string, n int) []Game {
	out := make([]Game, 0, n)
	for _, g := range c.games {
		if len(out) == n {
			break
		}
		if g.ID != id {
			out = append(out, g)
		}
	}
	return out
}

// Lookup returns the games for ids in the given order, skipping unknown ids.
func (c *Catalog) Lookup(ids []string) []Game {
	out := make([]Game, 0, len(ids))
	for _, id := range ids {
		if g, err := c.Find(id); err == nil {
			out = append(out, g)
		}
	}
	return out
}

// Categories returns the distinct categories in order of first appearance.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range c.games {
		if g.Category == "" || seen[g.Category] {
			continue
		}
		seen[g.Category] = true
		out = append(out, g.Category)
	}
	return out
}
