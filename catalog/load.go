package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"orderagent/storage"
)

// tableFile is the on-disk catalog layout. JSON tables parse as well since yaml.v3 accepts
// JSON documents.
type tableFile struct {
	Items []struct {
		Name    string   `yaml:"name"`
		Price   float64  `yaml:"price"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"items"`
}

// Parse builds a Catalog from a YAML or JSON table.
func Parse(data []byte) (*Catalog, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(tf.Items) == 0 {
		return nil, fmt.Errorf("parse catalog: no items")
	}

	entries := make([]Entry, 0, len(tf.Items))
	for _, it := range tf.Items {
		entries = append(entries, Entry{
			Name:    it.Name,
			Price:   MoneyFromFloat(it.Price),
			Aliases: it.Aliases,
		})
	}
	return New(entries)
}

// Load reads a table from src and parses it.
func Load(ctx context.Context, src storage.Source) (*Catalog, error) {
	b, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	slog.Info("CATALOG: Loaded", "items", c.Len(), "aliases", len(c.sorted))
	return c, nil
}
