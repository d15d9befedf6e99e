package classify

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultTables []byte

// CategoryTable holds one category's language-partitioned keyword lists.
type CategoryTable struct {
	Key      string              `yaml:"key"`
	Keywords map[string][]string `yaml:"keywords"`
}

// Tables is the loaded classifier configuration resource. Category order
// is preserved from the file; ties during scoring keep the earlier entry.
type Tables struct {
	Categories []CategoryTable              `yaml:"categories"`
	Synonyms   map[string]map[string]string `yaml:"synonyms"`
}

// LoadTables reads keyword tables from path, or the embedded default set
// when path is empty.
func LoadTables(path string) (Tables, error) {
	raw := defaultTables
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Tables{}, fmt.Errorf("read keyword tables: %w", err)
		}
		raw = b
	}

	var tables Tables
	if err := yaml.Unmarshal(raw, &tables); err != nil {
		return Tables{}, fmt.Errorf("parse keyword tables: %w", err)
	}
	if len(tables.Categories) == 0 {
		return Tables{}, fmt.Errorf("keyword tables contain no categories")
	}
	return tables, nil
}
