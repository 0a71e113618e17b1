// SPDX-License-Identifier: MPL-2.0

package vars

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Export and Import for file extensions
// other than .toml, .yaml and .yml.
var ErrUnsupportedFormat = errors.New("unsupported variable file format")

// document is the on-disk shape of an exported variable table.
type document struct {
	Variables map[string]string `toml:"variables" yaml:"variables"`
}

// Export writes the raw variable table to path. The format follows the
// file extension.
func (s *Store) Export(path string) error {
	doc := document{Variables: s.Map()}

	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "toml":
		data, err = toml.Marshal(doc)
	case "yaml":
		data, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export variables: %w", err)
	}
	return nil
}

// Import reads a table written by Export and sets every variable in it.
// Existing variables not named in the file are kept. It returns the number
// of variables set.
func (s *Store) Import(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("import variables: %w", err)
	}

	var doc document
	switch format(path) {
	case "toml":
		err = toml.Unmarshal(data, &doc)
	case "yaml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return 0, fmt.Errorf("decode variables from %s: %w", path, err)
	}

	for name, value := range doc.Variables {
		s.Set(name, value)
	}
	return len(doc.Variables), nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}
