package taxonomy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a taxonomy file of the form {category: {"<id>": name}}.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
// Both parsers keep document order. An empty path yields an empty taxonomy.
func Load(path string) (Taxonomy, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read class taxonomy")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// SidecarPath returns <dir>/<stem>.json for a model file when it exists.
func SidecarPath(modelPath string) (string, bool) {
	if modelPath == "" {
		return "", false
	}
	dir, name := filepath.Split(modelPath)
	candidate := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".json")
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	return candidate, true
}

// ParseYAML decodes a YAML taxonomy through yaml.Node so key order survives.
func ParseYAML(data []byte) (Taxonomy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid taxonomy yaml")
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("taxonomy root must be a mapping (line %d)", root.Line)
	}

	var tax Taxonomy
	for i := 0; i+1 < len(root.Content); i += 2 {
		catKey, catVal := root.Content[i], root.Content[i+1]
		if catVal.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("category %q must be a mapping (line %d)", catKey.Value, catVal.Line)
		}

		cat := Category{Name: catKey.Value}
		for j := 0; j+1 < len(catVal.Content); j += 2 {
			idNode, nameNode := catVal.Content[j], catVal.Content[j+1]
			id, err := parseClassID(idNode.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "category %q line %d", cat.Name, idNode.Line)
			}
			if nameNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("category %q id %d: name must be a string (line %d)", cat.Name, id, nameNode.Line)
			}
			cat.Classes = append(cat.Classes, Class{ID: id, Name: nameNode.Value})
		}
		tax = append(tax, cat)
	}

	return tax, nil
}

// ParseJSON decodes a JSON taxonomy with a token stream so key order survives.
func ParseJSON(data []byte) (Taxonomy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var tax Taxonomy
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, errors.Wrapf(err, "category %q", name)
		}

		cat := Category{Name: name}
		for dec.More() {
			key, err := stringToken(dec)
			if err != nil {
				return nil, err
			}
			id, err := parseClassID(key)
			if err != nil {
				return nil, errors.Wrapf(err, "category %q", name)
			}
			display, err := stringToken(dec)
			if err != nil {
				return nil, errors.Wrapf(err, "category %q id %d", name, id)
			}
			cat.Classes = append(cat.Classes, Class{ID: id, Name: display})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		tax = append(tax, cat)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, errors.Wrap(err, "invalid taxonomy json")
		}
		return nil, fmt.Errorf("invalid taxonomy json: unexpected %v after document", tok)
	}
	return tax, nil
}

func parseClassID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("class id %q is not a non-negative integer", s)
	}
	return id, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "invalid taxonomy json")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("invalid taxonomy json: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", errors.Wrap(err, "invalid taxonomy json")
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("invalid taxonomy json: expected string, got %v", tok)
	}
	return s, nil
}
