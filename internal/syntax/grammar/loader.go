package grammar

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a grammar file encoding.
type Format uint8

const (
	// FormatUnknown is any unsupported encoding.
	FormatUnknown Format = iota
	// FormatYAML is YAML.
	FormatYAML
	// FormatTOML is TOML.
	FormatTOML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatUnknown
}

// IsGrammarFile reports whether path has a grammar file extension.
func IsGrammarFile(path string) bool {
	return FormatOf(path) != FormatUnknown
}

// Load reads and decodes the grammar file at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grammar file %s: %w", path, err)
	}
	return Parse(path, FormatOf(path), data)
}

// LoadFS reads and decodes the grammar file at path in fsys.
func LoadFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading grammar file %s: %w", path, err)
	}
	return Parse(path, FormatOf(path), data)
}

// Parse decodes data in the given format. source names the data in errors.
// Unknown keys are rejected.
func Parse(source string, format Format, data []byte) (*Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, yamlError(source, err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, tomlError(source, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, source)
	}

	if def.Name == "" {
		return nil, &ParseError{Path: source, Message: ErrNoName.Error(), Err: ErrNoName}
	}
	return &def, nil
}

func yamlError(source string, err error) error {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}
	var node *yaml.TypeError
	if errors.As(err, &node) && len(node.Errors) > 0 {
		pe.Message = strings.Join(node.Errors, "; ")
		var line int
		if _, scanErr := fmt.Sscanf(node.Errors[0], "line %d:", &line); scanErr == nil {
			pe.Line = line
		}
	}
	return pe
}

func tomlError(source string, err error) error {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}
	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		pe.Line, pe.Column = decErr.Position()
	}
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) && len(strict.Errors) > 0 {
		pe.Line, pe.Column = strict.Errors[0].Position()
		pe.Message = strict.String()
	}
	return pe
}
