package priors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
)

// MaxPriors bounds the number of entries a priors file may hold
const MaxPriors = 500

// File is the on-disk layout of a priors file
type File struct {
	Priors []lab.DosePrior `json:"priors" yaml:"priors" validate:"dive"`
}

var validate = validator.New()

// FileSource reads study priors from a YAML or JSON file. An empty path
// yields no priors.
type FileSource struct {
	path string
}

// NewFileSource creates a prior source backed by path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Priors implements ports.PriorSource
func (s *FileSource) Priors(ctx context.Context) ([]lab.DosePrior, error) {
	if s.path == "" {
		return []lab.DosePrior{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.IOError("read", s.path, err)
	}
	return Parse(data, Format(s.path))
}

// Static is a fixed in-memory prior source
type Static []lab.DosePrior

// Priors implements ports.PriorSource
func (s Static) Priors(context.Context) ([]lab.DosePrior, error) {
	return append([]lab.DosePrior{}, s...), nil
}

// Format returns "json" or "yaml" from a file name; anything else is treated as yaml
func Format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// Parse decodes and validates a priors document
func Parse(data []byte, format string) ([]lab.DosePrior, error) {
	var f File
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(fmt.Errorf("%w: %v", core.ErrInvalidInput, err), "failed to decode priors")
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(fmt.Errorf("%w: %v", core.ErrInvalidInput, err), "failed to decode priors")
		}
	default:
		return nil, errors.UnsupportedFormat(format)
	}

	if len(f.Priors) > MaxPriors {
		return nil, errors.InvalidInput(fmt.Sprintf("too many priors: %d (max %d)", len(f.Priors), MaxPriors))
	}
	for i := range f.Priors {
		f.Priors[i].UnitSystem = lab.UnitSystem(strings.ToLower(string(f.Priors[i].UnitSystem)))
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %v", core.ErrInvalidInput, err), "invalid priors")
	}
	if f.Priors == nil {
		f.Priors = []lab.DosePrior{}
	}
	return f.Priors, nil
}
