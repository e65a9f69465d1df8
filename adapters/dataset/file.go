package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"labsignal/adapters/excel"
	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal"
	"labsignal/internal/errors"
)

// Supported dataset formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var validate = validator.New()

// FormatOf returns the dataset format implied by a file name, or "" when unknown
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return excel.FileType(path)
}

// FileSource loads a dataset from a JSON, YAML, XLSX or CSV file
type FileSource struct {
	path   string
	logger *internal.Logger
}

// NewFileSource creates a dataset source backed by path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, logger: internal.DefaultLogger}
}

// LoadDataset implements ports.DatasetSource
func (s *FileSource) LoadDataset(ctx context.Context) (lab.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return lab.Dataset{}, err
	}
	format := FormatOf(s.path)
	if format == "" {
		return lab.Dataset{}, errors.UnsupportedFormat(filepath.Ext(s.path))
	}
	f, err := os.Open(s.path)
	if err != nil {
		return lab.Dataset{}, errors.IOError("open", s.path, err)
	}
	defer f.Close()

	ds, err := Decode(f, format)
	if err != nil {
		return lab.Dataset{}, errors.Wrapf(err, "failed to load %s", s.path)
	}
	s.logger.Debug("[Dataset] loaded %s: %d reports, %d protocols, %d priors", s.path, len(ds.Reports), len(ds.Protocols), len(ds.Priors))
	return ds, nil
}

// Decode reads a dataset in the given format and validates it. Workbook rows
// that cannot be imported are logged and skipped.
func Decode(r io.Reader, format string) (lab.Dataset, error) {
	var ds lab.Dataset
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&ds); err != nil {
			return lab.Dataset{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&ds); err != nil && err != io.EOF {
			return lab.Dataset{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
		}
	case FormatXLSX, FormatCSV:
		sheet, err := excel.ReadFrom(r, format)
		if err != nil {
			return lab.Dataset{}, err
		}
		var issues []excel.RowIssue
		ds, issues, err = excel.ToDataset(sheet)
		if err != nil {
			return lab.Dataset{}, err
		}
		for _, issue := range issues {
			internal.DefaultLogger.Warn("[Dataset] skipped row %d: %s", issue.Row, issue.Reason)
		}
	default:
		return lab.Dataset{}, errors.UnsupportedFormat(format)
	}

	return Clean(ds)
}

// Clean fills defaults on an already decoded dataset and validates it
func Clean(ds lab.Dataset) (lab.Dataset, error) {
	normalize(&ds)
	if err := Validate(ds); err != nil {
		return lab.Dataset{}, err
	}
	return ds, nil
}

// Encode writes a dataset as JSON, YAML or an import-layout workbook
func Encode(w io.Writer, ds lab.Dataset, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return err
		}
		return enc.Close()
	case FormatXLSX:
		return excel.WriteDataset(ds, w)
	}
	return errors.UnsupportedFormat(format)
}

// Marshal is Encode into a byte slice
func Marshal(ds lab.Dataset, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ds, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalize(ds *lab.Dataset) {
	if ds.Reports == nil {
		ds.Reports = []lab.LabReport{}
	}
	if ds.Protocols == nil {
		ds.Protocols = []lab.Protocol{}
	}
	for i := range ds.Reports {
		for j := range ds.Reports[i].Markers {
			if m := &ds.Reports[i].Markers[j]; m.Confidence == 0 && !m.IsCalculated {
				m.Confidence = 1
			}
		}
	}
	for i := range ds.Priors {
		ds.Priors[i].UnitSystem = lab.UnitSystem(strings.ToLower(string(ds.Priors[i].UnitSystem)))
	}
}

// Validate checks identifiers, dates and values that the analysis relies on
func Validate(ds lab.Dataset) error {
	seen := make(map[core.ReportID]bool, len(ds.Reports))
	for i, r := range ds.Reports {
		field := fmt.Sprintf("reports[%d]", i)
		if r.ID == "" {
			return core.NewValidationError(field+".id", "empty")
		}
		if seen[r.ID] {
			return core.NewValidationError(field+".id", fmt.Sprintf("duplicate %q", r.ID))
		}
		seen[r.ID] = true
		if r.TestDate.IsZero() {
			return core.NewValidationError(field+".test_date", "missing")
		}
		for j, m := range r.Markers {
			if m.Name == "" && m.RawName == "" {
				return core.NewValidationError(fmt.Sprintf("%s.markers[%d]", field, j), "no name")
			}
			if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
				return core.NewValidationError(fmt.Sprintf("%s.markers[%d].value", field, j), "not finite")
			}
		}
	}

	protocols := make(map[core.ProtocolID]bool, len(ds.Protocols))
	for i, p := range ds.Protocols {
		if p.ID.IsEmpty() {
			return core.NewValidationError(fmt.Sprintf("protocols[%d].id", i), "empty")
		}
		if protocols[p.ID] {
			return core.NewValidationError(fmt.Sprintf("protocols[%d].id", i), fmt.Sprintf("duplicate %q", p.ID))
		}
		protocols[p.ID] = true
		for j, c := range p.Compounds {
			if c.DoseMg < 0 {
				return core.NewValidationError(fmt.Sprintf("protocols[%d].compounds[%d].dose_mg", i, j), "negative")
			}
		}
	}

	for i, prior := range ds.Priors {
		if err := validate.Struct(prior); err != nil {
			return core.NewValidationError(fmt.Sprintf("priors[%d]", i), err.Error())
		}
	}
	return nil
}
