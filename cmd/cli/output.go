package main

import (
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"labsignal/internal/errors"
)

// openOutput opens path for writing, or stdout when path is empty
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.IOError("create", path, err)
	}
	return f, f.Close, nil
}

func writeBytes(path string, data []byte) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		closeFn()
		return errors.IOError("write", path, err)
	}
	return closeFn()
}

// writeStructured writes v as indented JSON or as YAML with the JSON field names
func writeStructured(path, format string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	switch format {
	case "json":
		return writeBytes(path, append(data, '\n'))
	case "yaml":
		out, err := jsonToYAML(data)
		if err != nil {
			return err
		}
		return writeBytes(path, out)
	}
	return errors.UnsupportedFormat(format)
}

// jsonToYAML re-encodes JSON as block-style YAML, keeping key order
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(err, "failed to convert output to yaml")
	}
	clearStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert output to yaml")
	}
	return out, nil
}

func clearStyle(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode {
		n.Style = 0
	} else if n.Tag == "!!str" {
		n.Style = 0
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}
