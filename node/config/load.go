package config

import (
	"bytes"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
)

// FromFile loads the config from a TOML file. Missing files yield the
// defaults.
func FromFile(path string) (*Node, error) {
	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		return DefaultNode(), nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck
	return FromReader(file)
}

// FromReader loads the config from a reader, layered over the defaults.
func FromReader(reader io.Reader) (*Node, error) {
	cfg := DefaultNode()
	if _, err := toml.NewDecoder(reader).Decode(cfg); err != nil {
		return nil, xerrors.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Encode renders a config as TOML.
func Encode(cfg *Node) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return nil, xerrors.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
