package configs

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SaveTOML encodes data and writes it to filePath, creating parent directories.
func SaveTOML(filePath string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}

	// #nosec G306 -- project config is committed alongside the manifests.
	return os.WriteFile(filePath, buf.Bytes(), 0644)
}

// LoadTOML decodes filePath into data and returns the keys it did not recognise.
func LoadTOML(filePath string, data interface{}) ([]string, error) {
	md, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return unknown, nil
}
