package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// LoadFile decodes a yaml/json settings file on top of Defaults. Keys absent from the file keep their default.
func LoadFile(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	return decodeViper(v)
}

func decodeViper(v *viper.Viper) (*Settings, error) {
	s := Defaults()
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}
	return &s, nil
}

// Export writes s to path; the extension picks the format (.json, else yaml). Secrets are never written.
func Export(s *Settings, path string) error {
	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case "json":
		data, err = sonic.ConfigStd.MarshalIndent(s, "", "  ")
	default:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return errors.Wrap(err, "marshal settings")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Import reads an exported file and validates it. Secrets are carried over from current since exports omit them.
func Import(path string, current *Settings) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	s := Defaults()
	switch formatOf(path) {
	case "json":
		err = sonic.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if current != nil {
		s.Telegram.BotToken = current.Telegram.BotToken
		s.APIs.JupiterAPIKey = current.APIs.JupiterAPIKey
		s.Runtime.DatabaseDSN = current.Runtime.DatabaseDSN
		s.Runtime.ConfigFile = current.Runtime.ConfigFile
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}
