package catalog

//go:generate mockgen -destination=mock/mock_source.go -package=catalogmock github.com/KirkDiggler/rpg-builder/internal/catalog Source

import (
	"context"
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

//go:embed data/srd.yaml
var builtinFS embed.FS

// Source fetches the raw reference dataset
type Source interface {
	Fetch(ctx context.Context) (*Data, error)
}

type builtinSource struct{}

// Builtin returns the dataset compiled into the binary
func Builtin() Source {
	return builtinSource{}
}

func (builtinSource) Fetch(_ context.Context) (*Data, error) {
	raw, err := builtinFS.ReadFile("data/srd.yaml")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read builtin catalog")
	}
	return decodeYAML(raw)
}

// BuiltinData decodes the compiled-in dataset directly
func BuiltinData() (*Data, error) {
	return builtinSource{}.Fetch(context.Background())
}

type fileSource struct {
	path string
}

// File returns a source reading a YAML or JSON dataset from disk.
// The format is chosen by extension; anything but .json is read as YAML.
func File(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Fetch(ctx context.Context) (*Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.path) == "" {
		return nil, errors.InvalidArgument("catalog file path is required")
	}

	raw, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", s.path)
	}

	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		var data Data
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, errors.Wrapf(err, "failed to decode catalog file %s", s.path)
		}
		return &data, nil
	}
	return decodeYAML(raw)
}

func decodeYAML(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog yaml")
	}
	return &data, nil
}
