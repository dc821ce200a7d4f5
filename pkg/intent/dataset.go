package intent

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"gopkg.in/yaml.v3"
)

//go:embed data/intents.yaml
var defaultDataset []byte

// Dataset maps an intent label to its example utterances
type Dataset map[string][]string

func (ds Dataset) Validate() error {
	if len(ds) == 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "dataset has no labels")
	}
	for label, examples := range ds {
		if label == "" {
			return goerr.Wrap(model.ErrInvalidArgument, "dataset has an empty label")
		}
		if len(examples) == 0 {
			return goerr.Wrap(model.ErrInvalidArgument, "dataset label has no examples", goerr.V("label", label))
		}
	}
	return nil
}

// ReadDataset decodes a YAML dataset
func ReadDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
		return nil, goerr.Wrap(err, "failed to decode dataset")
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// LoadDataset reads a YAML dataset from path
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open dataset", goerr.V("path", path))
	}
	defer f.Close()

	ds, err := ReadDataset(f)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid dataset", goerr.V("path", path))
	}
	return ds, nil
}

// DefaultDataset returns the bundled training examples
func DefaultDataset() Dataset {
	ds, err := ReadDataset(bytes.NewReader(defaultDataset))
	if err != nil {
		panic("bundled dataset is broken: " + err.Error())
	}
	return ds
}
