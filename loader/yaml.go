package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nathoo/dicelab/engine/state"
	"gopkg.in/yaml.v3"
)

// yamlSim is the YAML form of a simulation definition.
type yamlSim struct {
	Title   string    `yaml:"title"`
	Author  string    `yaml:"author"`
	Rolls   int       `yaml:"rolls"`
	Seed    int64     `yaml:"seed"`
	Dice    []string  `yaml:"dice"`
	DieDefs []yamlDie `yaml:"die_defs"`
}

type yamlDie struct {
	ID      string      `yaml:"id"`
	Faces   []any       `yaml:"faces"`
	Weights map[any]any `yaml:"weights"`
}

func loadYAML(path string) (*state.Defs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := parseYAML(data, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return finish(doc)
}

// parseYAML decodes a YAML definition. Unknown keys are rejected so typos
// like "die_def" fail loudly.
func parseYAML(data []byte, name string) (*document, error) {
	var ys yamlSim
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ys); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty definition file", name)
		}
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	doc := &document{
		title:  ys.Title,
		author: ys.Author,
		rolls:  ys.Rolls,
		seed:   ys.Seed,
		dice:   ys.Dice,
	}
	for _, yd := range ys.DieDefs {
		dd := dieDoc{id: yd.ID, source: name, faces: yd.Faces}
		for k, v := range yd.Weights {
			dd.weights = append(dd.weights, weightDoc{face: k, weight: v})
		}
		doc.defs = append(doc.defs, dd)
	}
	return doc, nil
}
