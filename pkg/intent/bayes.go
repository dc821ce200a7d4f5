package intent

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

const modelVersion = 1

// Model is a multinomial naive Bayes classifier over unigrams and bigrams
// with Laplace smoothing. It is read-only once trained or loaded.
type Model struct {
	Version     int                       `json:"version"`
	Labels      []string                  `json:"labels"`
	Docs        map[string]int            `json:"docs"`
	TokenCounts map[string]map[string]int `json:"token_counts"`
	TokenTotals map[string]int            `json:"token_totals"`
	VocabSize   int                       `json:"vocab_size"`
}

// tokenize lowercases text and returns its words followed by adjacent word pairs
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(words)*2)
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+" "+words[i+1])
	}
	return tokens
}

// Train builds a model from a dataset
func Train(ds Dataset) (*Model, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		Version:     modelVersion,
		Docs:        make(map[string]int),
		TokenCounts: make(map[string]map[string]int),
		TokenTotals: make(map[string]int),
	}

	vocab := make(map[string]struct{})
	for label, examples := range ds {
		m.Labels = append(m.Labels, label)
		counts := make(map[string]int)
		for _, ex := range examples {
			m.Docs[label]++
			for _, tok := range tokenize(ex) {
				counts[tok]++
				m.TokenTotals[label]++
				vocab[tok] = struct{}{}
			}
		}
		m.TokenCounts[label] = counts
	}
	sort.Strings(m.Labels)
	m.VocabSize = len(vocab)

	return m, nil
}

// Predict returns the most probable label and its posterior probability
func (m *Model) Predict(text string) (string, float64) {
	tokens := tokenize(text)

	totalDocs := 0
	for _, n := range m.Docs {
		totalDocs += n
	}

	scores := make([]float64, len(m.Labels))
	for i, label := range m.Labels {
		score := math.Log(float64(m.Docs[label]) / float64(totalDocs))
		denom := float64(m.TokenTotals[label] + m.VocabSize)
		for _, tok := range tokens {
			score += math.Log(float64(m.TokenCounts[label][tok]+1) / denom)
		}
		scores[i] = score
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	// Normalize in log space to avoid underflow on long texts
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return m.Labels[best], 1 / sum
}

func (m *Model) validate() error {
	if m.Version != modelVersion {
		return goerr.Wrap(model.ErrConfiguration, "unsupported intent model version", goerr.V("version", m.Version))
	}
	if len(m.Labels) == 0 {
		return goerr.Wrap(model.ErrConfiguration, "intent model has no labels")
	}
	for _, label := range m.Labels {
		if m.Docs[label] == 0 {
			return goerr.Wrap(model.ErrConfiguration, "intent model label has no documents", goerr.V("label", label))
		}
	}
	return nil
}

// Write encodes the model as JSON
func (m *Model) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return goerr.Wrap(err, "failed to encode intent model")
	}
	return nil
}

// Save writes the model to path, creating parent directories
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create model directory", goerr.V("path", path))
	}

	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create model file", goerr.V("path", path))
	}
	if err := m.Write(f); err != nil {
		_ = f.Close()
		return goerr.Wrap(err, "failed to write model file", goerr.V("path", path))
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close model file", goerr.V("path", path))
	}
	return nil
}

// ReadModel decodes and validates a JSON model
func ReadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "failed to decode intent model", goerr.V("error", err.Error()))
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadModel reads a model artifact from path
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "intent model is not available, run `kostbot train` first",
			goerr.V("path", path),
			goerr.V("error", err.Error()))
	}
	defer f.Close()

	m, err := ReadModel(f)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid intent model", goerr.V("path", path))
	}
	return m, nil
}
