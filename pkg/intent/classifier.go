package intent

import (
	"strings"
	"sync"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

const (
	// fallbackConfidence is returned with the general label when no rule hits and no model is configured
	fallbackConfidence = 0.2
)

// Classifier assigns an intent label to a message. It never fails once constructed.
type Classifier struct {
	rules []Rule
	model *Model
}

type Option func(*options)

type options struct {
	rules     []Rule
	modelPath string
	model     *Model
}

// WithRules replaces DefaultRules
func WithRules(rules []Rule) Option {
	return func(o *options) {
		o.rules = rules
	}
}

// WithModelPath loads the statistical model from path when the classifier is built
func WithModelPath(path string) Option {
	return func(o *options) {
		o.modelPath = path
	}
}

// WithModel uses an already trained model
func WithModel(m *Model) Option {
	return func(o *options) {
		o.model = m
	}
}

// New builds a classifier. A model path that cannot be loaded is a
// configuration error.
func New(opts ...Option) (*Classifier, error) {
	o := &options{rules: DefaultRules()}
	for _, opt := range opts {
		opt(o)
	}

	c := &Classifier{rules: lowerRules(o.rules), model: o.model}
	if c.model == nil && o.modelPath != "" {
		m, err := loadCached(o.modelPath)
		if err != nil {
			return nil, err
		}
		c.model = m
	}
	return c, nil
}

// HasModel reports whether a statistical model is configured
func (c *Classifier) HasModel() bool {
	return c.model != nil
}

// Classify returns the intent of text. Keyword rules take precedence over the
// statistical model.
func (c *Classifier) Classify(text string) model.IntentResult {
	if strings.TrimSpace(text) == "" {
		return model.IntentResult{Label: model.IntentUnknown, Confidence: 0}
	}

	lowered := strings.ToLower(text)
	for _, r := range c.rules {
		if r.match(lowered) {
			return model.IntentResult{Label: r.Label, Confidence: r.Confidence}
		}
	}

	if c.model == nil {
		return model.IntentResult{Label: model.IntentGeneral, Confidence: fallbackConfidence}
	}

	label, confidence := c.model.Predict(text)
	return model.IntentResult{Label: label, Confidence: confidence}
}

var modelCache = struct {
	sync.Mutex
	models map[string]*Model
}{models: make(map[string]*Model)}

// loadCached loads the model at path at most once per process
func loadCached(path string) (*Model, error) {
	modelCache.Lock()
	defer modelCache.Unlock()

	if m, ok := modelCache.models[path]; ok {
		return m, nil
	}

	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	modelCache.models[path] = m
	return m, nil
}
