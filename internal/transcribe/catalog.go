package transcribe

import (
	"fmt"
	"strings"
)

// ModelInfo describes one selectable model identifier.
type ModelInfo struct {
	ID          string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Recommended bool   `json:"is_recommended"`
}

const (
	defaultDescription = "Balanced performance"
	recommendedModel   = "medium"
)

var modelDescriptions = map[string]string{
	"tiny":     "Fastest speed · lowest accuracy",
	"base":     "Very fast speed · moderate accuracy",
	"small":    "Fast speed · good accuracy",
	"medium":   "Moderate speed · high accuracy",
	"large-v2": "Slow speed · very high accuracy",
	"large-v3": "Slowest speed · highest accuracy",
}

// Catalog is the allow-list of model identifiers, built once at startup.
type Catalog struct {
	models    []ModelInfo
	index     map[string]int
	defaultID string
}

// NewCatalog builds the allow-list. The default model is appended when it is
// not already listed. Duplicate or blank identifiers are rejected.
func NewCatalog(ids []string, defaultID string) (*Catalog, error) {
	defaultID = strings.TrimSpace(defaultID)
	if defaultID == "" {
		return nil, fmt.Errorf("default model must not be empty")
	}

	c := &Catalog{index: make(map[string]int), defaultID: defaultID}
	for _, id := range ids {
		if err := c.add(id); err != nil {
			return nil, err
		}
	}
	if !c.Has(defaultID) {
		if err := c.add(defaultID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("model identifier must not be empty")
	}
	if _, dup := c.index[id]; dup {
		return fmt.Errorf("duplicate model identifier %q", id)
	}
	desc, ok := modelDescriptions[id]
	if !ok {
		desc = defaultDescription
	}
	c.index[id] = len(c.models)
	c.models = append(c.models, ModelInfo{
		ID:          id,
		Label:       prettyName(id) + " · " + desc,
		Description: desc,
		Recommended: id == recommendedModel,
	})
	return nil
}

// Has reports whether id is in the allow-list.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Get returns the entry for id.
func (c *Catalog) Get(id string) (ModelInfo, bool) {
	i, ok := c.index[id]
	if !ok {
		return ModelInfo{}, false
	}
	return c.models[i], true
}

// Models returns the entries in configured order.
func (c *Catalog) Models() []ModelInfo {
	out := make([]ModelInfo, len(c.models))
	copy(out, c.models)
	return out
}

// Default returns the default model entry.
func (c *Catalog) Default() ModelInfo {
	m, _ := c.Get(c.defaultID)
	return m
}

// prettyName turns "large-v3" into "Large V3".
func prettyName(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "-", " "))
	for i, w := range words {
		w = strings.ToLower(w)
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
