package template

import (
	"strings"
	"sync"
)

// maxTrackedSecrets bounds the masker so a pathological invocation cannot
// grow the replacement set without limit.
const maxTrackedSecrets = 1000

// Masker records resolved secret values and rewrites text that contains
// them. One masker exists per invocation; every diagnostic writer consults
// it before anything reaches stderr.
type Masker struct {
	mu     sync.Mutex
	values []string
	seen   map[string]struct{}
}

// NewMasker returns an empty masker.
func NewMasker() *Masker {
	return &Masker{seen: make(map[string]struct{})}
}

// Track records a secret value for masking. Empty and duplicate values are
// ignored.
func (m *Masker) Track(value string) {
	if value == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[value]; dup {
		return
	}
	if len(m.values) >= maxTrackedSecrets {
		return
	}
	m.seen[value] = struct{}{}
	m.values = append(m.values, value)
}

// Mask replaces every occurrence of a tracked value in text with [SECRET].
func (m *Masker) Mask(text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.values {
		text = strings.ReplaceAll(text, v, "[SECRET]")
	}
	return text
}

// Reset forgets all tracked values.
func (m *Masker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = nil
	m.seen = make(map[string]struct{})
}
