package pipeline

import (
	"context"
	"errors"
	"sync"

	"docwatch/internal/content"
)

type fetchStep struct {
	data string
	err  error
}

type scriptedFetcher struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
}

func fetches(data ...string) *scriptedFetcher {
	f := &scriptedFetcher{}
	for _, d := range data {
		f.steps = append(f.steps, fetchStep{data: d})
	}
	return f
}

func (f *scriptedFetcher) Fetch(ctx context.Context) (content.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.steps) {
		return content.Artifact{}, errors.New("script exhausted")
	}
	s := f.steps[f.calls]
	f.calls++
	if s.err != nil {
		return content.Artifact{}, s.err
	}
	return content.Artifact{Format: content.FormatSource, Name: "doc.docx", Data: []byte(s.data)}, nil
}

type memStore struct {
	mu           sync.Mutex
	source       *content.Artifact
	output       *content.Artifact
	sourceWrites int
	outputWrites int
	outputClears int
	replaceErr   error
	clearErr     error
	storeErr     error
	loadErr      error
}

func (m *memStore) LoadSource() (*content.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return clone(m.source), nil
}

func (m *memStore) ReplaceSource(a content.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.sourceWrites++
	m.source = clone(&a)
	return nil
}

func (m *memStore) HasOutput() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output != nil, nil
}

func (m *memStore) LoadOutput() (*content.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.output), nil
}

func (m *memStore) StoreOutput(a content.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return m.storeErr
	}
	m.outputWrites++
	m.output = clone(&a)
	return nil
}

func (m *memStore) ClearOutput() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	if m.output != nil {
		m.outputClears++
	}
	m.output = nil
	return nil
}

func (m *memStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceWrites + m.outputWrites + m.outputClears
}

func clone(a *content.Artifact) *content.Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

type fakeConverter struct {
	mu    sync.Mutex
	calls int
	err   error
	panic any
}

func (c *fakeConverter) Convert(_ context.Context, src content.Artifact) (content.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.panic != nil {
		panic(c.panic)
	}
	if c.err != nil {
		return content.Artifact{}, c.err
	}
	return content.Artifact{Format: content.FormatDerived, Name: "document.pdf", Data: append([]byte("PDF:"), src.Data...)}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []string
	err      error
	disabled bool
}

func (n *fakeNotifier) Enabled() bool { return !n.disabled }

func (n *fakeNotifier) Send(_ context.Context, doc content.Artifact) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, string(doc.Data))
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
