package stilts

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryLoader is an in-memory TemplateStore.
// It is primarily intended for testing and for templates compiled into a
// binary. All data is lost when the process terminates.
type MemoryLoader struct {
	mu        sync.RWMutex
	templates map[string]string // identity -> source
	closed    bool
}

// MemoryLoaderDriver is the driver for creating MemoryLoader instances.
type MemoryLoaderDriver struct{}

func init() {
	RegisterLoaderDriver(LoaderDriverMemory, &MemoryLoaderDriver{})
}

// Open creates a new MemoryLoader instance.
// The connection string is ignored.
func (d *MemoryLoaderDriver) Open(dsn string) (TemplateLoader, error) {
	return NewMemoryLoader(), nil
}

// NewMemoryLoader creates an empty in-memory loader.
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{
		templates: make(map[string]string),
	}
}

// NewMemoryLoaderFrom creates an in-memory loader holding the given
// identity to source pairs. It panics on an invalid identity.
func NewMemoryLoaderFrom(templates map[string]string) *MemoryLoader {
	l := NewMemoryLoader()
	for identity, source := range templates {
		l.MustAdd(identity, source)
	}
	return l
}

// Add stores a template under identity, replacing any previous source.
func (l *MemoryLoader) Add(identity, source string) error {
	return l.Save(context.Background(), identity, source)
}

// MustAdd is Add that panics on error.
func (l *MemoryLoader) MustAdd(identity, source string) {
	if err := l.Add(identity, source); err != nil {
		panic(err)
	}
}

// Load retrieves a template by reference.
func (l *MemoryLoader) Load(ctx context.Context, ref string) (*LoadedTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identity, err := normalizeReference(ref)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, NewLoaderClosedError()
	}

	source, ok := l.templates[identity]
	if !ok {
		return nil, NewTemplateNotFoundError(ref)
	}
	return &LoadedTemplate{Identity: identity, Source: source}, nil
}

// Save stores a template, replacing any previous source.
func (l *MemoryLoader) Save(ctx context.Context, identity, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	identity, err := normalizeReference(identity)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return NewLoaderClosedError()
	}
	l.templates[identity] = source
	return nil
}

// Delete removes a template.
func (l *MemoryLoader) Delete(ctx context.Context, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := normalizeReference(identity)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return NewLoaderClosedError()
	}
	if _, ok := l.templates[normalized]; !ok {
		return NewTemplateNotFoundError(identity)
	}
	delete(l.templates, normalized)
	return nil
}

// List returns all stored identities, sorted.
func (l *MemoryLoader) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, NewLoaderClosedError()
	}

	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close marks the loader as closed and drops its templates.
func (l *MemoryLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.templates = nil
	return nil
}

// normalizeReference turns a reference into a canonical slash-separated
// identity. References are relative to the loader's root: absolute paths
// and paths escaping the root are rejected.
func normalizeReference(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", &LoaderError{Message: ErrMsgInvalidReference, Reference: ref}
	}
	slashed := strings.ReplaceAll(ref, "\\", "/")
	if strings.HasPrefix(slashed, "/") {
		return "", &LoaderError{Message: ErrMsgPathTraversalDetected, Reference: ref}
	}
	for _, segment := range strings.Split(slashed, "/") {
		if segment == FilesystemPathTraversal {
			return "", &LoaderError{Message: ErrMsgPathTraversalDetected, Reference: ref}
		}
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return "", &LoaderError{Message: ErrMsgInvalidReference, Reference: ref}
	}
	return cleaned, nil
}

// Ensure MemoryLoader implements TemplateStore
var _ TemplateStore = (*MemoryLoader)(nil)
