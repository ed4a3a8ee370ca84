package stilts

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/itsatony/go-stilts/internal"
)

// LoadedTemplate is a template source returned by a loader. Identity is the
// canonical name of the template; two references that load the same
// template must yield the same identity, which is what cycle detection
// compares.
type LoadedTemplate struct {
	Identity string
	Source   string
}

// TemplateLoader provides template sources by reference.
// Implementations must be safe for concurrent use.
type TemplateLoader interface {
	// Load returns the template named by ref. A missing template is
	// reported with a *LoaderError for which IsNotFound is true.
	Load(ctx context.Context, ref string) (*LoadedTemplate, error)
}

// TemplateStore is a loader that can also be written to. The memory,
// filesystem and postgres loaders implement it.
type TemplateStore interface {
	TemplateLoader

	// Save creates or replaces the template with the given identity.
	Save(ctx context.Context, identity, source string) error

	// Delete removes a template. Returns a not-found *LoaderError if the
	// template doesn't exist.
	Delete(ctx context.Context, identity string) error

	// List returns the identities of all stored templates, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// LoaderDriver is a factory for creating loaders.
// Drivers register themselves during init().
type LoaderDriver interface {
	// Open creates a loader from a driver-specific connection string.
	Open(dsn string) (TemplateLoader, error)
}

// Loader driver registry
var (
	loaderDriversMu sync.RWMutex
	loaderDrivers   = make(map[string]LoaderDriver)
)

// RegisterLoaderDriver registers a loader driver by name.
// This is typically called from a driver's init() function.
// Panics if the driver is nil or the name is already registered.
func RegisterLoaderDriver(name string, driver LoaderDriver) {
	loaderDriversMu.Lock()
	defer loaderDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilLoaderDriver)
	}
	if _, exists := loaderDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	loaderDrivers[name] = driver
}

// OpenLoader opens a loader using the named driver.
//
// Example:
//
//	loader, err := stilts.OpenLoader("memory", "")
//	loader, err := stilts.OpenLoader("filesystem", "/srv/templates")
func OpenLoader(driverName, dsn string) (TemplateLoader, error) {
	loaderDriversMu.RLock()
	driver, ok := loaderDrivers[driverName]
	loaderDriversMu.RUnlock()

	if !ok {
		return nil, &LoaderError{Message: ErrMsgLoaderDriverNotFound, Driver: driverName}
	}
	return driver.Open(dsn)
}

// ListLoaderDrivers returns the names of all registered loader drivers, sorted.
func ListLoaderDrivers() []string {
	loaderDriversMu.RLock()
	defer loaderDriversMu.RUnlock()

	names := make([]string, 0, len(loaderDrivers))
	for name := range loaderDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loader error message constants
const (
	ErrMsgNilLoaderDriver         = "loader driver is nil"
	ErrMsgDriverAlreadyRegistered = "loader driver already registered"
	ErrMsgLoaderDriverNotFound    = "loader driver not found"
	ErrMsgLoaderClosed            = "loader is closed"
	ErrMsgTemplateNotFound        = "template not found"
	ErrMsgInvalidReference        = "invalid template reference"
	ErrMsgPathTraversalDetected   = "path traversal detected in template reference"
	ErrMsgInvalidLoaderRoot       = "invalid loader root directory"
	ErrMsgReadTemplate            = "failed to read template file"
	ErrMsgWriteTemplate           = "failed to write template file"
	ErrMsgDeleteTemplate          = "failed to delete template"
	ErrMsgListTemplates           = "failed to list templates"
)

// LoaderError represents a loader failure.
type LoaderError struct {
	Message   string
	Reference string
	Driver    string
	Cause     error
}

// Error implements the error interface.
func (e *LoaderError) Error() string {
	msg := e.Message
	if e.Driver != "" {
		msg += " [" + e.Driver + "]"
	}
	if e.Reference != "" {
		msg += ": " + e.Reference
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *LoaderError) Unwrap() error {
	return e.Cause
}

// NewTemplateNotFoundError creates a loader error for a missing template
func NewTemplateNotFoundError(ref string) error {
	return &LoaderError{Message: ErrMsgTemplateNotFound, Reference: ref}
}

// NewLoaderClosedError creates an error for operations on a closed loader
func NewLoaderClosedError() error {
	return &LoaderError{Message: ErrMsgLoaderClosed}
}

// IsNotFound reports whether err says a template does not exist
func IsNotFound(err error) bool {
	var lerr *LoaderError
	return errors.As(err, &lerr) && lerr.Message == ErrMsgTemplateNotFound
}

// sourceLoader adapts a TemplateLoader to the core's source loader
type sourceLoader struct {
	loader TemplateLoader
}

// LoadSource implements internal.SourceLoader
func (l sourceLoader) LoadSource(ctx context.Context, ref string) (*internal.Source, error) {
	t, err := l.loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	identity := t.Identity
	if identity == "" {
		identity = ref
	}
	return internal.NewSource(identity, t.Source), nil
}
