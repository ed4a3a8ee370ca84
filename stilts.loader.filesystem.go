package stilts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FilesystemLoader is a file-based TemplateStore. References are
// slash-separated paths relative to the root directory; a template's
// identity is its cleaned relative path.
//
// Directory structure:
//
//	{root}/
//	  base.html
//	  layouts/
//	    page.html
//	  partials/
//	    row.html
type FilesystemLoader struct {
	root   string
	mu     sync.RWMutex
	closed bool
}

// FilesystemLoaderDriver is the driver for creating FilesystemLoader instances.
type FilesystemLoaderDriver struct{}

func init() {
	RegisterLoaderDriver(LoaderDriverFilesystem, &FilesystemLoaderDriver{})
}

// Open creates a new FilesystemLoader instance.
// The connection string is the root directory path.
func (d *FilesystemLoaderDriver) Open(dsn string) (TemplateLoader, error) {
	return NewFilesystemLoader(dsn)
}

// NewFilesystemLoader creates a loader rooted at dir. The directory must
// exist.
func NewFilesystemLoader(dir string) (*FilesystemLoader, error) {
	if dir == "" {
		return nil, &LoaderError{Message: ErrMsgInvalidLoaderRoot, Driver: LoaderDriverFilesystem}
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, &LoaderError{Message: ErrMsgInvalidLoaderRoot, Driver: LoaderDriverFilesystem, Reference: dir, Cause: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &LoaderError{Message: ErrMsgInvalidLoaderRoot, Driver: LoaderDriverFilesystem, Reference: dir, Cause: err}
	}
	if !info.IsDir() {
		return nil, &LoaderError{Message: ErrMsgInvalidLoaderRoot, Driver: LoaderDriverFilesystem, Reference: dir}
	}

	return &FilesystemLoader{root: root}, nil
}

// Root returns the absolute root directory
func (l *FilesystemLoader) Root() string {
	return l.root
}

// Load reads a template file.
func (l *FilesystemLoader) Load(ctx context.Context, ref string) (*LoadedTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identity, err := validateReferenceForFilesystem(ref)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, NewLoaderClosedError()
	}

	data, err := os.ReadFile(l.path(identity))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewTemplateNotFoundError(ref)
		}
		return nil, &LoaderError{Message: ErrMsgReadTemplate, Driver: LoaderDriverFilesystem, Reference: ref, Cause: err}
	}
	return &LoadedTemplate{Identity: identity, Source: string(data)}, nil
}

// Save writes a template file, creating parent directories as needed.
func (l *FilesystemLoader) Save(ctx context.Context, identity, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := validateReferenceForFilesystem(identity)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return NewLoaderClosedError()
	}

	target := l.path(normalized)
	if err := os.MkdirAll(filepath.Dir(target), FilesystemDirPermissions); err != nil {
		return &LoaderError{Message: ErrMsgWriteTemplate, Driver: LoaderDriverFilesystem, Reference: identity, Cause: err}
	}
	if err := os.WriteFile(target, []byte(source), FilesystemFilePermissions); err != nil {
		return &LoaderError{Message: ErrMsgWriteTemplate, Driver: LoaderDriverFilesystem, Reference: identity, Cause: err}
	}
	return nil
}

// Delete removes a template file.
func (l *FilesystemLoader) Delete(ctx context.Context, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := validateReferenceForFilesystem(identity)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return NewLoaderClosedError()
	}

	if err := os.Remove(l.path(normalized)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewTemplateNotFoundError(identity)
		}
		return &LoaderError{Message: ErrMsgDeleteTemplate, Driver: LoaderDriverFilesystem, Reference: identity, Cause: err}
	}
	return nil
}

// List walks the root directory and returns every regular file's identity,
// sorted. Hidden files and directories are skipped.
func (l *FilesystemLoader) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, NewLoaderClosedError()
	}

	var names []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p != l.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &LoaderError{Message: ErrMsgListTemplates, Driver: LoaderDriverFilesystem, Cause: err}
	}
	sort.Strings(names)
	return names, nil
}

// Close marks the loader as closed.
func (l *FilesystemLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	return nil
}

// path maps a validated identity to a file path below the root
func (l *FilesystemLoader) path(identity string) string {
	return filepath.Join(l.root, filepath.FromSlash(identity))
}

// validateReferenceForFilesystem normalizes a reference and rejects
// characters that are unsafe in file names.
func validateReferenceForFilesystem(ref string) (string, error) {
	identity, err := normalizeReference(ref)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(identity, FilesystemInvalidChars) || filepath.IsAbs(identity) {
		return "", &LoaderError{Message: ErrMsgInvalidReference, Reference: ref}
	}
	return identity, nil
}

// Ensure FilesystemLoader implements TemplateStore
var _ TemplateStore = (*FilesystemLoader)(nil)
