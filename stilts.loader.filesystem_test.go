package stilts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemLoader_NewFilesystemLoader(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		dir := t.TempDir()
		loader, err := NewFilesystemLoader(dir)
		require.NoError(t, err)
		require.NotNil(t, loader)
		assert.True(t, filepath.IsAbs(loader.Root()))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewFilesystemLoader("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidLoaderRoot)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewFilesystemLoader(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidLoaderRoot)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		_, err := NewFilesystemLoader(file)
		require.Error(t, err)
	})

	t.Run("via driver", func(t *testing.T) {
		loader, err := OpenLoader(LoaderDriverFilesystem, t.TempDir())
		require.NoError(t, err)
		assert.IsType(t, &FilesystemLoader{}, loader)
	})
}

func TestFilesystemLoader_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loader, err := NewFilesystemLoader(dir)
	require.NoError(t, err)

	t.Run("save creates parent directories", func(t *testing.T) {
		require.NoError(t, loader.Save(ctx, "layouts/page.html", "page"))
		assert.FileExists(t, filepath.Join(dir, "layouts", "page.html"))
	})

	t.Run("load returns cleaned identity", func(t *testing.T) {
		tmpl, err := loader.Load(ctx, "./layouts//page.html")
		require.NoError(t, err)
		assert.Equal(t, "layouts/page.html", tmpl.Identity)
		assert.Equal(t, "page", tmpl.Source)
	})

	t.Run("missing template", func(t *testing.T) {
		_, err := loader.Load(ctx, "nope.html")
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects unsafe references", func(t *testing.T) {
		for _, ref := range []string{"../outside.html", "/etc/passwd", "a/../../b", "bad:name.html", "what?.html"} {
			_, err := loader.Load(ctx, ref)
			require.Error(t, err, "should reject %q", ref)
			assert.False(t, IsNotFound(err), ref)

			assert.Error(t, loader.Save(ctx, ref, "x"), "should reject %q", ref)
		}
	})
}

func TestFilesystemLoader_ListDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loader, err := NewFilesystemLoader(dir)
	require.NoError(t, err)

	require.NoError(t, loader.Save(ctx, "base.html", "base"))
	require.NoError(t, loader.Save(ctx, "partials/row.html", "row"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("x"), 0o644))

	names, err := loader.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"base.html", "partials/row.html"}, names)

	require.NoError(t, loader.Delete(ctx, "base.html"))
	assert.NoFileExists(t, filepath.Join(dir, "base.html"))
	assert.True(t, IsNotFound(loader.Delete(ctx, "base.html")))

	require.NoError(t, loader.Close())
	_, err = loader.List(ctx)
	var lerr *LoaderError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrMsgLoaderClosed, lerr.Message)
}

func TestFilesystemLoader_EngineIntegration(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"base.html":         "<h1>{% block title %}Base{% end %}</h1>",
		"pages/home.html":   "{% extends \"base.html\" %}{% block title %}Home{% end %}",
		"pages/broken.html": "{% extends \"../base.html\" %}",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	loader, err := NewFilesystemLoader(dir)
	require.NoError(t, err)
	engine, err := New(WithLoader(loader))
	require.NoError(t, err)
	defer engine.Close()

	plan, err := engine.Resolve(context.Background(), "pages/home.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Home</h1>", plan.Literal())
	require.Len(t, plan.Templates, 2)
	assert.Equal(t, "base.html", plan.Templates[0].Identity)
	assert.Equal(t, "pages/home.html", plan.Templates[1].Identity)

	_, err = engine.Resolve(context.Background(), "pages/broken.html")
	require.Error(t, err)
	assert.Equal(t, ErrCodeLoad, ErrorCode(err))
}
