package stilts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDrivers_Registered(t *testing.T) {
	drivers := ListLoaderDrivers()
	assert.Contains(t, drivers, LoaderDriverMemory)
	assert.Contains(t, drivers, LoaderDriverFilesystem)
	assert.Contains(t, drivers, LoaderDriverPostgres)
}

func TestOpenLoader(t *testing.T) {
	loader, err := OpenLoader(LoaderDriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryLoader{}, loader)

	_, err = OpenLoader("nosuch", "")
	require.Error(t, err)
	var lerr *LoaderError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrMsgLoaderDriverNotFound, lerr.Message)
	assert.Equal(t, "nosuch", lerr.Driver)
}

func TestRegisterLoaderDriver_Panics(t *testing.T) {
	assert.Panics(t, func() { RegisterLoaderDriver("nil-driver", nil) })
	assert.Panics(t, func() { RegisterLoaderDriver(LoaderDriverMemory, &MemoryLoaderDriver{}) })
}

func TestLoaderError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &LoaderError{Message: ErrMsgReadTemplate, Driver: LoaderDriverFilesystem, Reference: "a.html", Cause: cause}
	assert.Equal(t, "failed to read template file [filesystem]: a.html: permission denied", err.Error())
	assert.True(t, errors.Is(err, cause))

	assert.True(t, IsNotFound(NewTemplateNotFoundError("x")))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsNotFound(nil))
}

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr string
	}{
		{"base.html", "base.html", ""},
		{"./base.html", "base.html", ""},
		{"layouts//page.html", "layouts/page.html", ""},
		{"layouts\\page.html", "layouts/page.html", ""},
		{"a/./b.html", "a/b.html", ""},
		{"", "", ErrMsgInvalidReference},
		{"  ", "", ErrMsgInvalidReference},
		{".", "", ErrMsgInvalidReference},
		{"../secret", "", ErrMsgPathTraversalDetected},
		{"a/../../b", "", ErrMsgPathTraversalDetected},
		{"/etc/passwd", "", ErrMsgPathTraversalDetected},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := normalizeReference(tt.ref)
			if tt.wantErr != "" {
				var lerr *LoaderError
				require.True(t, errors.As(err, &lerr))
				assert.Equal(t, tt.wantErr, lerr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryLoader(t *testing.T) {
	ctx := context.Background()
	loader := NewMemoryLoader()

	require.NoError(t, loader.Add("./pages/home.html", "home"))

	t.Run("load normalizes reference", func(t *testing.T) {
		tmpl, err := loader.Load(ctx, "pages//home.html")
		require.NoError(t, err)
		assert.Equal(t, "pages/home.html", tmpl.Identity)
		assert.Equal(t, "home", tmpl.Source)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := loader.Load(ctx, "nope.html")
		assert.True(t, IsNotFound(err))
	})

	t.Run("save replaces", func(t *testing.T) {
		require.NoError(t, loader.Save(ctx, "pages/home.html", "home v2"))
		tmpl, err := loader.Load(ctx, "pages/home.html")
		require.NoError(t, err)
		assert.Equal(t, "home v2", tmpl.Source)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, loader.Add("b.html", "b"))
		names, err := loader.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.html", "pages/home.html"}, names)

		require.NoError(t, loader.Delete(ctx, "b.html"))
		assert.True(t, IsNotFound(loader.Delete(ctx, "b.html")))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := loader.Load(cctx, "pages/home.html")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("closed", func(t *testing.T) {
		require.NoError(t, loader.Close())
		_, err := loader.Load(ctx, "pages/home.html")
		var lerr *LoaderError
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, ErrMsgLoaderClosed, lerr.Message)
		assert.Error(t, loader.Save(ctx, "x", "y"))
	})
}

func TestMemoryLoaderFrom_PanicsOnInvalidIdentity(t *testing.T) {
	assert.Panics(t, func() {
		NewMemoryLoaderFrom(map[string]string{"../x": "y"})
	})
}

func TestSourceLoaderAdapter(t *testing.T) {
	adapter := sourceLoader{loader: NewMemoryLoaderFrom(map[string]string{"a/b.html": "text"})}

	src, err := adapter.LoadSource(context.Background(), "./a/b.html")
	require.NoError(t, err)
	assert.Equal(t, "a/b.html", src.Name)
	assert.Equal(t, "text", src.Text)

	_, err = adapter.LoadSource(context.Background(), "c.html")
	assert.True(t, IsNotFound(err))
}
