package extract

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, files <-chan FileInfo, errs <-chan error) ([]string, []error) {
	t.Helper()
	var paths []string
	var errList []error
	for files != nil || errs != nil {
		select {
		case f, ok := <-files:
			if !ok {
				files = nil
				continue
			}
			paths = append(paths, f.RelativePath)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			errList = append(errList, err)
		}
	}
	sort.Strings(paths)
	return paths, errList
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
}

func TestExtensionDiscoverer_Defaults(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a/1.png", "a/2.JPG", "b/3.tiff", "b/readme.md", ".hidden/4.png", "a/.5.png")

	fileCh, errCh := NewExtensionDiscoverer().Discover(context.Background(), root)
	paths, errs := drain(t, fileCh, errCh)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"a/1.png", "a/2.JPG", "b/3.tiff"}, paths)
}

func TestExtensionDiscoverer_Options(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub/1.png", "sub/2.tif", ".hidden/3.png")

	d := NewExtensionDiscoverer(
		WithExtensions("png"),
		WithSkipHidden(false),
		WithRelativeTo(filepath.Dir(root)),
		WithBufferSize(1),
	)
	fileCh, errCh := d.Discover(context.Background(), root)
	paths, errs := drain(t, fileCh, errCh)
	assert.Empty(t, errs)

	base := filepath.Base(root)
	assert.Equal(t, []string{base + "/.hidden/3.png", base + "/sub/1.png"}, paths)
}

func TestExtensionDiscoverer_FileFilter(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "keep.png", "drop.png")

	d := NewExtensionDiscoverer(WithFileFilter(func(path string, _ fs.DirEntry) bool {
		return !strings.HasPrefix(filepath.Base(path), "drop")
	}))
	fileCh, errCh := d.Discover(context.Background(), root)
	paths, _ := drain(t, fileCh, errCh)
	assert.Equal(t, []string{"keep.png"}, paths)
}

func TestExtensionDiscoverer_HiddenRootIsWalked(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".scans")
	touch(t, root, "1.png")

	fileCh, errCh := NewExtensionDiscoverer().Discover(context.Background(), root)
	paths, errs := drain(t, fileCh, errCh)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"1.png"}, paths)
}

func TestExtensionDiscoverer_MissingRoot(t *testing.T) {
	fileCh, errCh := NewExtensionDiscoverer().Discover(context.Background(), filepath.Join(t.TempDir(), "nope"))
	_, errs := drain(t, fileCh, errCh)
	require.NotEmpty(t, errs)

	var discErr *DiscoveryError
	assert.ErrorAs(t, errs[0], &discErr)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestExtensionDiscoverer_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "1.png", "2.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fileCh, errCh := NewExtensionDiscoverer().Discover(ctx, root)
	_, errs := drain(t, fileCh, errCh)
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0], context.Canceled)
}
