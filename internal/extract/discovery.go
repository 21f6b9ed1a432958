package extract

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// ScanExtensions are the image extensions treated as scans
var ScanExtensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}

// FileInfo describes one discovered scan file
type FileInfo struct {
	Path         string
	RelativePath string // slash-separated, relative to the discoverer's base directory
	Size         int64
	ModTime      time.Time
}

// DiscoveryOption configures ExtensionDiscoverer
type DiscoveryOption func(*ExtensionDiscoverer)

// ExtensionDiscoverer walks a directory tree and reports files with matching extensions
type ExtensionDiscoverer struct {
	extensions []string                              // Extensions to match (lowercase, with dot)
	skipHidden bool                                  // Skip files/dirs starting with "."
	bufferSize int                                   // Channel buffer size (default 100)
	relativeTo string                                // Base for RelativePath (default: walk root)
	fileFilter func(path string, d fs.DirEntry) bool // Optional additional filter
}

// WithExtensions configures the file extensions to discover
func WithExtensions(exts ...string) DiscoveryOption {
	return func(d *ExtensionDiscoverer) {
		normalized := make([]string, len(exts))
		for i, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			normalized[i] = strings.ToLower(ext)
		}
		d.extensions = normalized
	}
}

// WithSkipHidden configures whether to skip hidden files and directories
func WithSkipHidden(skip bool) DiscoveryOption {
	return func(d *ExtensionDiscoverer) {
		d.skipHidden = skip
	}
}

// WithBufferSize configures the channel buffer size
func WithBufferSize(size int) DiscoveryOption {
	return func(d *ExtensionDiscoverer) {
		d.bufferSize = size
	}
}

// WithRelativeTo computes RelativePath against dir instead of the walk root
func WithRelativeTo(dir string) DiscoveryOption {
	return func(d *ExtensionDiscoverer) {
		d.relativeTo = dir
	}
}

// WithFileFilter configures an additional custom filter function
func WithFileFilter(filter func(path string, d fs.DirEntry) bool) DiscoveryOption {
	return func(d *ExtensionDiscoverer) {
		d.fileFilter = filter
	}
}

// NewExtensionDiscoverer creates a new ExtensionDiscoverer with the given options
func NewExtensionDiscoverer(opts ...DiscoveryOption) *ExtensionDiscoverer {
	d := &ExtensionDiscoverer{
		extensions: ScanExtensions,
		skipHidden: true,
		bufferSize: 100,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Discover walks rootDir and sends a FileInfo for each matching file.
// Both channels are closed when discovery completes.
func (d *ExtensionDiscoverer) Discover(ctx context.Context, rootDir string) (<-chan FileInfo, <-chan error) {
	fileChan := make(chan FileInfo, d.bufferSize)
	errChan := make(chan error, d.bufferSize)

	go func() {
		defer close(fileChan)
		defer close(errChan)

		rootDir = filepath.Clean(rootDir)
		base := rootDir
		if d.relativeTo != "" {
			base = filepath.Clean(d.relativeTo)
		}

		err := filepath.WalkDir(rootDir, func(path string, entry fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return &DiscoveryError{Path: path, Err: ctx.Err()}
			default:
			}

			if err != nil {
				errChan <- &DiscoveryError{Path: path, Err: err}
				if entry != nil && entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// The walk root itself is never skipped, even when its name is hidden
			if d.skipHidden && path != rootDir && isHidden(entry.Name()) {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if entry.IsDir() {
				return nil
			}

			if !d.matchesExtension(path) {
				return nil
			}

			if d.fileFilter != nil && !d.fileFilter(path, entry) {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				errChan <- &DiscoveryError{Path: path, Err: err}
				return nil
			}

			relPath, err := filepath.Rel(base, path)
			if err != nil {
				errChan <- &DiscoveryError{Path: path, Err: err}
				return nil
			}

			fileInfo := FileInfo{
				Path:         path,
				RelativePath: filepath.ToSlash(relPath),
				Size:         info.Size(),
				ModTime:      info.ModTime(),
			}

			select {
			case fileChan <- fileInfo:
			case <-ctx.Done():
				return &DiscoveryError{Path: path, Err: ctx.Err()}
			}

			return nil
		})

		if err != nil {
			if _, ok := err.(*DiscoveryError); !ok {
				err = &DiscoveryError{Path: rootDir, Err: err}
			}
			errChan <- err
		}
	}()

	return fileChan, errChan
}

func (d *ExtensionDiscoverer) matchesExtension(path string) bool {
	if len(d.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range d.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// isHidden checks if a file or directory name is hidden (starts with ".")
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
