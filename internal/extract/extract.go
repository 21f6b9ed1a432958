// Package extract derives scan metadata from directory paths using the nearest
// format specification, its accession spreadsheet, and its path template.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rumor-ml/commons.systems/plantscan/internal/accession"
	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
	"github.com/rumor-ml/commons.systems/plantscan/internal/formatspec"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pathtemplate"
)

// Plan is everything needed to turn a path into a record, built once per run
// and read-only afterwards.
type Plan struct {
	Spec       *formatspec.Spec
	Matcher    *pathtemplate.Matcher
	Accessions accession.Map
}

// Batch is the index-aligned output of an extraction
type Batch struct {
	Dir     string // directory of the governing format specification
	Paths   []string
	Records []fields.Record
}

// LocalPaths returns the absolute path of every scan, aligned with Records
func (b *Batch) LocalPaths() []string {
	out := make([]string, len(b.Paths))
	for i, p := range b.Paths {
		out[i] = filepath.Join(b.Dir, filepath.FromSlash(p))
	}
	return out
}

// Len returns the number of scans in the batch
func (b *Batch) Len() int {
	return len(b.Paths)
}

// Prepare locates and loads the format specification governing dir,
// resolves its accession source and compiles its template.
func Prepare(dir string) (*Plan, error) {
	spec, err := formatspec.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}

	src := spec.AccessionSource
	accessions, err := accession.Resolve(spec.AccessionPath(), src.Sheet, src.IDColumn, src.NameColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load accession source for %s: %w", spec.Path, err)
	}

	matcher, err := pathtemplate.Compile(spec.PathTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid path template in %s: %w", spec.Path, err)
	}

	return &Plan{Spec: spec, Matcher: matcher, Accessions: accessions}, nil
}

// Extract builds a record for every scan under root/subpath.
// Any unmatched path, undecodable value or unresolved QR code fails the
// whole run and no partial batch is returned.
func Extract(ctx context.Context, root, subpath string) (*Batch, error) {
	target := subpath
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, subpath)
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan directory %s is not a directory", target)
	}

	plan, err := Prepare(target)
	if err != nil {
		return nil, err
	}

	files, err := collect(ctx, NewExtensionDiscoverer(WithRelativeTo(plan.Spec.Dir)), target)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		Dir:     plan.Spec.Dir,
		Paths:   make([]string, 0, len(files)),
		Records: make([]fields.Record, 0, len(files)),
	}
	for _, rel := range files {
		record, err := plan.Record(rel)
		if err != nil {
			return nil, err
		}
		batch.Paths = append(batch.Paths, rel)
		batch.Records = append(batch.Records, record)
	}
	return batch, nil
}

// Record derives the metadata for one path relative to the specification directory.
// Precedence: path fields, then fixed values. The accession is resolved from the
// final plant QR code unless fixed values name the accession directly.
func (p *Plan) Record(relPath string) (fields.Record, error) {
	captures, ok := p.Matcher.Match(relPath)
	if !ok {
		return fields.Record{}, &UnmatchedPathError{Path: relPath, Template: p.Matcher.Template()}
	}

	var fromPath fields.Record
	for _, name := range p.Matcher.Fields() {
		raw := captures[name]
		if err := fromPath.Set(name, raw); err != nil {
			return fields.Record{}, &DecodeError{Path: relPath, Field: name, Value: raw, Err: err}
		}
	}

	record := fields.Merge(fromPath, p.Spec.Fixed)
	if qr := record.PlantQRCode; qr != "" {
		name, found := p.Accessions.Lookup(qr)
		if !found {
			return fields.Record{}, &UnresolvedAccessionError{
				Path:   relPath,
				QRCode: qr,
				Source: p.Spec.AccessionPath(),
			}
		}
		if p.Spec.Fixed.AccessionName == "" {
			record.AccessionName = name
		}
	}
	return record, nil
}

// collect drains the discoverer and returns sorted relative paths.
// The first discovery error aborts the run.
func collect(ctx context.Context, d *ExtensionDiscoverer, dir string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	filesCh, errCh := d.Discover(ctx, dir)

	var paths []string
	for filesCh != nil || errCh != nil {
		select {
		case f, ok := <-filesCh:
			if !ok {
				filesCh = nil
				continue
			}
			paths = append(paths, f.RelativePath)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return nil, fmt.Errorf("failed to list scans under %s: %w", dir, err)
		}
	}

	sort.Strings(paths)
	return paths, nil
}
