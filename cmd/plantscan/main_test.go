package main

import (
	"bytes"
	imgcolor "image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/plantscan/internal/pipeline"
)

const testSpec = `pathTemplate: W<wave_number>/GermDay<germ_day><germ_day_color>/Day<plant_age_days>_<date_scanned><device_name>/<plant_qr_code>/<frame_number>.png
fixedValues:
  species: Arabidopsis
  experiment: Drought
accessionSource:
  location: accessions.csv
  sheet: Sheet1
  idColumn: QR Code
  nameColumn: Accession
`

var testScans = []string{
	"W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
	"W1/GermDay1Purple/Day1_06-26-2023FastScanner/ABCDEFGHIJKL/1.png",
}

// setupScanTree writes a specification, accession table and decodable scans
func setupScanTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "plantscan.yaml"), []byte(testSpec), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "accessions.csv"),
		[]byte("QR Code,Accession\nXKGMRWEOIDFM,Col-0\nABCDEFGHIJKL,Ler-1\n"), 0644))
	for _, scan := range testScans {
		path := filepath.Join(root, filepath.FromSlash(scan))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, imaging.Save(imaging.New(16, 16, imgcolor.NRGBA{G: 180, A: 255}), path))
	}
	return root
}

// setupEnv points every store at temp locations
func setupEnv(t *testing.T) (dbPath, blobDir string) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "plantscan.db")
	blobDir = t.TempDir()
	t.Setenv("PR_NUMBER", "")
	t.Setenv("BRANCH_NAME", "")
	t.Setenv("PLANTSCAN_STORE", "sqlite")
	t.Setenv("PLANTSCAN_SQLITE_PATH", dbPath)
	t.Setenv("PLANTSCAN_BLOB_DIR", blobDir)
	t.Setenv("GCS_BUCKET_NAME", "scans")
	t.Setenv("GCS_PREFIX", "cylinder")
	t.Setenv("CONCURRENT_JOBS", "")
	return dbPath, blobDir
}

// captureUI redirects colored terminal output into the returned buffer
func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := color.Output, color.NoColor
	color.Output, color.NoColor = &buf, true
	t.Cleanup(func() { color.Output, color.NoColor = prevOut, prevNoColor })
	return &buf
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	root := setupScanTree(t)

	out, err := execute(t, "validate", filepath.Join(root, "W1"))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "plantscan.yaml"))
	assert.Contains(t, out, "Template fields:   [wave_number germ_day germ_day_color plant_age_days date_scanned device_name plant_qr_code frame_number]")
	assert.Contains(t, out, "Fixed fields:      [experiment species]")
	assert.Contains(t, out, "Accessions:        2\n")
}

func TestValidateCmd_NoSpecification(t *testing.T) {
	_, err := execute(t, "validate", t.TempDir())
	assert.Error(t, err)
}

func TestExtractCmd(t *testing.T) {
	root := setupScanTree(t)

	out, err := execute(t, "extract", root, "W1")
	require.NoError(t, err)
	assert.Contains(t, out, "- path: "+testScans[1]+"\n")
	assert.Contains(t, out, "accession_name: Ler-1")
	assert.Contains(t, out, "accession_name: Col-0")
	assert.Contains(t, out, "germ_day_color: Purple")
	// sorted: ABCDEFGHIJKL before XKGMRWEOIDFM
	assert.Less(t, strings.Index(out, "Ler-1"), strings.Index(out, "Col-0"))
}

func TestExtractCmd_WrongArgs(t *testing.T) {
	_, err := execute(t, "extract", "only-root")
	assert.Error(t, err)
}

func TestSummarizeCmd(t *testing.T) {
	root := setupScanTree(t)

	out, err := execute(t, "summarize", root, "W1")
	require.NoError(t, err)
	assert.Contains(t, out, "Images:            2\n")
	assert.Contains(t, out, "Accessions:        Col-0, Ler-1\n")
}

func TestUploadCmd_DryRun(t *testing.T) {
	root := setupScanTree(t)
	_, blobDir := setupEnv(t)

	_, err := execute(t, "upload", root, "W1", "--dry-run",
		"--scientist-name", "Ada Lovelace",
		"--scientist-email", "ada@example.org",
		"--uploaded-by", "ada",
		"--concurrency", "2",
		"--quality", "speed",
	)
	require.NoError(t, err)

	var objects []string
	require.NoError(t, filepath.WalkDir(blobDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(blobDir, path)
		objects = append(objects, filepath.ToSlash(rel))

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = png.Decode(f)
		return err
	}))
	require.Len(t, objects, 2)
	for _, key := range objects {
		assert.True(t, strings.HasPrefix(key, "scans/cylinder/"), key)
	}

	out, err := execute(t, "sessions", "--user", "ada", "--store", "sqlite")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "completed")
	assert.Contains(t, lines[1], root)
}

func TestUploadCmd_MissingAttributionFailsItems(t *testing.T) {
	root := setupScanTree(t)
	setupEnv(t)

	uiOut := captureUI(t)

	_, err := execute(t, "upload", root, "W1", "--dry-run", "--uploaded-by", "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 scans failed")

	out := uiOut.String()
	assert.Contains(t, out, "Session ")
	for _, scan := range testScans {
		assert.Contains(t, out, "Error: "+scan+": registration failed: record is missing required fields: scientist_name, scientist_email")
	}
}

func TestRootCmd_MalformedDotEnvWarns(t *testing.T) {
	root := setupScanTree(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GCS_PREFIX=\"unterminated\n"), 0644))
	t.Chdir(dir)
	uiOut := captureUI(t)

	_, err := execute(t, "validate", root)
	require.NoError(t, err)
	assert.Contains(t, uiOut.String(), "⚠ failed to load .env")
}

func TestUploadCmd_InvalidQuality(t *testing.T) {
	root := setupScanTree(t)
	setupEnv(t)

	_, err := execute(t, "upload", root, "W1", "--dry-run", "--quality", "lossy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown quality")
}

func TestUploadCmd_ExtractionErrorStopsBeforeUpload(t *testing.T) {
	root := setupScanTree(t)
	_, blobDir := setupEnv(t)
	stray := filepath.Join(root, "W1", "GermDay1Purple", "stray.png")
	require.NoError(t, imaging.Save(imaging.New(4, 4, imgcolor.NRGBA{A: 255}), stray))

	_, err := execute(t, "upload", root, "W1", "--dry-run",
		"--scientist-name", "Ada", "--scientist-email", "ada@example.org", "--uploaded-by", "ada")
	require.Error(t, err)

	entries, err := os.ReadDir(blobDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    pipeline.Quality
		wantErr bool
	}{
		{"best", pipeline.QualityBest, false},
		{"BEST", pipeline.QualityBest, false},
		{"default", pipeline.QualityDefault, false},
		{"speed", pipeline.QualitySpeed, false},
		{"none", pipeline.QualityNone, false},
		{"", 0, true},
		{"90", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseQuality(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
