package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/plantscan/internal/formatspec"
)

const cylinderSpec = `pathTemplate: Images/W<wave_number>/GermDay<germ_day><germ_day_color>/Day<plant_age_days>_<date_scanned><device_name>/<plant_qr_code>/<frame_number>.png
fixedValues:
  species: Arabidopsis
  experiment: Drought
accessionSource:
  location: accessions.csv
  sheet: Sheet1
  idColumn: QR Code
  nameColumn: Accession
`

// setupTree writes a specification, an accession table and the given scan files under a temp root
func setupTree(t *testing.T, spec string, accessions string, scans ...string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "plantscan.yaml"), []byte(spec), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "accessions.csv"), []byte(accessions), 0644))
	for _, scan := range scans {
		path := filepath.Join(root, filepath.FromSlash(scan))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("png"), 0644))
	}
	return root
}

const accessionTable = "QR Code,Accession\nXKGMRWEOIDFM,Col-0\nABCDEFGHIJKL,Ler-1\n"

func TestExtract_CylinderScenario(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable,
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/2.png",
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
		"Images/W1/GermDay1Purple/Day1_06-26-23FastScanner/ABCDEFGHIJKL/1.png",
		"Images/notes.txt",
	)

	batch, err := Extract(context.Background(), root, "Images")
	require.NoError(t, err)
	require.Equal(t, 3, batch.Len())
	require.Len(t, batch.Records, 3)

	// sorted lexicographically
	assert.Equal(t, []string{
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/2.png",
		"Images/W1/GermDay1Purple/Day1_06-26-23FastScanner/ABCDEFGHIJKL/1.png",
	}, batch.Paths)

	r := batch.Records[0]
	require.NotNil(t, r.WaveNumber)
	require.NotNil(t, r.GermDay)
	require.NotNil(t, r.PlantAgeDays)
	require.NotNil(t, r.FrameNumber)
	require.NotNil(t, r.DateScanned)
	assert.Equal(t, 1, *r.WaveNumber)
	assert.Equal(t, 1, *r.GermDay)
	assert.Equal(t, "Purple", r.GermDayColor)
	assert.Equal(t, 1, *r.PlantAgeDays)
	assert.Equal(t, time.Date(2023, 6, 26, 0, 0, 0, 0, time.UTC), *r.DateScanned)
	assert.Equal(t, "FastScanner", r.DeviceName)
	assert.Equal(t, "XKGMRWEOIDFM", r.PlantQRCode)
	assert.Equal(t, 1, *r.FrameNumber)
	assert.Equal(t, "Col-0", r.AccessionName)
	assert.Equal(t, "Arabidopsis", r.Species)
	assert.Equal(t, "Drought", r.Experiment)

	assert.Equal(t, 2, *batch.Records[1].FrameNumber)
	assert.Equal(t, "Ler-1", batch.Records[2].AccessionName)
	assert.Equal(t, *r.DateScanned, *batch.Records[2].DateScanned)

	local := batch.LocalPaths()
	assert.Equal(t, filepath.Join(batch.Dir, "Images", "W1", "GermDay1Purple", "Day1_06-26-2023FastScanner", "XKGMRWEOIDFM", "1.png"), local[0])
}

func TestExtract_SubdirectoryPathsRelativeToSpec(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable,
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
		"Images/W2/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
	)

	batch, err := Extract(context.Background(), root, "Images/W2")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Images/W2/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
	}, batch.Paths)

	// same result regardless of working directory
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	again, err := Extract(context.Background(), root, filepath.Join("Images", "W2"))
	require.NoError(t, err)
	assert.Equal(t, batch.Paths, again.Paths)
	assert.Equal(t, batch.Records, again.Records)
}

func TestExtract_UnmatchedPathFailsBatch(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable,
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
		"Images/W1/stray.png",
	)

	batch, err := Extract(context.Background(), root, "Images")
	assert.Nil(t, batch)

	var unmatched *UnmatchedPathError
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, "Images/W1/stray.png", unmatched.Path)
	assert.Contains(t, err.Error(), "Images/W1/stray.png")
}

func TestExtract_UnresolvedAccessionFailsBatch(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable,
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/XKGMRWEOIDFM/1.png",
		"Images/W1/GermDay1Purple/Day1_06-26-2023FastScanner/UNKNOWNPLANT/1.png",
	)

	batch, err := Extract(context.Background(), root, "Images")
	assert.Nil(t, batch)

	var unresolved *UnresolvedAccessionError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "UNKNOWNPLANT", unresolved.QRCode)
	assert.Contains(t, err.Error(), "UNKNOWNPLANT")
}

func TestExtract_InvalidDateFailsBatch(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable,
		"Images/W1/GermDay1Purple/Day1_02-30-2023FastScanner/XKGMRWEOIDFM/1.png",
	)

	_, err := Extract(context.Background(), root, "Images")
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "date_scanned", decodeErr.Field)
	assert.Equal(t, "02-30-2023", decodeErr.Value)
}

func TestExtract_FixedValuesOverridePath(t *testing.T) {
	spec := `pathTemplate: W<wave_number>/<plant_qr_code>/<frame_number>.png
fixedValues:
  wave_number: 7
  accession_name: Override
accessionSource:
  location: accessions.csv
  sheet: Sheet1
  idColumn: QR Code
  nameColumn: Accession
`
	root := setupTree(t, spec, accessionTable, "W1/XKGMRWEOIDFM/3.png")

	batch, err := Extract(context.Background(), root, ".")
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, 7, *batch.Records[0].WaveNumber)
	assert.Equal(t, "Override", batch.Records[0].AccessionName)
	assert.Equal(t, 3, *batch.Records[0].FrameNumber)
}

func TestExtract_FixedQRCodeResolvesItsOwnAccession(t *testing.T) {
	spec := `pathTemplate: W<wave_number>/<plant_qr_code>/<frame_number>.png
fixedValues:
  plant_qr_code: ABCDEFGHIJKL
accessionSource:
  location: accessions.csv
  sheet: Sheet1
  idColumn: QR Code
  nameColumn: Accession
`
	root := setupTree(t, spec, accessionTable, "W1/XKGMRWEOIDFM/3.png")

	batch, err := Extract(context.Background(), root, ".")
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "ABCDEFGHIJKL", batch.Records[0].PlantQRCode)
	assert.Equal(t, "Ler-1", batch.Records[0].AccessionName)
}

func TestExtract_FixedQRCodeMustResolve(t *testing.T) {
	spec := `pathTemplate: W<wave_number>/<plant_qr_code>/<frame_number>.png
fixedValues:
  plant_qr_code: NOTINTHESHEET
accessionSource:
  location: accessions.csv
  sheet: Sheet1
  idColumn: QR Code
  nameColumn: Accession
`
	root := setupTree(t, spec, accessionTable, "W1/XKGMRWEOIDFM/3.png")

	_, err := Extract(context.Background(), root, ".")
	var unresolved *UnresolvedAccessionError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "NOTINTHESHEET", unresolved.QRCode)
}

func TestExtract_SpecNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Extract(context.Background(), dir, ".")
	assert.ErrorIs(t, err, formatspec.ErrNotFound)
}

func TestExtract_MissingDirectory(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable)
	_, err := Extract(context.Background(), root, "Nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtract_EmptyTree(t *testing.T) {
	root := setupTree(t, cylinderSpec, accessionTable)
	batch, err := Extract(context.Background(), root, ".")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
}

func TestPrepare_MissingAccessionColumn(t *testing.T) {
	root := setupTree(t, cylinderSpec, "QR Code,Line\nA,B\n")
	_, err := Prepare(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Accession"`)
}
