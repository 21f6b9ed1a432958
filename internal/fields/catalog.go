// Package fields defines the closed catalog of metadata fields carried by a scan,
// their decoding rules, and the Record type built from them.
package fields

import "sort"

// Kind is the scalar type a field decodes to
type Kind string

const (
	KindIdentifier Kind = "identifier"
	KindInt        Kind = "int"
	KindDate       Kind = "date"
)

// Field names recognized in path templates and fixed values
const (
	Species        = "species"
	Experiment     = "experiment"
	WaveNumber     = "wave_number"
	GermDay        = "germ_day"
	GermDayColor   = "germ_day_color"
	PlantAgeDays   = "plant_age_days"
	DateScanned    = "date_scanned"
	DeviceName     = "device_name"
	PlantQRCode    = "plant_qr_code"
	FrameNumber    = "frame_number"
	AccessionName  = "accession_name"
	ScientistName  = "scientist_name"
	ScientistEmail = "scientist_email"
	UploadedBy     = "uploaded_by"
)

// Regexp fragments for each kind. None of them contain capture groups.
const (
	identifierPattern = `[A-Za-z0-9_-]+`
	intPattern        = `[0-9]+`
	datePattern       = `(?:[0-9]{1,2}-[0-9]{1,2}-(?:[0-9]{4}|[0-9]{2})|[0-9]{1,2}\.[0-9]{1,2}\.(?:[0-9]{4}|[0-9]{2}))`
)

// Field describes one catalog entry
type Field struct {
	Name string
	Kind Kind
	// Extractable fields may appear as placeholders in a path template.
	// The rest arrive only through fixed values or upload-time parameters.
	Extractable bool
}

// Pattern returns the regexp fragment matching a raw value of this field
func (f Field) Pattern() string {
	switch f.Kind {
	case KindInt:
		return intPattern
	case KindDate:
		return datePattern
	default:
		return identifierPattern
	}
}

var catalog = map[string]Field{
	Species:        {Name: Species, Kind: KindIdentifier, Extractable: true},
	Experiment:     {Name: Experiment, Kind: KindIdentifier, Extractable: true},
	WaveNumber:     {Name: WaveNumber, Kind: KindInt, Extractable: true},
	GermDay:        {Name: GermDay, Kind: KindInt, Extractable: true},
	GermDayColor:   {Name: GermDayColor, Kind: KindIdentifier, Extractable: true},
	PlantAgeDays:   {Name: PlantAgeDays, Kind: KindInt, Extractable: true},
	DateScanned:    {Name: DateScanned, Kind: KindDate, Extractable: true},
	DeviceName:     {Name: DeviceName, Kind: KindIdentifier, Extractable: true},
	PlantQRCode:    {Name: PlantQRCode, Kind: KindIdentifier, Extractable: true},
	FrameNumber:    {Name: FrameNumber, Kind: KindInt, Extractable: true},
	AccessionName:  {Name: AccessionName, Kind: KindIdentifier},
	ScientistName:  {Name: ScientistName, Kind: KindIdentifier},
	ScientistEmail: {Name: ScientistEmail, Kind: KindIdentifier},
	UploadedBy:     {Name: UploadedBy, Kind: KindIdentifier},
}

// Lookup returns the catalog entry for name
func Lookup(name string) (Field, bool) {
	f, ok := catalog[name]
	return f, ok
}

// Names returns every catalog field name in sorted order
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractableNames returns the names allowed as template placeholders, sorted
func ExtractableNames() []string {
	var names []string
	for name, f := range catalog {
		if f.Extractable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
