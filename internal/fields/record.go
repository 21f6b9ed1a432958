package fields

import (
	"fmt"
	"time"
)

// Record is the metadata registered for one scan image.
// Unset integers and dates are nil, unset text fields are empty.
type Record struct {
	Species        string     `firestore:"species" yaml:"species,omitempty"`
	Experiment     string     `firestore:"experiment" yaml:"experiment,omitempty"`
	WaveNumber     *int       `firestore:"wave_number" yaml:"wave_number,omitempty"`
	GermDay        *int       `firestore:"germ_day" yaml:"germ_day,omitempty"`
	GermDayColor   string     `firestore:"germ_day_color" yaml:"germ_day_color,omitempty"`
	PlantAgeDays   *int       `firestore:"plant_age_days" yaml:"plant_age_days,omitempty"`
	DateScanned    *time.Time `firestore:"date_scanned" yaml:"date_scanned,omitempty"`
	DeviceName     string     `firestore:"device_name" yaml:"device_name,omitempty"`
	PlantQRCode    string     `firestore:"plant_qr_code" yaml:"plant_qr_code,omitempty"`
	FrameNumber    *int       `firestore:"frame_number" yaml:"frame_number,omitempty"`
	AccessionName  string     `firestore:"accession_name" yaml:"accession_name,omitempty"`
	ScientistName  string     `firestore:"scientist_name" yaml:"scientist_name,omitempty"`
	ScientistEmail string     `firestore:"scientist_email" yaml:"scientist_email,omitempty"`
	UploadedBy     string     `firestore:"uploaded_by" yaml:"uploaded_by,omitempty"`
}

// requiredFields must all be set before a record can be registered
var requiredFields = []string{
	Species, Experiment, WaveNumber, GermDay, GermDayColor, PlantAgeDays,
	DateScanned, DeviceName, PlantQRCode, FrameNumber, AccessionName,
	ScientistName, ScientistEmail, UploadedBy,
}

// Set decodes raw according to the catalog entry for name and stores it
func (r *Record) Set(name, raw string) error {
	f, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	switch f.Kind {
	case KindInt:
		n, err := ParseInt(raw)
		if err != nil {
			return err
		}
		switch name {
		case WaveNumber:
			r.WaveNumber = &n
		case GermDay:
			r.GermDay = &n
		case PlantAgeDays:
			r.PlantAgeDays = &n
		case FrameNumber:
			r.FrameNumber = &n
		}
	case KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return err
		}
		r.DateScanned = &t
	default:
		s, err := ParseIdentifier(raw)
		if err != nil {
			return err
		}
		switch name {
		case Species:
			r.Species = s
		case Experiment:
			r.Experiment = s
		case GermDayColor:
			r.GermDayColor = s
		case DeviceName:
			r.DeviceName = s
		case PlantQRCode:
			r.PlantQRCode = s
		case AccessionName:
			r.AccessionName = s
		case ScientistName:
			r.ScientistName = s
		case ScientistEmail:
			r.ScientistEmail = s
		case UploadedBy:
			r.UploadedBy = s
		}
	}
	return nil
}

// IsSet reports whether the named field holds a value
func (r Record) IsSet(name string) bool {
	switch name {
	case Species:
		return r.Species != ""
	case Experiment:
		return r.Experiment != ""
	case WaveNumber:
		return r.WaveNumber != nil
	case GermDay:
		return r.GermDay != nil
	case GermDayColor:
		return r.GermDayColor != ""
	case PlantAgeDays:
		return r.PlantAgeDays != nil
	case DateScanned:
		return r.DateScanned != nil
	case DeviceName:
		return r.DeviceName != ""
	case PlantQRCode:
		return r.PlantQRCode != ""
	case FrameNumber:
		return r.FrameNumber != nil
	case AccessionName:
		return r.AccessionName != ""
	case ScientistName:
		return r.ScientistName != ""
	case ScientistEmail:
		return r.ScientistEmail != ""
	case UploadedBy:
		return r.UploadedBy != ""
	}
	return false
}

// Missing returns the required fields that are unset, in catalog order
func (r Record) Missing() []string {
	var missing []string
	for _, name := range requiredFields {
		if !r.IsSet(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Merge returns base with every field set in override copied over it.
// Fields unset in override keep the base value.
func Merge(base, override Record) Record {
	out := base
	if override.Species != "" {
		out.Species = override.Species
	}
	if override.Experiment != "" {
		out.Experiment = override.Experiment
	}
	if override.WaveNumber != nil {
		out.WaveNumber = copyInt(override.WaveNumber)
	}
	if override.GermDay != nil {
		out.GermDay = copyInt(override.GermDay)
	}
	if override.GermDayColor != "" {
		out.GermDayColor = override.GermDayColor
	}
	if override.PlantAgeDays != nil {
		out.PlantAgeDays = copyInt(override.PlantAgeDays)
	}
	if override.DateScanned != nil {
		t := *override.DateScanned
		out.DateScanned = &t
	}
	if override.DeviceName != "" {
		out.DeviceName = override.DeviceName
	}
	if override.PlantQRCode != "" {
		out.PlantQRCode = override.PlantQRCode
	}
	if override.FrameNumber != nil {
		out.FrameNumber = copyInt(override.FrameNumber)
	}
	if override.AccessionName != "" {
		out.AccessionName = override.AccessionName
	}
	if override.ScientistName != "" {
		out.ScientistName = override.ScientistName
	}
	if override.ScientistEmail != "" {
		out.ScientistEmail = override.ScientistEmail
	}
	if override.UploadedBy != "" {
		out.UploadedBy = override.UploadedBy
	}
	return out
}

func copyInt(p *int) *int {
	n := *p
	return &n
}
