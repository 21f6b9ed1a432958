// Package summary reduces an extracted batch to distinct-value lists for review before upload.
package summary

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
)

// Summary holds totals and sorted-unique values over a batch. Unset values are excluded.
type Summary struct {
	TotalImages   int
	TotalPlants   int
	PlantQRCodes  []string
	Accessions    []string
	WaveNumbers   []int
	GermDays      []int
	GermDayColors []string
	PlantAges     []int
	ScanDates     []time.Time
	DeviceNames   []string
}

// Summarize computes the summary of records. It does not modify its input.
func Summarize(records []fields.Record) Summary {
	var (
		plants     = make(map[string]struct{})
		accessions = make(map[string]struct{})
		colors     = make(map[string]struct{})
		devices    = make(map[string]struct{})
		waves      = make(map[int]struct{})
		germDays   = make(map[int]struct{})
		ages       = make(map[int]struct{})
		dates      = make(map[time.Time]struct{})
	)

	for _, r := range records {
		addString(plants, r.PlantQRCode)
		addString(accessions, r.AccessionName)
		addString(colors, r.GermDayColor)
		addString(devices, r.DeviceName)
		addInt(waves, r.WaveNumber)
		addInt(germDays, r.GermDay)
		addInt(ages, r.PlantAgeDays)
		if r.DateScanned != nil {
			d := r.DateScanned.UTC()
			dates[time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)] = struct{}{}
		}
	}

	s := Summary{
		TotalImages:   len(records),
		TotalPlants:   len(plants),
		PlantQRCodes:  sortedStrings(plants),
		Accessions:    sortedStrings(accessions),
		WaveNumbers:   sortedInts(waves),
		GermDays:      sortedInts(germDays),
		GermDayColors: sortedStrings(colors),
		PlantAges:     sortedInts(ages),
		DeviceNames:   sortedStrings(devices),
	}

	s.ScanDates = make([]time.Time, 0, len(dates))
	for d := range dates {
		s.ScanDates = append(s.ScanDates, d)
	}
	sort.Slice(s.ScanDates, func(i, j int) bool { return s.ScanDates[i].Before(s.ScanDates[j]) })

	return s
}

// Write renders the summary as an aligned text block
func (s Summary) Write(w io.Writer) error {
	dates := make([]string, len(s.ScanDates))
	for i, d := range s.ScanDates {
		dates[i] = d.Format("2006-01-02")
	}

	rows := []struct {
		label string
		value string
	}{
		{"Images", strconv.Itoa(s.TotalImages)},
		{"Plants", strconv.Itoa(s.TotalPlants)},
		{"Plant QR codes", joinStrings(s.PlantQRCodes)},
		{"Accessions", joinStrings(s.Accessions)},
		{"Wave numbers", joinInts(s.WaveNumbers)},
		{"Germ days", joinInts(s.GermDays)},
		{"Germ day colors", joinStrings(s.GermDayColors)},
		{"Plant ages (days)", joinInts(s.PlantAges)},
		{"Scan dates", joinStrings(dates)},
		{"Devices", joinStrings(s.DeviceNames)},
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-18s %s\n", row.label+":", row.value); err != nil {
			return err
		}
	}
	return nil
}

func addString(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func addInt(set map[int]struct{}, v *int) {
	if v != nil {
		set[*v] = struct{}{}
	}
}

func sortedStrings(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func joinStrings(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func joinInts(values []int) string {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = strconv.Itoa(v)
	}
	return joinStrings(strs)
}
