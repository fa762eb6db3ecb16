// Package csvstops parses uploaded CSV files into candidate stops.
package csvstops

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"routeopt/internal/integrations"
	"routeopt/internal/model"
)

// Expected header: id,name,address,lat,lng,priority,windowStart,windowEnd,serviceTime
// Columns after lng are optional; extra columns are ignored by name.

// Source adapts one uploaded CSV payload to integrations.StopSource.
type Source struct {
	data []byte
}

var _ integrations.StopSource = (*Source)(nil)

func NewSource(data []byte) *Source { return &Source{data: data} }

func (s *Source) Name() string { return "csv-upload" }

// Fetch parses the whole payload as a single batch; uploads have no paging.
func (s *Source) Fetch(cursor string) (integrations.StopBatch, error) {
	stops, err := Parse(s.data)
	if err != nil {
		return integrations.StopBatch{}, err
	}
	return integrations.StopBatch{Stops: stops}, nil
}

// Parse reads CSV bytes into stops. The first row must be a header naming at
// least id, lat and lng.
func Parse(data []byte) ([]model.Stop, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"id", "lat", "lng"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var stops []model.Stop
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lat, err := strconv.ParseFloat(get(rec, "lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad lat: %w", line, err)
		}
		lng, err := strconv.ParseFloat(get(rec, "lng"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad lng: %w", line, err)
		}
		st := model.Stop{
			ID:          get(rec, "id"),
			Name:        get(rec, "name"),
			Address:     get(rec, "address"),
			Coordinates: model.GeoPoint{Lat: lat, Lng: lng},
			Priority:    strings.ToLower(get(rec, "priority")),
		}
		if st.ID == "" {
			return nil, fmt.Errorf("line %d: missing id", line)
		}
		switch st.Priority {
		case "", "low", "medium", "high":
		default:
			return nil, fmt.Errorf("line %d: bad priority %q", line, st.Priority)
		}
		if v := get(rec, "servicetime"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: bad serviceTime %q", line, v)
			}
			st.ServiceTime = n
		}
		ws, we := get(rec, "windowstart"), get(rec, "windowend")
		if ws != "" || we != "" {
			if ws == "" || we == "" {
				return nil, fmt.Errorf("line %d: time window needs both start and end", line)
			}
			st.TimeWindow = &model.TimeWindow{Start: ws, End: we}
		}
		stops = append(stops, st)
	}
	return stops, nil
}
