// Package openmeteo retrieves hourly station data from the Open-Meteo archive
// API. Requests run behind a circuit breaker with exponential-backoff retries
// so a flapping upstream degrades to errors instead of hammering the API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/MeteoSwiss/weathermart"
	"github.com/MeteoSwiss/weathermart/dataset"
)

// Source is the identifier this retriever claims.
const Source = "OPENMETEO"

const defaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// apiNames maps canonical variable names to the Open-Meteo hourly fields.
var apiNames = map[string]string{
	"T_2M":      "temperature_2m",
	"TOT_PREC":  "precipitation",
	"RELHUM_2M": "relative_humidity_2m",
	"PS":        "surface_pressure",
	"GLOB":      "shortwave_radiation",
	"U_10M":     "wind_speed_10m",
}

// Station is one query location. Name becomes the station coordinate label.
type Station struct {
	Name string
	Lat  float64
	Lon  float64
}

// Config tunes the retriever. Stations is required.
type Config struct {
	Stations []Station

	BaseURL  string             // "" => the public archive endpoint
	Client   *http.Client       // nil => 30s timeout default
	Logger   weathermart.Logger // nil => NopLogger
	Priority int

	MaxRetries      int           // 0 => 3
	InitialInterval time.Duration // 0 => 500ms
	MaxInterval     time.Duration // 0 => 5s
}

// Retriever implements weathermart.Retriever against Open-Meteo.
type Retriever struct {
	stations []Station
	baseURL  string
	client   *http.Client
	log      weathermart.Logger
	priority int

	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	circuit         *gobreaker.CircuitBreaker
}

var _ weathermart.Retriever = (*Retriever)(nil)

func New(cfg Config) (*Retriever, error) {
	if len(cfg.Stations) == 0 {
		return nil, fmt.Errorf("openmeteo: at least one station is required")
	}
	r := &Retriever{
		stations:        cfg.Stations,
		baseURL:         cfg.BaseURL,
		client:          cfg.Client,
		log:             cfg.Logger,
		priority:        cfg.Priority,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
	}
	if r.baseURL == "" {
		r.baseURL = defaultBaseURL
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: 30 * time.Second}
	}
	if r.log == nil {
		r.log = weathermart.NopLogger{}
	}
	if r.maxRetries <= 0 {
		r.maxRetries = 3
	}
	if r.initialInterval <= 0 {
		r.initialInterval = 500 * time.Millisecond
	}
	if r.maxInterval <= 0 {
		r.maxInterval = 5 * time.Second
	}
	r.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return r, nil
}

func (r *Retriever) Sources() []string { return []string{Source} }

func (r *Retriever) Variables() map[string][]string {
	names := make([]string, 0, len(apiNames))
	for name := range apiNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return map[string][]string{Source: names}
}

func (r *Retriever) CRS() weathermart.CRS {
	return weathermart.CRS{Single: "epsg:4326"}
}

func (r *Retriever) Subretrievers() []weathermart.NamedRetriever { return nil }

func (r *Retriever) Priority() int { return r.priority }

func (r *Retriever) Kwargs() []string { return nil }

// hourlyResponse is the subset of the archive API payload we read.
type hourlyResponse struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
}

// Retrieve fetches the requested variables for the given dates, one API call
// per station, and assembles a (time, station) dataset.
func (r *Retriever) Retrieve(ctx context.Context, source string, variables []weathermart.VariableSpec, dates []time.Time, _ weathermart.Kwargs) (*dataset.Dataset, error) {
	if source != Source {
		return nil, &weathermart.UnknownSourceError{Source: source, Known: r.Sources()}
	}
	if len(variables) == 0 || len(dates) == 0 {
		return nil, &weathermart.RetrievalError{Source: source, Err: fmt.Errorf("empty variables or dates")}
	}

	fields := make([]string, len(variables))
	for i, v := range variables {
		api, ok := apiNames[v.Name]
		if !ok {
			return nil, &weathermart.RetrievalError{
				Source: source,
				Err:    fmt.Errorf("variable %q not available from open-meteo", v.Name),
			}
		}
		fields[i] = api
	}

	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var times []time.Time
	series := make(map[string][]float64, len(variables)) // canonical name -> station-major block
	for _, st := range r.stations {
		resp, err := r.fetchStation(ctx, st, fields, first, last)
		if err != nil {
			return nil, &weathermart.RetrievalError{Source: source, Err: err}
		}
		ts, err := parseTimes(resp)
		if err != nil {
			return nil, &weathermart.RetrievalError{Source: source, Err: err}
		}
		if times == nil {
			times = ts
		} else if len(ts) != len(times) {
			return nil, &weathermart.RetrievalError{
				Source: source,
				Err:    fmt.Errorf("station %s returned %d samples, want %d", st.Name, len(ts), len(times)),
			}
		}
		for i, v := range variables {
			vals, err := parseSeries(resp, fields[i], len(times))
			if err != nil {
				return nil, &weathermart.RetrievalError{
					Source: source,
					Err:    errors.Wrapf(err, "station %s variable %s", st.Name, v.Name),
				}
			}
			series[v.Name] = append(series[v.Name], vals...)
		}
	}

	return r.assemble(times, series, variables)
}

// assemble transposes the per-station series into row-major (time, station)
// variables.
func (r *Retriever) assemble(times []time.Time, series map[string][]float64, variables []weathermart.VariableSpec) (*dataset.Dataset, error) {
	ds := dataset.New()
	ds.SetCoord(dataset.DimTime, &dataset.Coord{Times: times})
	labels := make([]string, len(r.stations))
	for i, st := range r.stations {
		labels[i] = st.Name
	}
	ds.SetCoord(dataset.DimStation, &dataset.Coord{Labels: labels})
	ds.Attrs["source"] = Source
	ds.Attrs["crs"] = "epsg:4326"

	nt, ns := len(times), len(r.stations)
	for _, v := range variables {
		block := series[v.Name] // station-major: ns blocks of nt values
		vals := make([]float64, nt*ns)
		for s := 0; s < ns; s++ {
			for t := 0; t < nt; t++ {
				vals[t*ns+s] = block[s*nt+t]
			}
		}
		err := ds.AddVariable(v.Name, &dataset.Variable{
			Dims:   []string{dataset.DimTime, dataset.DimStation},
			Shape:  []int{nt, ns},
			Values: vals,
			Attrs:  dataset.Attrs{"api_name": apiNames[v.Name]},
		})
		if err != nil {
			return nil, &weathermart.RetrievalError{Source: Source, Err: err}
		}
	}
	return ds, nil
}

func (r *Retriever) fetchStation(ctx context.Context, st Station, fields []string, first, last time.Time) (*hourlyResponse, error) {
	build := func() (*http.Request, error) {
		q := url.Values{}
		q.Set("latitude", fmt.Sprintf("%.4f", st.Lat))
		q.Set("longitude", fmt.Sprintf("%.4f", st.Lon))
		q.Set("start_date", first.Format("2006-01-02"))
		q.Set("end_date", last.Format("2006-01-02"))
		q.Set("hourly", strings.Join(fields, ","))
		q.Set("timezone", "UTC")
		return http.NewRequest(http.MethodGet, r.baseURL+"?"+q.Encode(), nil)
	}

	resp, err := r.doWithResilience(ctx, build)
	if err != nil {
		return nil, errors.Wrapf(err, "station %s", st.Name)
	}
	defer resp.Body.Close()

	var payload hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrapf(err, "station %s: decoding response", st.Name)
	}
	if payload.Hourly == nil {
		return nil, fmt.Errorf("station %s: response carries no hourly block", st.Name)
	}
	return &payload, nil
}

// doWithResilience executes the request behind the circuit breaker, retrying
// transient failures with exponential backoff. An open circuit fails fast.
func (r *Retriever) doWithResilience(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	delay := r.initialInterval
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := r.circuit.Execute(func() (interface{}, error) {
			resp, execErr := r.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(err, "circuit open")
		}

		lastErr = err
		if attempt >= r.maxRetries {
			return nil, lastErr
		}
		r.log.Warn("open-meteo request failed, retrying", weathermart.Fields{
			"attempt": attempt + 1, "delay": delay.String(), "error": err.Error(),
		})
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if r.maxInterval > 0 && delay > r.maxInterval {
			delay = r.maxInterval
		}
	}
}

func parseTimes(resp *hourlyResponse) ([]time.Time, error) {
	raw, ok := resp.Hourly["time"]
	if !ok {
		return nil, fmt.Errorf("response carries no time axis")
	}
	var ss []string
	if err := json.Unmarshal(raw, &ss); err != nil {
		return nil, errors.Wrap(err, "time axis")
	}
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		t, err := time.Parse("2006-01-02T15:04", s)
		if err != nil {
			return nil, errors.Wrapf(err, "time[%d]", i)
		}
		out[i] = t.UTC()
	}
	return out, nil
}

func parseSeries(resp *hourlyResponse, field string, want int) ([]float64, error) {
	raw, ok := resp.Hourly[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response", field)
	}
	var vals []float64
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, err
	}
	if len(vals) != want {
		return nil, fmt.Errorf("field %q has %d values, want %d", field, len(vals), want)
	}
	return vals, nil
}
