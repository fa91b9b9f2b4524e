package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/logging"
)

// Condition is a coarse weather category.
type Condition string

const (
	Sunny  Condition = "sunny"
	Cloudy Condition = "cloudy"
	Rainy  Condition = "rainy"
	Snowy  Condition = "snowy"
	Stormy Condition = "stormy"
	Foggy  Condition = "foggy"
)

// ConditionFor maps a WMO weather code to a condition and a short label.
func ConditionFor(code int) (Condition, string) {
	switch {
	case code == 0:
		return Sunny, "Clear"
	case code >= 1 && code <= 3:
		return Cloudy, "Cloudy"
	case code >= 45 && code <= 48:
		return Foggy, "Foggy"
	case code >= 51 && code <= 67:
		return Rainy, "Rain"
	case code >= 71 && code <= 77:
		return Snowy, "Snow"
	case code >= 80 && code <= 82:
		return Rainy, "Showers"
	case code >= 85 && code <= 86:
		return Snowy, "Snow"
	case code >= 95:
		return Stormy, "Storm"
	default:
		return Cloudy, "Cloudy"
	}
}

// Forecast is one displayed reading.
type Forecast struct {
	Temp        int       `json:"temp"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
}

// Report is the latest weather state. A report without Current is a
// placeholder and renders as "--°".
type Report struct {
	Current   *Forecast `json:"current,omitempty"`
	Tomorrow  *Forecast `json:"tomorrow,omitempty"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Placeholder reports whether there is nothing to show.
func (r Report) Placeholder() bool { return r.Current == nil }

// String renders the report for a status line.
func (r Report) String() string {
	if r.Placeholder() {
		return "--°"
	}
	s := fmt.Sprintf("%d° %s", r.Current.Temp, r.Current.Description)
	if r.Tomorrow != nil {
		s += fmt.Sprintf(" · tomorrow %d° %s", r.Tomorrow.Temp, r.Tomorrow.Description)
	}
	return s
}

// WeatherConfig holds weather widget settings.
type WeatherConfig struct {
	Latitude  float64
	Longitude float64
	Interval  time.Duration
	BaseURL   string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	OnReport   func(Report)
}

// DefaultWeatherConfig returns the default location and refresh interval.
func DefaultWeatherConfig() WeatherConfig {
	return WeatherConfig{
		Latitude:  43.0014,
		Longitude: -84.5592,
		Interval:  30 * time.Minute,
		BaseURL:   "https://api.open-meteo.com/v1/forecast",
	}
}

// Weather polls the open-meteo forecast API.
type Weather struct {
	cfg    WeatherConfig
	http   *http.Client
	logger logrus.FieldLogger

	mu     sync.Mutex
	last   Report
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWeather creates a stopped weather widget.
func NewWeather(cfg WeatherConfig) *Weather {
	def := DefaultWeatherConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Weather{
		cfg:    cfg,
		http:   client,
		logger: logging.Component(cfg.Logger, "weather"),
		last:   Report{Error: "not fetched yet"},
	}
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
	Daily struct {
		WeatherCode []int     `json:"weathercode"`
		TempMax     []float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}

// Fetch retrieves a report. On any failure it returns a placeholder report
// carrying the error text together with the error.
func (w *Weather) Fetch(ctx context.Context) (Report, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(w.cfg.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(w.cfg.Longitude, 'f', 4, 64))
	q.Set("current_weather", "true")
	q.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "2")
	q.Set("temperature_unit", "fahrenheit")

	placeholder := func(err error) (Report, error) {
		return Report{Error: "Weather unavailable", FetchedAt: time.Now()}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return placeholder(fmt.Errorf("failed to build weather request: %w", err))
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return placeholder(fmt.Errorf("weather request failed: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return placeholder(fmt.Errorf("weather data unavailable: HTTP %d", resp.StatusCode))
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return placeholder(fmt.Errorf("failed to decode weather: %w", err))
	}

	cond, desc := ConditionFor(body.CurrentWeather.WeatherCode)
	r := Report{
		Current: &Forecast{
			Temp:        int(math.Round(body.CurrentWeather.Temperature)),
			Condition:   cond,
			Description: desc,
		},
		FetchedAt: time.Now(),
	}
	if len(body.Daily.WeatherCode) > 1 && len(body.Daily.TempMax) > 1 {
		cond, desc := ConditionFor(body.Daily.WeatherCode[1])
		r.Tomorrow = &Forecast{
			Temp:        int(math.Round(body.Daily.TempMax[1])),
			Condition:   cond,
			Description: desc,
		}
	}
	return r, nil
}

// Last returns the most recent report.
func (w *Weather) Last() Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Refresh fetches once, stores the result, and notifies OnReport.
func (w *Weather) Refresh(ctx context.Context) Report {
	r, err := w.Fetch(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("weather fetch failed")
	}
	w.mu.Lock()
	w.last = r
	w.mu.Unlock()
	if w.cfg.OnReport != nil {
		w.cfg.OnReport(r)
	}
	return r
}

// Start refreshes immediately and then on every interval until Stop.
func (w *Weather) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return fmt.Errorf("weather widget already running")
	}
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()

		w.Refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Refresh(ctx)
			}
		}
	}()
	return nil
}

// Stop cancels polling and waits for an in-flight fetch to return.
func (w *Weather) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
		w.wg.Wait()
	}
}
