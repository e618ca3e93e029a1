package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
)

// OpenWeatherProvider implements WeatherProvider against the OpenWeatherMap
// current-conditions API.
type OpenWeatherProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
}

func NewOpenWeatherProvider(apiKey string) (*OpenWeatherProvider, error) {
	if apiKey == "" {
		return nil, errors.New("weather api key is empty")
	}

	return &OpenWeatherProvider{
		session: &http.Client{Timeout: 5 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
	}, nil
}

type currentWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

func (p *OpenWeatherProvider) GetWeather(ctx context.Context, at domain.Coordinate) (_ domain.WeatherSnapshot, err error) {
	defer obs.Time(ctx, "weather.Get")(&err)

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", at.Lat))
	q.Set("lon", fmt.Sprintf("%.4f", at.Lon))
	q.Set("appid", p.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := p.session.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.WeatherSnapshot{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var decoded currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("decode weather response: %w", err)
	}

	if len(decoded.Weather) == 0 {
		return domain.WeatherSnapshot{}, errors.New("weather response has no conditions")
	}

	return domain.WeatherSnapshot{
		TemperatureC: decoded.Main.Temp,
		Condition:    decoded.Weather[0].Main,
		Description:  decoded.Weather[0].Description,
	}, nil
}
