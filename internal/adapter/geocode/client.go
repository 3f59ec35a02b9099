// Package geocode resolves coordinates to a short place label.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

var ErrNoPlace = errors.New("no place name for coordinates")

type Client struct {
	baseURL  string
	language string
	http     *http.Client
}

func NewClient(baseURL, language string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = "en"
	}
	return &Client{
		baseURL:  baseURL,
		language: language,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("localityLanguage", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build geocode request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode call: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode error %d", resp.StatusCode)
	}
	return Label(body)
}

// Label joins the most specific place name with its country.
func Label(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("parse geocode: invalid json")
	}
	res := gjson.GetManyBytes(body, "city", "locality", "principalSubdivision", "countryName")
	place := ""
	for _, r := range res[:3] {
		if s := strings.TrimSpace(r.String()); s != "" {
			place = s
			break
		}
	}
	country := strings.TrimSpace(res[3].String())
	switch {
	case place != "" && country != "":
		return place + ", " + country, nil
	case place != "":
		return place, nil
	case country != "":
		return country, nil
	default:
		return "", ErrNoPlace
	}
}
