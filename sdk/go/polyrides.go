package sdk

import (
	"encoding/json"
	"net/http"
	"net/url"
)

type Client struct {
	BaseURL     string
	AdminSecret string
	HTTP        *http.Client
}

func New(baseURL, adminSecret string) *Client {
	if baseURL == "" {
		baseURL = "https://rides.polyrides.example.com"
	}
	return &Client{BaseURL: baseURL, AdminSecret: adminSecret, HTTP: http.DefaultClient}
}

func (c *Client) headers(req *http.Request) {
	if c.AdminSecret != "" {
		req.Header.Set("X-Admin-Secret", c.AdminSecret)
	}
}

func (c *Client) Rides(params map[string]string) (*http.Response, error) {
	u, _ := url.Parse(c.BaseURL + "/v1/rides")
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	req, _ := http.NewRequest("GET", u.String(), nil)
	c.headers(req)
	return c.HTTP.Do(req)
}

func (c *Client) Ride(id string) (map[string]interface{}, error) {
	req, _ := http.NewRequest("GET", c.BaseURL+"/v1/rides/"+url.PathEscape(id), nil)
	c.headers(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Poll() (map[string]interface{}, error) {
	return c.post("/v1/poll")
}

func (c *Client) Sweep() (map[string]interface{}, error) {
	return c.post("/v1/sweep")
}

func (c *Client) post(path string) (map[string]interface{}, error) {
	req, _ := http.NewRequest("POST", c.BaseURL+path, nil)
	c.headers(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
