package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"ladder_bot/internal/modules/config"
	"ladder_bot/pkg/logger"
)

// Client — единственная обёртка над REST IG. Все вызовы ядра проходят
// через него, сырые HTTP-ответы наружу не отдаются.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	versions map[string]string

	mu       sync.RWMutex
	cst      string
	xst      string
	loggedIn bool
}

func NewClient(cfg *config.Config) *Client {
	creds := cfg.ActiveCredentials()
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  creds.BaseURL,
		apiKey:   creds.APIKey,
		versions: cfg.EndpointVersions,
	}
}

// Connect создаёт сессию и запоминает пару токенов CST / X-SECURITY-TOKEN.
func (c *Client) Connect(ctx context.Context, creds config.Credentials) error {
	if !creds.Complete() {
		return errors.New("ig: credentials are not configured")
	}

	body := map[string]string{
		"identifier": creds.Username,
		"password":   creds.Password,
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "Connect marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/session", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "Connect new request")
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	req.Header.Set("X-IG-API-KEY", c.apiKey)
	req.Header.Set("Version", c.version("session"))

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "Connect do")
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("Connect http %d: %s", resp.StatusCode, string(data))
	}

	c.mu.Lock()
	c.cst = resp.Header.Get("CST")
	c.xst = resp.Header.Get("X-SECURITY-TOKEN")
	c.loggedIn = true
	c.mu.Unlock()

	logger.Info("IG session created (%s)", c.baseURL)
	return nil
}

// Disconnect гасит сессию. Ошибку наружу не тащим — при выходе это
// не критично.
func (c *Client) Disconnect(ctx context.Context) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/session", "session", nil)
	if err == nil {
		if resp, err := c.http.Do(req); err == nil {
			resp.Body.Close()
		}
	}

	c.mu.Lock()
	c.cst = ""
	c.xst = ""
	c.loggedIn = false
	c.mu.Unlock()
	logger.Info("IG session closed")
}

func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

func (c *Client) version(endpoint string) string {
	if v, ok := c.versions[endpoint]; ok {
		return v
	}
	return "1"
}

// newRequest собирает запрос с сессионными токенами и Version-заголовком
// нужного эндпоинта.
func (c *Client) newRequest(ctx context.Context, method, path, endpoint string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	cst, xst := c.cst, c.xst
	c.mu.RUnlock()

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	req.Header.Set("X-IG-API-KEY", c.apiKey)
	req.Header.Set("CST", cst)
	req.Header.Set("X-SECURITY-TOKEN", xst)
	req.Header.Set("Version", c.version(endpoint))
	return req, nil
}

// getJSON — общий путь для GET-эндпоинтов: запрос, проверка кода, декод.
func (c *Client) getJSON(ctx context.Context, path, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, endpoint, nil)
	if err != nil {
		return fmt.Errorf("getJSON new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("getJSON do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("getJSON http %d: %s", resp.StatusCode, string(data))
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("getJSON decode: %w; body=%s", err, string(data))
	}
	return nil
}

// expiryFor: индексные дейлики и золото у IG торгуются как DFB.
func expiryFor(epic string) string {
	if strings.HasPrefix(epic, "IX.D") || epic == "CS.D.USCGC.TODAY.IP" {
		return "DFB"
	}
	return "-"
}
