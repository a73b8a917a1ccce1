package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Nexitus/KotoSub/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverBase resolves the API base URL from the --server flag, the
// KOTOSUB_SERVER environment variable, or the configured bind address.
func (c *commandContext) serverBase() (string, error) {
	candidate := ""
	if c.serverFlag != nil {
		candidate = strings.TrimSpace(*c.serverFlag)
	}
	if candidate == "" {
		candidate = strings.TrimSpace(os.Getenv("KOTOSUB_SERVER"))
	}
	if candidate == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return "", err
		}
		candidate = strings.TrimSpace(cfg.Paths.APIBind)
	}
	if candidate == "" {
		return "", fmt.Errorf("no API server address configured (use --server or set paths.api_bind)")
	}
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "http://" + candidate
	}
	return strings.TrimRight(candidate, "/"), nil
}

func (c *commandContext) apiURL(path string) (string, error) {
	base, err := c.serverBase()
	if err != nil {
		return "", err
	}
	return base + path, nil
}

// apiClient is used for quick request/response calls. Streaming endpoints
// construct their own client without a timeout.
var apiClient = &http.Client{Timeout: 30 * time.Second}

func (c *commandContext) getJSON(path string, out any) error {
	url, err := c.apiURL(path)
	if err != nil {
		return err
	}
	resp, err := apiClient.Get(url)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *commandContext) postJSON(path string, out any, accept ...int) error {
	url, err := c.apiURL(path)
	if err != nil {
		return err
	}
	resp, err := apiClient.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()
	accepted := false
	for _, status := range accept {
		if resp.StatusCode == status {
			accepted = true
			break
		}
	}
	if !accepted {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Error != "" {
		return fmt.Errorf("server: %s", body.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
