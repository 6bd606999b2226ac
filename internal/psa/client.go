// Package psa implements the HTTP client for the upstream PSA API.
package psa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/brightops/usagesync/internal/config"
	obsmetrics "github.com/brightops/usagesync/internal/observability/metrics"
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientConfig controls paging, pacing, and transport timeouts. A zero
// PaceDelay takes the default; a negative value disables pacing.
type ClientConfig struct {
	BaseURL   string
	Username  string
	Secret    string
	PageSize  int
	Timeout   time.Duration
	PaceDelay time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PageSize:  500,
		Timeout:   30 * time.Second,
		PaceDelay: 150 * time.Millisecond,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	defaults := DefaultClientConfig()
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.PaceDelay == 0 {
		c.PaceDelay = defaults.PaceDelay
	}
	return c
}

// Client talks to the PSA REST API. The upstream rate-limits aggressively,
// so every request is followed by a cooperative pacing delay.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *zap.Logger

	capOnce       sync.Once
	billableOK    bool
	capabilityURL string
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:           cfg,
		http:          &http.Client{Timeout: cfg.Timeout},
		log:           log.Named("psa.client"),
		capabilityURL: cfg.BaseURL + "/v1/capabilities",
	}
}

func ClientConfigFromApp(cfg config.Config) ClientConfig {
	return ClientConfig{
		BaseURL:   cfg.PSABaseURL,
		Username:  cfg.PSAUsername,
		Secret:    cfg.PSASecret,
		PageSize:  cfg.PSAPageSize,
		Timeout:   time.Duration(cfg.PSATimeoutMS) * time.Millisecond,
		PaceDelay: time.Duration(cfg.PSAPaceDelayMS) * time.Millisecond,
	}
}

type listEnvelope struct {
	Items json.RawMessage `json:"items"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) QueryContracts(ctx context.Context, clientID int64) ([]psadomain.Contract, error) {
	var out []psadomain.Contract
	err := c.queryPaged(ctx, "contracts", "/v1/contracts", url.Values{
		"clientId": {strconv.FormatInt(clientID, 10)},
	}, &out)
	return out, err
}

func (c *Client) QueryBlocks(ctx context.Context, contractID int64) ([]psadomain.ContractBlock, error) {
	var out []psadomain.ContractBlock
	err := c.queryPaged(ctx, "contract_blocks", "/v1/contract-blocks", url.Values{
		"contractId": {strconv.FormatInt(contractID, 10)},
	}, &out)
	return out, err
}

func (c *Client) QueryServiceItems(ctx context.Context, contractID int64) ([]psadomain.ContractServiceItem, error) {
	var out []psadomain.ContractServiceItem
	err := c.queryPaged(ctx, "contract_services", "/v1/contract-services", url.Values{
		"contractId": {strconv.FormatInt(contractID, 10)},
	}, &out)
	return out, err
}

func (c *Client) QueryServiceUnits(ctx context.Context, contractID int64, periodContains time.Time) ([]psadomain.ContractServiceUnit, error) {
	var out []psadomain.ContractServiceUnit
	err := c.queryPaged(ctx, "contract_service_units", "/v1/contract-service-units", url.Values{
		"contractId": {strconv.FormatInt(contractID, 10)},
		"date":       {periodContains.UTC().Format("2006-01-02")},
	}, &out)
	return out, err
}

func (c *Client) QueryTimeEntries(ctx context.Context, query psadomain.TimeEntryQuery) ([]psadomain.TimeEntry, error) {
	values := url.Values{
		"contractId": {strconv.FormatInt(query.ContractID, 10)},
		"from":       {query.From.UTC().Format("2006-01-02")},
		"to":         {query.To.UTC().Format("2006-01-02")},
	}
	if query.BillableOnly {
		values.Set("billable", "true")
	}
	var out []psadomain.TimeEntry
	err := c.queryPaged(ctx, "time_entries", "/v1/time-entries", values, &out)
	return out, err
}

// SupportsBillableFilter probes the PSA capability endpoint once per process.
// An unreachable endpoint counts as unsupported so callers fall back to the
// date-range strategy instead of failing.
func (c *Client) SupportsBillableFilter(ctx context.Context) bool {
	c.capOnce.Do(func() {
		var caps struct {
			TimeEntryBillableFilter bool `json:"timeEntryBillableFilter"`
		}
		if err := c.getJSON(ctx, "capabilities", c.capabilityURL, &caps); err != nil {
			c.log.Warn("capability probe failed, assuming no billable filter", zap.Error(err))
			return
		}
		c.billableOK = caps.TimeEntryBillableFilter
	})
	return c.billableOK
}

// queryPaged pages through a list endpoint until the upstream returns fewer
// than a full page, appending into dst (a pointer to a slice).
func (c *Client) queryPaged(ctx context.Context, endpoint, path string, values url.Values, dst any) error {
	page := 1
	for {
		values.Set("page", strconv.Itoa(page))
		values.Set("pageSize", strconv.Itoa(c.cfg.PageSize))

		var envelope listEnvelope
		if err := c.getJSON(ctx, endpoint, c.cfg.BaseURL+path+"?"+values.Encode(), &envelope); err != nil {
			return err
		}

		count, err := appendItems(dst, envelope.Items)
		if err != nil {
			return fmt.Errorf("%w: decode %s: %v", psadomain.ErrUnavailable, endpoint, err)
		}
		if count < c.cfg.PageSize {
			return nil
		}
		page++
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", psadomain.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Secret)
	}

	resp, err := c.http.Do(req)
	c.pace(ctx)
	if err != nil {
		obsmetrics.Reconciler().IncUpstreamError(endpoint)
		return fmt.Errorf("%w: %s: %v", psadomain.ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		obsmetrics.Reconciler().IncUpstreamError(endpoint)
		return fmt.Errorf("%w: %s: %v", psadomain.ErrUnavailable, endpoint, err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Type == "filter_unsupported" {
			return psadomain.ErrFilterUnsupported
		}
	}
	if resp.StatusCode != http.StatusOK {
		obsmetrics.Reconciler().IncUpstreamError(endpoint)
		return fmt.Errorf("%w: %s: status %d", psadomain.ErrUnavailable, endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", psadomain.ErrUnavailable, endpoint, err)
	}
	return nil
}

func (c *Client) pace(ctx context.Context) {
	if c.cfg.PaceDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.PaceDelay):
	}
}

// appendItems decodes one page of raw items into the destination slice.
func appendItems(dst any, raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	switch out := dst.(type) {
	case *[]psadomain.Contract:
		var page []psadomain.Contract
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		*out = append(*out, page...)
		return len(page), nil
	case *[]psadomain.ContractBlock:
		var page []psadomain.ContractBlock
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		*out = append(*out, page...)
		return len(page), nil
	case *[]psadomain.ContractServiceItem:
		var page []psadomain.ContractServiceItem
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		*out = append(*out, page...)
		return len(page), nil
	case *[]psadomain.ContractServiceUnit:
		var page []psadomain.ContractServiceUnit
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		*out = append(*out, page...)
		return len(page), nil
	case *[]psadomain.TimeEntry:
		var page []psadomain.TimeEntry
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, err
		}
		*out = append(*out, page...)
		return len(page), nil
	default:
		return 0, fmt.Errorf("unsupported destination %T", dst)
	}
}
