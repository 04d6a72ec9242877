package client

import (
	"BlockBench/internal/domain"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	reports_endpoint = "/api/v1/reports"
	requestTimeout   = 10 * time.Second
)

// CollectorClient talks to the collector service: it downloads schedules and uploads session
// reports.
type CollectorClient struct {
	client       *resty.Client
	collectorUrl string
}

func NewCollectorClient(collectorUrl string) *CollectorClient {
	return &CollectorClient{
		client:       resty.New().SetTimeout(requestTimeout),
		collectorUrl: collectorUrl,
	}
}

func (c *CollectorClient) FetchSchedule(url string) ([]byte, error) {
	resp, err := c.client.R().Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching schedule: %s", resp.Status())
	}
	return resp.Body(), nil
}

// PublishReport uploads report. It is a no-op when no collector URL is configured.
func (c *CollectorClient) PublishReport(report domain.SessionReport) error {
	if c.collectorUrl == "" {
		return nil
	}
	uri := c.collectorUrl + reports_endpoint
	resp, err := c.client.R().SetBody(&report).Post(uri)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("publishing report %s: %s", report.SessionID, resp.Status())
	}
	return nil
}
