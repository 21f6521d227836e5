package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Record kinds accepted by the records and submit endpoints.
const (
	KindNetwork = "network"
	KindEmail   = "email"
)

func checkKind(kind string) error {
	if kind != KindNetwork && kind != KindEmail {
		return fmt.Errorf("unknown record kind %q, want %s or %s", kind, KindNetwork, KindEmail)
	}
	return nil
}

func (c *Client) SubmitNetwork(ctx context.Context, rec *NetworkTraffic) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/network/submit", nil, rec, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SubmitEmail(ctx context.Context, rec *EmailCommunication) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/email/submit", nil, rec, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRecords pages through the caller's records of kind.
func (c *Client) ListRecords(ctx context.Context, kind string, page, limit int, anomalyOnly bool) (*RecordList, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	q := pageQuery(page, limit)
	if anomalyOnly {
		q.Set("anomaly_only", "true")
	}

	var list RecordList
	if err := c.do(ctx, http.MethodGet, "/api/v1/"+kind, q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetRecord(ctx context.Context, kind, id string) (map[string]interface{}, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var rec map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/"+kind+"/"+url.PathEscape(id), nil, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) DeleteRecord(ctx context.Context, kind, id string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/api/v1/"+kind+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) RecordStatistics(ctx context.Context, kind string) (*RecordStatistics, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var stats RecordStatistics
	if err := c.do(ctx, http.MethodGet, "/api/v1/"+kind+"/statistics", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
