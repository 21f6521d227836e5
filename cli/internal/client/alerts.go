package client

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListAlerts(ctx context.Context, page, limit int, filter AlertFilter) (*AlertList, error) {
	q := pageQuery(page, limit)
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Severity != "" {
		q.Set("severity", filter.Severity)
	}
	if filter.AlertType != "" {
		q.Set("alert_type", filter.AlertType)
	}

	var list AlertList
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts", q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetAlert(ctx context.Context, id string) (*AlertDetail, error) {
	var detail AlertDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts/"+url.PathEscape(id), nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateAlertStatus changes status and/or assignee. Nil arguments are
// omitted; an empty assignee clears the assignment.
func (c *Client) UpdateAlertStatus(ctx context.Context, id string, status, assignedTo *string) (*Alert, error) {
	body := map[string]interface{}{}
	if status != nil {
		body["status"] = *status
	}
	if assignedTo != nil {
		body["assigned_to"] = *assignedTo
	}

	var a Alert
	if err := c.do(ctx, http.MethodPut, "/api/v1/alerts/"+url.PathEscape(id)+"/status", nil, body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AddNote(ctx context.Context, id, note string) (*Alert, error) {
	var a Alert
	body := map[string]string{"note": note}
	if err := c.do(ctx, http.MethodPost, "/api/v1/alerts/"+url.PathEscape(id)+"/notes", nil, body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AddAction(ctx context.Context, id, action string) (*Alert, error) {
	var a Alert
	body := map[string]string{"action": action}
	if err := c.do(ctx, http.MethodPost, "/api/v1/alerts/"+url.PathEscape(id)+"/actions", nil, body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/alerts/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) AlertStatistics(ctx context.Context) (*AlertStatistics, error) {
	var stats AlertStatistics
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts/statistics", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
