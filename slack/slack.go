// Package slack posts finalized orders to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"orderagent/catalog"
	"orderagent/order"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
	cat        *catalog.Catalog
}

// NewClient creates a webhook client. cat prices the orders passed to PostOrder.
func NewClient(webhookURL string, httpClient doer, cat *catalog.Catalog) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
		cat:        cat,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// PostOrder sends a summary of lines with its catalog total. Empty orders are not posted.
func (c *Client) PostOrder(ctx context.Context, channel string, lines []order.Line) error {
	if len(lines) == 0 {
		return nil
	}
	msg, err := FormatOrder(c.cat, lines)
	if err != nil {
		return fmt.Errorf("failed to format order: %w", err)
	}
	return c.PostMessage(ctx, channel, msg)
}

// FormatOrder renders an order as Slack mrkdwn.
func FormatOrder(cat *catalog.Catalog, lines []order.Line) (string, error) {
	total, err := order.Total(cat, lines)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("*New order*\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "• %d x %s: %s\n", l.Quantity, l.Item, l.Price)
	}
	fmt.Fprintf(&b, "*Total:* %s", total)
	return b.String(), nil
}
