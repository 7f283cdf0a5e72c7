package api

import (
	"context"
	"encoding/json"
)

// Join issues one subscription per request and blocks until every one of
// them has resolved exactly once. Requests are keyed by their type tag;
// each slot is filled by the first answer whose subscription carries that
// tag. Inbound messages for types outside the set are logged and do not
// consume a slot. Every answered subscription is unsubscribed as soon as
// its first answer lands.
func (c *Client) Join(ctx context.Context, requests ...map[string]any) (map[string]json.RawMessage, error) {
	pending := make(map[string]bool, len(requests))
	for _, payload := range requests {
		typeTag, _ := payload["type"].(string)
		if _, err := c.Subscribe(payload); err != nil {
			return nil, err
		}
		pending[typeTag] = true
	}

	results := make(map[string]json.RawMessage, len(requests))
	for len(pending) > 0 {
		id, sub, payload, err := c.Receive(ctx)
		if err != nil {
			return nil, err
		}

		if pending[sub.Type] {
			results[sub.Type] = payload
			delete(pending, sub.Type)
		} else {
			c.logger.Warn("unmatched subscription", "type", sub.Type, "id", id)
		}

		if err := c.Unsubscribe(id); err != nil {
			return nil, err
		}
	}
	return results, nil
}
