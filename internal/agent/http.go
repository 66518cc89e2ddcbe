package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zioncity/backend/internal/models"
)

type HTTPAgent struct {
	Endpoint string
	Client   *http.Client
}

func (h HTTPAgent) Ask(ctx context.Context, r Request) (models.Document, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 5 * time.Second}
	}

	b, _ := json.Marshal(r)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("agent %s: http %s", r.OrganizationID, resp.Status)
	}

	var doc models.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("agent %s: decode reply: %w", r.OrganizationID, err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	return doc, nil
}
