package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Client talks to the ticket API over HTTP and implements Mover. Every call
// is a suspend point for the board: the reconciler never blocks drag input on
// it.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the given API base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type wireMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type wireTicket struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      domain.Status   `json:"status"`
	Priority    domain.Priority `json:"priority"`
	AssignedTo  []wireMember    `json:"assignedTo"`
}

type ticketEnvelope struct {
	Data wireTicket `json:"data"`
}

type listEnvelope struct {
	Data []wireTicket `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// MoveTicket changes a ticket's status remotely and returns the
// authoritative record.
func (c *Client) MoveTicket(ctx context.Context, ticketID string, status domain.Status) (*Ticket, error) {
	body, err := json.Marshal(map[string]any{"status": status})
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/api/tickets/%s", c.baseURL, url.PathEscape(ticketID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var envelope ticketEnvelope
	if err := c.do(req, &envelope); err != nil {
		return nil, err
	}
	ticket := fromWire(envelope.Data)
	return &ticket, nil
}

// FetchBoard loads the tenant's tickets for the board.
func (c *Client) FetchBoard(ctx context.Context) ([]Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tickets", nil)
	if err != nil {
		return nil, err
	}
	var envelope listEnvelope
	if err := c.do(req, &envelope); err != nil {
		return nil, err
	}
	tickets := make([]Ticket, 0, len(envelope.Data))
	for _, wt := range envelope.Data {
		tickets = append(tickets, fromWire(wt))
	}
	return tickets, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope errorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
			return apperrors.NewDomainError(envelope.Error.Code, envelope.Error.Message, resp.StatusCode, nil)
		}
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}
	return json.Unmarshal(raw, out)
}

func fromWire(wt wireTicket) Ticket {
	assigned := make([]MemberRef, 0, len(wt.AssignedTo))
	for _, m := range wt.AssignedTo {
		assigned = append(assigned, MemberRef{ID: m.ID, Name: m.Name, Email: m.Email})
	}
	return Ticket{
		ID:          wt.ID,
		Title:       wt.Title,
		Description: wt.Description,
		Status:      wt.Status,
		Priority:    wt.Priority,
		AssignedTo:  assigned,
	}
}
