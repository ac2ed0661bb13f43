package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Student is an enrolled student as returned by the backend roster endpoint.
// Read-only to this service.
type Student struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	RollNo    string `json:"rollNo"`
}

// AttendanceRecord is one student's final status for the commit request.
type AttendanceRecord struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

// AttendanceDetail carries the raw meeting data behind a matched record, for
// the backend's audit trail.
type AttendanceDetail struct {
	StudentID       string `json:"studentId"`
	SourceName      string `json:"sourceName"`
	DurationMinutes int    `json:"durationMinutes"`
	JoinTime        string `json:"joinTime,omitempty"`
	LeaveTime       string `json:"leaveTime,omitempty"`
}

// CommitRequest is the single atomic attendance write for one class and date.
type CommitRequest struct {
	ClassID   string             `json:"classId"`
	Date      string             `json:"date"`
	Records   []AttendanceRecord `json:"records"`
	Auxiliary []AttendanceDetail `json:"auxiliary"`
}

// Client calls the school backend API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FetchRoster returns the students currently enrolled in a class.
func (c *Client) FetchRoster(ctx context.Context, classID string) ([]Student, error) {
	if classID == "" {
		return nil, fmt.Errorf("class id required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/classes/"+classID+"/students", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("backend api error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Students []Student `json:"students"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode roster response: %w", err)
	}
	return out.Students, nil
}

// RecordAttendance submits a reconciliation result set as one write.
func (c *Client) RecordAttendance(ctx context.Context, commit CommitRequest) error {
	if commit.ClassID == "" || commit.Date == "" {
		return fmt.Errorf("class id and date required")
	}

	body, _ := json.Marshal(commit)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/attendance/zoom", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend api error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// Health checks if the backend API is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend api unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend api unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
