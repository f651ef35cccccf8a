// Package client is the typed HTTP client for the kiosk backend contract.
// Both the session controller and the serial forwarder talk to the backend
// through it, which is what makes their side effects identical.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// FrameRef is the backend's record of one uploaded frame.
type FrameRef struct {
	ID           int64  `json:"id"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client talks to one kiosk backend.
type Client struct {
	base        *url.URL
	http        *http.Client
	buttonToken string
}

// New creates a client for the backend at baseURL. buttonToken guards the
// physical-button relay endpoint and may be empty for clients that never
// post button events.
func New(baseURL, buttonToken string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	return &Client{
		base:        base,
		buttonToken: buttonToken,
		http:        &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Resolve turns a backend-relative reference (e.g. "/videos/s/latest.mp4")
// into a fully-qualified URL.
func (c *Client) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

// endpoint joins path onto the base URL, keeping any path prefix the backend
// is mounted under (a reverse-proxy subpath, say).
func (c *Client) endpoint(path, session string) string {
	u := c.base.JoinPath(path)
	if session != "" {
		q := u.Query()
		q.Set("session", session)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// UploadFrame posts one JPEG as a multipart body and returns the backend's
// frame record.
func (c *Client) UploadFrame(ctx context.Context, session string, image []byte) (FrameRef, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return FrameRef{}, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return FrameRef{}, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return FrameRef{}, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/frames", session), &body)
	if err != nil {
		return FrameRef{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var ref FrameRef
	if err := c.do(req, &ref); err != nil {
		return FrameRef{}, fmt.Errorf("frame upload failed: %w", err)
	}
	if ref.ID == 0 {
		return FrameRef{}, fmt.Errorf("frame upload failed: malformed response (no id)")
	}
	return ref, nil
}

// DeleteLast asks the backend to drop its most recently stored frame. An
// empty session on the backend is an idempotent no-op, not an error.
func (c *Client) DeleteLast(ctx context.Context, session string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/api/frames/last", session), nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("delete last frame failed: %w", err)
	}
	return nil
}

// DeleteAll clears every frame the backend holds for the session. A 404 is
// tolerated: backends that predate session scoping simply have nothing to do.
func (c *Client) DeleteAll(ctx context.Context, session string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/api/frames/all", session), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete all frames failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("delete all frames failed: %s", responseError(resp))
	}
	return nil
}

// BuildVideo asks the backend to assemble the session's frames and returns
// the (possibly relative) video reference.
func (c *Client) BuildVideo(ctx context.Context, session string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/video", session), nil)
	if err != nil {
		return "", err
	}
	var out struct {
		VideoURL string `json:"video_url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("video build failed: %w", err)
	}
	if out.VideoURL == "" {
		return "", fmt.Errorf("video build failed: malformed response (no video_url)")
	}
	return out.VideoURL, nil
}

// PostButton relays one physical button press so the UI reacts exactly as it
// would to the matching on-screen control.
func (c *Client) PostButton(ctx context.Context, eventType string) error {
	payload, err := json.Marshal(map[string]string{"type": eventType})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/button", ""), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.buttonToken)
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("button relay failed: %w", err)
	}
	return nil
}

// do executes the request and decodes a JSON body into out when non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s", responseError(resp))
	}
	if out == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// responseError summarizes a non-2xx response, keeping a short body snippet
// for the logs.
func responseError(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(snippet) == 0 {
		return fmt.Sprintf("backend returned status %d", resp.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, snippet)
}
