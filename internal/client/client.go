// Package client implements the HTTP client for the tutoring backend.
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
	"strings"
	"time"

	"github.com/mjansen/bijleslab/internal/tutor"
)

// defaultTimeout matches the backend's own LLM call budget; exercise
// generation regularly takes tens of seconds.
const defaultTimeout = 120 * time.Second

// Client talks to a tutoring backend over the canonical HTTP contract.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the backend at baseURL. prefix is the deployment
// path prefix ("/api" or empty, depending on how the backend is mounted).
func New(baseURL, prefix string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     strings.TrimRight(prefix, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(format string, args ...any) string {
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = url.PathEscape(s)
		}
	}
	return c.baseURL + c.prefix + fmt.Sprintf(format, args...)
}

// postJSON sends a JSON body (nil for an empty POST) and decodes the JSON
// response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateSession starts a fresh session bound to the given tutor persona.
// Calling it again simply starts a new session, discarding the prior one.
func (c *Client) CreateSession(ctx context.Context, tutorName string, cfg tutor.Config) (*tutor.Session, error) {
	req := struct {
		Tutor  string       `json:"tutor"`
		Config tutor.Config `json:"config"`
	}{Tutor: tutorName, Config: cfg}

	var session tutor.Session
	if err := c.postJSON(ctx, c.endpoint("/session"), req, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("backend returned a session without an id")
	}
	return &session, nil
}

// GetState fetches the current snapshot of a session.
func (c *Client) GetState(ctx context.Context, sessionID string) (*tutor.State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/session/%s", sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get session state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}
	var out struct {
		State tutor.State `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out.State, nil
}

// ChatResult is the backend's answer to one chat turn.
type ChatResult struct {
	Reply string      `json:"reply"`
	State tutor.State `json:"state"`
}

// SendChat sends one free-text turn. The returned state replaces local
// history; the server is authoritative.
func (c *Client) SendChat(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	req := struct {
		Message string `json:"message"`
	}{Message: message}

	var out ChatResult
	if err := c.postJSON(ctx, c.endpoint("/session/%s/chat", sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExerciseResult pairs a freshly generated exercise with the updated state.
type ExerciseResult struct {
	Exercise *tutor.Exercise `json:"exercise"`
	State    tutor.State     `json:"state"`
}

// CreateExercise asks the backend for a new exercise; the backend decides
// the shape from session context.
func (c *Client) CreateExercise(ctx context.Context, sessionID string) (*ExerciseResult, error) {
	var out ExerciseResult
	if err := c.postJSON(ctx, c.endpoint("/session/%s/exercise", sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateExercise requests an exercise for an explicit skill and theme.
// The backend must honor both or fail.
func (c *Client) GenerateExercise(ctx context.Context, sessionID, skill, theme string) (*tutor.Exercise, error) {
	req := struct {
		Skill string `json:"skill"`
		Theme string `json:"theme"`
	}{Skill: skill, Theme: theme}

	var ex tutor.Exercise
	if err := c.postJSON(ctx, c.endpoint("/generate_exercise/%s", sessionID), req, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

// SubmitAnswer grades the active exercise. Empty answers must be rejected by
// the caller before this is invoked; the backend also rejects them with a
// 4xx whose detail message is surfaced verbatim.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string) (*tutor.AnswerOutcome, error) {
	req := struct {
		Answer string `json:"answer"`
	}{Answer: answer}

	var out tutor.AnswerOutcome
	if err := c.postJSON(ctx, c.endpoint("/session/%s/answer", sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTheme changes the topical constraint applied to generated exercises.
func (c *Client) SetTheme(ctx context.Context, sessionID, theme string) (*tutor.State, error) {
	req := struct {
		Theme string `json:"theme"`
	}{Theme: theme}

	var out struct {
		State tutor.State `json:"state"`
	}
	if err := c.postJSON(ctx, c.endpoint("/set_theme/%s", sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out.State, nil
}

// Speak synthesizes speech for a tutor utterance and returns the raw audio
// bytes.
func (c *Client) Speak(ctx context.Context, text, tutorID string) ([]byte, error) {
	req := struct {
		Text    string `json:"text"`
		TutorID string `json:"tutor_id"`
	}{Text: text, TutorID: tutorID}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/speak"), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call speak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

// Transcribe uploads a finished recording and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/transcribe"), &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call transcribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeError(resp)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}
