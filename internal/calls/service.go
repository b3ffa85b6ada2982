package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"homekeys/server/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.bland.ai"
	DefaultPathwayID = "9c28befe-308e-40eb-893f-c56503491b64"
	DefaultVoice     = "june"
)

var (
	ErrNotConfigured = errors.New("call provider is not configured")
	ErrRateLimited   = errors.New("too many call requests")
	ErrProvider      = errors.New("call provider rejected the request")
)

// Publisher receives one event per call attempt
type Publisher interface {
	Push(event models.CallEvent) error
}

type Options struct {
	BaseURL   string
	APIKey    string
	PathwayID string
	Voice     string
	Timeout   time.Duration
	// Rate is the sustained number of calls per second, Burst the bucket size
	Rate  float64
	Burst int
}

type Service struct {
	logger  *logrus.Logger
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
	events  Publisher
	now     func() time.Time
}

func NewService(logger *logrus.Logger, opts Options, events Publisher) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.PathwayID == "" {
		opts.PathwayID = DefaultPathwayID
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Rate <= 0 {
		opts.Rate = 0.2
	}
	if opts.Burst < 1 {
		opts.Burst = 3
	}

	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		opts:    opts,
		events:  events,
		now:     time.Now,
	}
}

// Enabled reports whether an API key is configured
func (s *Service) Enabled() bool {
	return s.opts.APIKey != ""
}

type callPayload struct {
	PhoneNumber string `json:"phone_number"`
	PathwayID   string `json:"pathway_id"`
	Voice       string `json:"voice"`
}

type providerResponse struct {
	Status  string `json:"status"`
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}

// Request asks the provider to place one outbound call. The outcome is
// always filled in; err classifies rejections (ErrMissingPhone,
// ErrInvalidPhone, ErrNotConfigured, ErrRateLimited, ErrProvider).
// Failed requests are never retried.
func (s *Service) Request(ctx context.Context, req models.CallRequest) (models.CallOutcome, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return models.CallOutcome{Message: capitalize(err.Error())}, err
	}

	outcome, err := s.place(ctx, phone)

	fields := logrus.Fields{
		"phone":      phone,
		"session_id": req.SessionID,
		"accepted":   outcome.Accepted,
	}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("Call request rejected")
	} else {
		s.logger.WithFields(fields).WithField("call_id", outcome.CallID).Info("Call started")
	}

	if s.events != nil {
		event := models.CallEvent{
			Phone:     phone,
			SessionID: req.SessionID,
			Outcome:   outcome,
			At:        s.now(),
		}
		if pushErr := s.events.Push(event); pushErr != nil {
			s.logger.WithError(pushErr).Warn("Failed to publish call event")
		}
	}

	return outcome, err
}

func (s *Service) place(ctx context.Context, phone string) (models.CallOutcome, error) {
	if !s.Enabled() {
		return models.CallOutcome{Message: "Calling is not available right now"}, ErrNotConfigured
	}
	if !s.limiter.Allow() {
		return models.CallOutcome{Message: "Too many call requests, please try again later"}, ErrRateLimited
	}

	body, err := json.Marshal(callPayload{
		PhoneNumber: phone,
		PathwayID:   s.opts.PathwayID,
		Voice:       s.opts.Voice,
	})
	if err != nil {
		return models.CallOutcome{Message: "Failed to start call"}, fmt.Errorf("failed to marshal call payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return models.CallOutcome{Message: "Failed to start call"}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return models.CallOutcome{Message: "Failed to start call"}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed providerResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "Failed to start call"
		if parsed.Message != "" {
			msg = fmt.Sprintf("Failed to start call: %s", parsed.Message)
		}
		return models.CallOutcome{Message: msg}, fmt.Errorf("%w (status %d)", ErrProvider, resp.StatusCode)
	}

	return models.CallOutcome{
		Accepted: true,
		CallID:   parsed.CallID,
		Message:  "Call started successfully",
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
