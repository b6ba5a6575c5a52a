// Package sms delivers one-time codes and short notices by text message.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trustid/pkg/platform/circuit"
	"trustid/pkg/platform/privacy"
)

// Notifier sends one-time codes and free-text notices to a phone number.
type Notifier interface {
	SendOTP(ctx context.Context, phone, code string) error
	SendMessage(ctx context.Context, phone, text string) error
}

// HTTPDoer is the part of *http.Client the gateway needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var sendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustid_sms_send_total",
	Help: "SMS delivery attempts by result",
}, []string{"result"})

// ErrCircuitOpen is returned while the provider is considered down.
var ErrCircuitOpen = errors.New("sms provider circuit open")

// GatewayConfig configures the 2Factor-style HTTP gateway.
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	Template   string
	SenderID   string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Breaker    *circuit.Breaker
}

// Gateway calls {BaseURL}/{APIKey}/SMS/{phone}/{code}/{Template} for codes
// and posts notices to {BaseURL}/{APIKey}/ADDON_SERVICES/SEND/TSMS.
type Gateway struct {
	baseURL  string
	apiKey   string
	template string
	senderID string
	client   HTTPDoer
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewGateway(cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Template == "" {
		cfg.Template = "OTP1"
	}
	if cfg.SenderID == "" {
		cfg.SenderID = "TRSTID"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuit.New("sms")
	}
	return &Gateway{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		template: cfg.Template,
		senderID: cfg.SenderID,
		client:   client,
		breaker:  breaker,
		logger:   logger,
	}
}

type providerResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

func (g *Gateway) SendOTP(ctx context.Context, phone, code string) error {
	endpoint := strings.Join([]string{
		g.baseURL,
		url.PathEscape(g.apiKey),
		"SMS",
		url.PathEscape(phone),
		url.PathEscape(code),
		url.PathEscape(g.template),
	}, "/")
	err := g.guard(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build sms request: %w", err)
		}
		return g.do(req)
	})
	if err == nil {
		g.logger.InfoContext(ctx, "otp sms sent", "phone", privacy.MaskPhone(phone))
	}
	return err
}

func (g *Gateway) SendMessage(ctx context.Context, phone, text string) error {
	endpoint := strings.Join([]string{g.baseURL, url.PathEscape(g.apiKey), "ADDON_SERVICES", "SEND", "TSMS"}, "/")
	form := url.Values{"From": {g.senderID}, "To": {phone}, "Msg": {text}}
	err := g.guard(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("build sms request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return g.do(req)
	})
	if err == nil {
		g.logger.InfoContext(ctx, "notice sms sent", "phone", privacy.MaskPhone(phone))
	}
	return err
}

// guard runs call behind the breaker and counts the outcome.
func (g *Gateway) guard(ctx context.Context, call func() error) error {
	if !g.breaker.Allow() {
		sendTotal.WithLabelValues("circuit_open").Inc()
		return ErrCircuitOpen
	}
	err := call()
	if err != nil {
		sendTotal.WithLabelValues("error").Inc()
		if change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "sms circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	sendTotal.WithLabelValues("sent").Inc()
	if change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "sms circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}

func (g *Gateway) do(req *http.Request) error {
	resp, err := g.client.Do(req)
	if err != nil {
		// url.Error echoes the URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("call sms provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if !strings.EqualFold(parsed.Status, "Success") {
		return fmt.Errorf("sms provider rejected message: %s", parsed.Details)
	}
	return nil
}

// LogNotifier stands in for the gateway when no API key is configured. It
// logs the code so local sign-in still works.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(ctx context.Context, phone, code string) error {
	n.logger.InfoContext(ctx, "sms delivery disabled, logging otp", "phone", privacy.MaskPhone(phone), "otp", code)
	return nil
}

func (n *LogNotifier) SendMessage(ctx context.Context, phone, text string) error {
	n.logger.InfoContext(ctx, "sms delivery disabled, logging notice", "phone", privacy.MaskPhone(phone), "text", text)
	return nil
}

// Async sends in the background so a slow provider never holds up a request.
// Errors are logged and dropped. Wait blocks until in-flight sends finish.
type Async struct {
	inner   Notifier
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(inner Notifier, timeout time.Duration, logger *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{inner: inner, logger: logger, timeout: timeout}
}

func (a *Async) SendOTP(ctx context.Context, phone, code string) error {
	a.background(ctx, "otp", phone, func(ctx context.Context) error {
		return a.inner.SendOTP(ctx, phone, code)
	})
	return nil
}

func (a *Async) SendMessage(ctx context.Context, phone, text string) error {
	a.background(ctx, "notice", phone, func(ctx context.Context) error {
		return a.inner.SendMessage(ctx, phone, text)
	})
	return nil
}

func (a *Async) background(ctx context.Context, kind, phone string, send func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()
		if err := send(sendCtx); err != nil {
			a.logger.WarnContext(sendCtx, "failed to send "+kind+" sms", "phone", privacy.MaskPhone(phone), "error", err)
		}
	}()
}

func (a *Async) Wait() {
	a.wg.Wait()
}
