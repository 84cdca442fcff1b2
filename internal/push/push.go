package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"vakit-notify/internal/models"
)

type Outcome int

const (
	Delivered Outcome = iota
	// Transient covers network errors, timeouts and unexpected statuses.
	// The subscription is kept.
	Transient
	// Permanent means the push service reported the endpoint gone. The
	// caller must delete the subscription.
	Permanent
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Result struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

func (r Result) Permanent() bool { return r.Outcome == Permanent }

// Classify maps a push service response status to an outcome. 404 and 410
// are the two "subscription expired or unsubscribed" answers.
func Classify(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return Delivered
	case status == http.StatusNotFound || status == http.StatusGone:
		return Permanent
	default:
		return Transient
	}
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int // seconds the push service keeps an undelivered message
	RatePerSec      int
	Timeout         time.Duration
	HTTPClient      webpush.HTTPClient
}

// Sender delivers web push messages with VAPID authentication.
type Sender struct {
	cfg     Config
	limiter *rate.Limiter
}

func NewSender(cfg Config) *Sender {
	rps := max(1, cfg.RatePerSec)
	// webpush-go prefixes "mailto:" itself.
	cfg.Subscriber = strings.TrimPrefix(cfg.Subscriber, "mailto:")
	return &Sender{cfg: cfg, limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

func (s *Sender) PublicKey() string { return s.cfg.VAPIDPublicKey }

// Deliver sends one payload to one subscription. It never returns an error
// directly; failures are classified in the Result.
func (s *Sender) Deliver(ctx context.Context, sub models.PushSubscription, payload models.PushPayload) Result {
	message, err := json.Marshal(payload)
	if err != nil {
		return Result{Outcome: Transient, Err: err}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return Result{Outcome: Transient, Err: err}
	}

	ws := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, message, ws, &webpush.Options{
		HTTPClient:      s.cfg.HTTPClient,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return Result{Outcome: Transient, Err: err}
	}
	defer resp.Body.Close()

	res := Result{Outcome: Classify(resp.StatusCode), StatusCode: resp.StatusCode}
	if res.Outcome != Delivered {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		res.Err = fmt.Errorf("push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return res
}

// EnsureVAPIDKeys returns the given key pair, generating a new one when
// either half is missing.
func EnsureVAPIDKeys(publicKey, privateKey string) (pub, priv string, generated bool, err error) {
	if publicKey != "" && privateKey != "" {
		return publicKey, privateKey, false, nil
	}
	priv, pub, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", false, fmt.Errorf("generate VAPID keys: %w", err)
	}
	return pub, priv, true, nil
}
