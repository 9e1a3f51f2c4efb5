package reply

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/replykit/replykit/internal/ailink/driver"
	"github.com/replykit/replykit/internal/ailink/driver/gemini"
	"github.com/replykit/replykit/internal/metrics"
)

// Retry defaults.
const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2.0
	DefaultRetryDelay  = 2 * time.Second
)

// Retry policy labels used in logs and metrics.
const (
	PolicyRateLimited = "rate_limited"
	PolicyTransient   = "transient"
)

// Generator performs a single generateContent exchange.
type Generator interface {
	GenerateContent(ctx context.Context, text string) (*gemini.GenerateContentResponse, error)
}

// Record is the metadata kept for a finished reply. It never includes user
// text or generated text.
type Record struct {
	RequestID  string
	Kind       Kind
	Attempts   int
	StatusCode int
	Duration   time.Duration
	At         time.Time
}

// Recorder receives a Record after every Generate call.
type Recorder interface {
	RecordReply(ctx context.Context, rec Record) error
}

// Options configures a Client.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffBase drives the rate-limit delay: BackoffBase^(attempt+2) seconds.
	BackoffBase float64
	// RetryDelay is the fixed delay after any other failure.
	RetryDelay time.Duration

	Throttle *Throttle
	Logger   *logging.Logger
	Recorder Recorder
	Sleep    SleepFunc
	Clock    func() time.Time
}

// DefaultOptions returns the standard retry schedule with a 2s throttle.
func DefaultOptions() Options {
	return Options{
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: DefaultBackoffBase,
		RetryDelay:  DefaultRetryDelay,
		Throttle:    NewThrottle(DefaultMinInterval),
	}
}

// Client turns user text into a reply string. It is safe for concurrent use.
type Client struct {
	generator Generator
	opts      Options
}

// New returns a Client. Invalid retry settings fall back to defaults.
func New(generator Generator, opts Options) (*Client, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BackoffBase < 1 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Throttle == nil {
		opts.Throttle = NewThrottle(DefaultMinInterval)
	}
	if opts.Sleep != nil && opts.Throttle.Sleep == nil {
		opts.Throttle.Sleep = opts.Sleep
	}
	if opts.Clock != nil && opts.Throttle.Clock == nil {
		opts.Throttle.Clock = opts.Clock
	}

	return &Client{generator: generator, opts: opts}, nil
}

// GetReply returns the generated text or a user-facing error message. It never
// returns an error.
func (c *Client) GetReply(ctx context.Context, userInput string) string {
	return c.Generate(ctx, userInput).String()
}

// Generate validates, throttles and calls the API with retries.
func (c *Client) Generate(ctx context.Context, userInput string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	start := c.now()
	outcome := c.generate(ctx, userInput)
	c.finish(ctx, outcome, c.now().Sub(start))
	return outcome
}

func (c *Client) generate(ctx context.Context, userInput string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic("reply")
			outcome = Outcome{Kind: KindUnknown, Detail: fmt.Sprint(r), Attempts: outcome.Attempts}
		}
	}()

	if strings.TrimSpace(userInput) == "" {
		return Outcome{Kind: KindInvalidInput}
	}
	if c == nil || c.generator == nil {
		return Outcome{Kind: KindUnknown, Detail: "reply client not configured"}
	}

	waited, err := c.opts.Throttle.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{Kind: KindUnknown, Detail: ctxErr.Error()}
	}
	if err != nil {
		c.warn("Throttle state unavailable, using in-memory state", zap.Error(err))
	}
	if waited > 0 {
		c.debug("Throttled request", zap.Duration("waited", waited))
	}

	maxRetries := c.opts.MaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptNum := attempt + 1
		c.debug("Calling generateContent", zap.Int("attempt", attemptNum), zap.Int("max_attempts", maxRetries+1))
		metrics.RecordAttempt()

		resp, err := c.generator.GenerateContent(ctx, userInput)
		if err == nil {
			c.complete(ctx)
			outcome = interpret(resp)
			outcome.Attempts = attemptNum
			return outcome
		}

		var perr *driver.ProviderError
		isProviderErr := errors.As(err, &perr) && perr != nil
		if isProviderErr && !perr.RateLimited() {
			c.complete(ctx)
			return Outcome{
				Kind:       KindHTTPError,
				Status:     perr.StatusName(),
				StatusCode: perr.StatusCode,
				Attempts:   attemptNum,
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Kind: KindUnknown, Detail: ctxErr.Error(), Attempts: attemptNum}
		}

		if attempt >= maxRetries {
			c.warn("Retry budget exhausted", zap.Int("attempts", attemptNum), zap.Error(err))
			break
		}

		policy := PolicyTransient
		delay := c.opts.RetryDelay
		if isProviderErr {
			policy = PolicyRateLimited
			delay = c.backoff(attempt)
		}

		c.info("Retrying after delay",
			zap.Int("attempt", attemptNum),
			zap.String("policy", policy),
			zap.Duration("delay", delay),
			zap.Error(err))
		metrics.RecordRetry(policy)

		if err := c.sleep(ctx, delay); err != nil {
			return Outcome{Kind: KindUnknown, Detail: err.Error(), Attempts: attemptNum}
		}
	}

	return Outcome{Kind: KindExhausted, Attempts: maxRetries + 1}
}

// backoff returns BackoffBase^(attempt+2) seconds.
func (c *Client) backoff(attempt int) time.Duration {
	seconds := math.Pow(c.opts.BackoffBase, float64(attempt+2))
	return time.Duration(seconds * float64(time.Second))
}

func (c *Client) complete(ctx context.Context) {
	if err := c.opts.Throttle.Record(context.WithoutCancel(ctx)); err != nil {
		c.warn("Failed to persist throttle state", zap.Error(err))
	}
}

func (c *Client) finish(ctx context.Context, outcome Outcome, elapsed time.Duration) {
	metrics.RecordReply(outcome.Kind.String(), elapsed)

	fields := []zap.Field{
		zap.String("kind", outcome.Kind.String()),
		zap.Int("attempts", outcome.Attempts),
		zap.Duration("duration", elapsed),
	}
	if outcome.StatusCode > 0 {
		fields = append(fields, zap.Int("status_code", outcome.StatusCode))
	}
	if outcome.OK() {
		c.info("Reply generated", fields...)
	} else {
		c.warn("Reply not generated", fields...)
	}

	if c == nil || c.opts.Recorder == nil {
		return
	}
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	rec := Record{
		RequestID:  requestID,
		Kind:       outcome.Kind,
		Attempts:   outcome.Attempts,
		StatusCode: outcome.StatusCode,
		Duration:   elapsed,
		At:         c.now(),
	}
	if err := c.opts.Recorder.RecordReply(context.WithoutCancel(ctx), rec); err != nil {
		c.warn("Failed to record reply", zap.Error(err))
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.opts.Sleep != nil {
		return c.opts.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (c *Client) now() time.Time {
	if c != nil && c.opts.Clock != nil {
		return c.opts.Clock()
	}
	return time.Now().UTC()
}

func (c *Client) debug(msg string, fields ...zap.Field) {
	if c != nil && c.opts.Logger != nil {
		c.opts.Logger.Debug(msg, fields...)
	}
}

func (c *Client) info(msg string, fields ...zap.Field) {
	if c != nil && c.opts.Logger != nil {
		c.opts.Logger.Info(msg, fields...)
	}
}

func (c *Client) warn(msg string, fields ...zap.Field) {
	if c != nil && c.opts.Logger != nil {
		c.opts.Logger.Warn(msg, fields...)
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request ID used for reply records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
