// Package captcha owns the challenge token required by every page
// request. One token is live at a time; the server decides staleness,
// so there is no local expiry; callers refresh when a page is refused.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/credit-crawler/internal/transport"
)

// Token pairs the challenge code with the millisecond nonce it was
// requested under. The server validates them together; mixing a code
// with another refresh's nonce gets the request rejected.
type Token struct {
	Code           string
	IssuedAtMillis int64
}

// Getter is the slice of transport.Client the controller needs.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Decryptor is the slice of codec.Codec the controller needs.
type Decryptor interface {
	DecryptInto(b64 string, v any) error
}

// envelope is the getCreateCode response wrapper.
type envelope struct {
	Code int    `json:"code"`
	Data string `json:"data"`
}

// Controller holds the current token and knows how to replace it.
// Not safe for concurrent use; the crawl is single-threaded.
type Controller struct {
	client      Getter
	codec       Decryptor
	baseURL     string
	maxAttempts int
	token       *Token

	// nowMillis is swapped in tests.
	nowMillis func() int64
}

// New builds a Controller with no token held.
func New(client Getter, codec Decryptor, baseURL string, maxAttempts int) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Controller{
		client:      client,
		codec:       codec,
		baseURL:     baseURL,
		maxAttempts: maxAttempts,
		nowMillis:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Current returns the held token, if any.
func (c *Controller) Current() (Token, bool) {
	if c.token == nil {
		return Token{}, false
	}
	return *c.token, true
}

// Refresh obtains a new challenge token, replacing any held one. Each
// attempt uses a fresh nonce. Exhausting the attempt budget is fatal
// for the run: no further pages can be authorized.
func (c *Controller) Refresh(ctx context.Context) (Token, error) {
	endpoint := c.baseURL + "/getCreateCode"

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		nonce := c.nowMillis()
		tok, err := c.request(ctx, endpoint, nonce)
		if err == nil {
			c.token = &tok
			zap.L().Debug("captcha refreshed", zap.Int64("nonce", nonce))
			return tok, nil
		}

		lastErr = err
		zap.L().Warn("captcha refresh failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err),
		)
	}

	return Token{}, &transport.NetworkError{
		URL: endpoint,
		Err: eris.Wrap(lastErr, "captcha attempts exhausted"),
	}
}

func (c *Controller) request(ctx context.Context, endpoint string, nonce int64) (Token, error) {
	body, err := c.client.Get(ctx, fmt.Sprintf("%s?codeValue=%d", endpoint, nonce))
	if err != nil {
		return Token{}, err
	}

	var env envelope
	if err := unmarshalEnvelope(body, &env); err != nil {
		return Token{}, err
	}
	if env.Code != 0 {
		return Token{}, eris.Errorf("challenge endpoint returned code %d", env.Code)
	}

	var code string
	if err := c.codec.DecryptInto(env.Data, &code); err != nil {
		return Token{}, err
	}

	return Token{Code: code, IssuedAtMillis: nonce}, nil
}

func unmarshalEnvelope(b []byte, env *envelope) error {
	if err := json.Unmarshal(b, env); err != nil {
		return eris.Wrap(err, "challenge envelope")
	}
	return nil
}
