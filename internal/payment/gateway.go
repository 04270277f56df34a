package payment

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nekogravitycat/venue-booking-backend/internal/config"
)

// maxVerifyBody bounds what is read from the verification endpoint.
const maxVerifyBody = 64 << 10

// Gateway is the external payment provider.
type Gateway interface {
	// PaymentURL returns the address the payer is redirected to.
	PaymentURL(reference, bookingCode string, amount int64) string
	// Verify asks the gateway for the current state of a payment.
	Verify(ctx context.Context, reference string) (*Verification, error)
	// Authentic reports whether callback fields carry a valid signature.
	Authentic(fields map[string]string) bool
}

// Client talks to an Eazypay-style gateway: query-string redirects with
// AES encrypted values, SHA-512 signed callbacks and a url-encoded
// verification endpoint.
type Client struct {
	cfg        config.PaymentConfig
	block      cipher.Block
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.PaymentConfig) (*Client, error) {
	block, err := aes.NewCipher([]byte(cfg.AESKey))
	if err != nil {
		return nil, fmt.Errorf("payment aes key: %w", err)
	}

	burst := int(cfg.VerifyRPS)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		cfg:        cfg,
		block:      block,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.VerifyRPS), burst),
	}, nil
}

func (c *Client) PaymentURL(reference, bookingCode string, amount int64) string {
	amountStr := strconv.FormatInt(amount, 10)
	mandatory := strings.Join([]string{reference, c.cfg.SubMerchantID, amountStr, bookingCode}, "|")

	q := url.Values{}
	q.Set("merchantid", c.cfg.MerchantID)
	q.Set("mandatory fields", encryptECB(c.block, mandatory))
	q.Set("optional fields", "")
	q.Set("returnurl", encryptECB(c.block, c.cfg.ReturnURL))
	q.Set("Reference No", encryptECB(c.block, reference))
	q.Set("submerchantid", encryptECB(c.block, c.cfg.SubMerchantID))
	q.Set("transaction amount", encryptECB(c.block, amountStr))
	q.Set("paymode", encryptECB(c.block, c.cfg.PayMode))

	return c.cfg.GatewayURL + "?" + q.Encode()
}

func (c *Client) Authentic(fields map[string]string) bool {
	return validSignature(fields, c.cfg.AESKey)
}

func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	q := url.Values{}
	q.Set("merchantid", c.cfg.MerchantID)
	q.Set("pgreferenceno", reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.VerifyURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: verify returned status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerifyBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read verify response: %w", ErrGatewayUnavailable, err)
	}
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse verify response: %w", ErrGatewayUnavailable, err)
	}

	raw := values.Get("status")
	outcome, ok := ParseOutcome(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrGatewayUnavailable, raw)
	}

	return &Verification{
		Reference:    reference,
		Outcome:      outcome,
		RawStatus:    raw,
		GatewayTxnID: values.Get("ezpaytranid"),
		Amount:       values.Get("amount"),
	}, nil
}
