package crawler

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/credit-crawler/internal/captcha"
	"github.com/sells-group/credit-crawler/internal/model"
)

// PageDocument is one decrypted page payload. Total is authoritative on
// page 1 only; later pages' totals are not re-validated.
type PageDocument struct {
	Total int               `json:"total"`
	Data  []model.RawRecord `json:"data"`
}

// pageEnvelope is the transport-level wrapper around the ciphertext.
type pageEnvelope struct {
	Data string `json:"data"`
}

// Getter is the slice of transport.Client the fetcher needs.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Decryptor is the slice of codec.Codec the fetcher needs.
type Decryptor interface {
	DecryptInto(b64 string, v any) error
}

// TokenSource supplies the live captcha token and its replacement.
type TokenSource interface {
	Current() (captcha.Token, bool)
	Refresh(ctx context.Context) (captcha.Token, error)
}

// Fetcher retrieves and decrypts a single page. It performs no
// recovery of its own: network and decrypt errors propagate unchanged,
// and the driver decides what failure means.
type Fetcher struct {
	client     Getter
	codec      Decryptor
	tokens     TokenSource
	baseURL    string
	nameFilter string
	pageSize   int
}

// NewFetcher builds a page fetcher.
func NewFetcher(client Getter, codec Decryptor, tokens TokenSource, baseURL, nameFilter string, pageSize int) *Fetcher {
	return &Fetcher{
		client:     client,
		codec:      codec,
		tokens:     tokens,
		baseURL:    baseURL,
		nameFilter: nameFilter,
		pageSize:   pageSize,
	}
}

// FetchPage fetches page number page and decrypts it into a
// PageDocument.
func (f *Fetcher) FetchPage(ctx context.Context, page int) (*PageDocument, error) {
	tok, ok := f.tokens.Current()
	if !ok {
		return nil, eris.New("crawler: no captcha token held")
	}

	body, err := f.client.Get(ctx, f.pageURL(page, tok))
	if err != nil {
		return nil, err
	}

	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "crawler: page envelope")
	}
	if env.Data == "" {
		return nil, eris.New("crawler: page envelope has no data field")
	}

	var doc PageDocument
	if err := f.codec.DecryptInto(env.Data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// pageURL builds the page request. Code and codeValue always come from
// the same token: the server validates them as a pair.
func (f *Fetcher) pageURL(page int, tok captcha.Token) string {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(f.pageSize))
	q.Set("cioName", f.nameFilter)
	q.Set("page", strconv.Itoa(page))
	q.Set("code", tok.Code)
	q.Set("codeValue", strconv.FormatInt(tok.IssuedAtMillis, 10))
	return f.baseURL + "/getCurrentIntegrityPage?" + q.Encode()
}
