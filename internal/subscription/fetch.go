package subscription

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"kimi-assistant/internal/singbox"
)

// Source produces the current subscription.
type Source interface {
	Fetch(ctx context.Context) (singbox.Document, error)
}

// Fetcher downloads a subscription bundle: a zip archive whose first
// file is a sing-box configuration listing the servers.
type Fetcher struct {
	url    string
	client *resty.Client
}

func NewFetcher(url string) *Fetcher {
	return &Fetcher{
		url: url,
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetRetryCount(2).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
	}
}

func (f *Fetcher) Fetch(ctx context.Context) (singbox.Document, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("download subscription: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download subscription: status %d", resp.StatusCode())
	}
	return Unpack(resp.Body())
}

// Unpack decodes the first regular file of a zip bundle.
func Unpack(bundle []byte) (singbox.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return nil, fmt.Errorf("open subscription bundle: %w", err)
	}

	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}
		defer rc.Close()

		doc, err := singbox.Decode(rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("subscription bundle is empty")
}
