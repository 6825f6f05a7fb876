package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AttachmentFetcher downloads attachment payloads for re-upload. maxSize is
// a hard cap; payloads exceeding it produce an error so the caller can skip
// the file.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, url string, maxSize int64) ([]byte, error)
}

type httpAttachmentFetcher struct {
	client *http.Client
}

func newAttachmentFetcher() AttachmentFetcher {
	return &httpAttachmentFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *httpAttachmentFetcher) Fetch(ctx context.Context, url string, maxSize int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attachment request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxSize {
		return nil, fmt.Errorf("attachment exceeds size limit: %d > %d", resp.ContentLength, maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment body: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("attachment exceeds size limit after download")
	}

	return data, nil
}
