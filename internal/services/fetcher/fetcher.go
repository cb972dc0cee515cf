package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
)

// maxFrameSize bounds a single snapshot body.
const maxFrameSize = 32 << 20

type HTTPFetcher struct {
	client       *http.Client
	snapshotPath string
	maxSize      int64
}

func New(timeout time.Duration, snapshotPath string) *HTTPFetcher {
	return &HTTPFetcher{
		client:       &http.Client{Timeout: timeout},
		snapshotPath: strings.TrimPrefix(snapshotPath, "/"),
		maxSize:      maxFrameSize,
	}
}

func (f *HTTPFetcher) URL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimSuffix(address, "/") + "/" + f.snapshotPath
	}

	return fmt.Sprintf("http://%s/%s", address, f.snapshotPath)
}

// Fetch performs one blocking GET of the device snapshot.
func (f *HTTPFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	const op = "services.fetcher.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf("%s: %w: %s", op, errs.ErrFetchFailed, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrFetchFailed, err)
	}

	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%s: %w: body exceeds %d bytes", op, errs.ErrFetchFailed, f.maxSize)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w: empty body", op, errs.ErrFetchFailed)
	}

	return data, nil
}
