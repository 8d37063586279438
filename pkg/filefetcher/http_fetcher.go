package filefetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const copyBufferSize = 5 * 1024

type httpGetFunc func(ctx context.Context, url string) (resp *http.Response, err error)

type HTTPFetcher struct {
	getter     httpGetFunc
	retries    int
	retryDelay time.Duration
	logger     *log.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

type HTTPOption func(*HTTPFetcher)

// WithRetries sets how many times a request is repeated when it fails
// before the first byte reaches the sink.
func WithRetries(retries int) HTTPOption {
	return func(f *HTTPFetcher) {
		f.retries = retries
	}
}

func WithRetryDelay(delay time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.retryDelay = delay
	}
}

func WithClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.getter = clientGetFunc(client)
	}
}

func WithHTTPLogger(logger *log.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	fetcher := &HTTPFetcher{
		getter:     clientGetFunc(http.DefaultClient),
		retryDelay: 200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(fetcher)
	}

	if fetcher.logger == nil {
		fetcher.logger = log.Default()
	}

	return fetcher
}

func clientGetFunc(client *http.Client) httpGetFunc {
	return func(ctx context.Context, url string) (resp *http.Response, err error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		return client.Do(req)
	}
}

func (fetcher *HTTPFetcher) Fetch(ctx context.Context, url string, sink io.Writer) error {
	for attempt := 0; ; attempt++ {
		retryable, err := fetcher.fetch(ctx, url, sink)
		if err == nil || !retryable || attempt >= fetcher.retries {
			return err
		}

		fetcher.logger.Printf("fetch of %s failed (attempt %d of %d): %s", url, attempt+1, fetcher.retries+1, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrTransferFailed, ctx.Err())
		case <-time.After(fetcher.retryDelay):
		}
	}
}

// fetch performs a single request. retryable is true only when nothing was
// written to sink.
func (fetcher *HTTPFetcher) fetch(ctx context.Context, url string, sink io.Writer) (retryable bool, err error) {
	response, err := fetcher.getter(ctx, url)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return false, ErrResponseStatus404
	} else if response.StatusCode != http.StatusOK {
		return response.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf("%w: %d", ErrResponseStatusNotOK, response.StatusCode)
	}

	buffer := make([]byte, copyBufferSize)
	written, err := io.CopyBuffer(writerOnly{sink}, readerOnly{response.Body}, buffer)
	if err != nil {
		return written == 0 && ctx.Err() == nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	if response.ContentLength >= 0 && written != response.ContentLength {
		return false, fmt.Errorf("%w: received %d of %d bytes", ErrIncompleteTransfer, written, response.ContentLength)
	}

	return false, nil
}

// writerOnly and readerOnly hide ReadFrom/WriteTo so io.CopyBuffer really
// goes through the fixed size buffer.
type writerOnly struct {
	io.Writer
}

type readerOnly struct {
	io.Reader
}

var (
	ErrTransferFailed      = errors.New("transfer failed")
	ErrIncompleteTransfer  = fmt.Errorf("%w: incomplete transfer", ErrTransferFailed)
	ErrResponseStatusNotOK = errors.New("response returned non-200 status code")
	ErrResponseStatus404   = errors.New("response returned 404 status code")
)
