package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// maxRedirects bounds the redirect chain followed per download.
const maxRedirects = 10

var errRedirectBound = errors.New("redirect bound exceeded")

func newDownloadClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errRedirectBound
			}
			return nil
		},
	}
}

// download fetches url into dest, streaming to disk.
func (p *Provisioner) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return downloadFailedError{url: url, detail: err.Error()}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, errRedirectBound) {
			return tooManyRedirectsError{url: url}
		}
		return downloadFailedError{url: url, detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return downloadFailedError{url: url, detail: fmt.Sprintf("unexpected status %s", resp.Status)}
	}
	f, err := os.Create(dest)
	if err != nil {
		return downloadFailedError{url: url, detail: err.Error()}
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return downloadFailedError{url: url, detail: err.Error()}
	}
	p.log.Debug().Str("url", url).Int64("bytes", n).Msg("downloaded archive")
	return nil
}
