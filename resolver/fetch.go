package resolver

import (
	"context"
	"errors"
	"net/url"

	"github.com/pilacorp/go-did-resolver/internal/logger"
)

// Fetch retrieves target through opts.Fetcher on behalf of the DID id.
// Only https URLs are fetched. Failures that are not already resolution
// errors are reported as retryable transport errors.
func Fetch(ctx context.Context, opts *Options, id, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, NewError(KindInvalidDID, id, err, "derived URL %q", target)
	}
	if u.Scheme != "https" {
		return nil, NewError(KindInsecureTransport, id, nil, "refusing to fetch %s", target)
	}
	if opts == nil || opts.Fetcher == nil {
		return nil, NewError(KindTransport, id, nil, "no fetcher configured")
	}

	body, err := opts.Fetcher.Fetch(ctx, target)
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			if re.DID == "" {
				copied := *re
				copied.DID = id
				return nil, &copied
			}
			return nil, re
		}
		return nil, NewError(KindTransport, id, err, "fetch %s", target)
	}

	logger.Component("resolver").Debug("fetched DID resource", "did", id, "url", target, "bytes", len(body))
	return body, nil
}
