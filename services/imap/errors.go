package imap

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	er "github.com/mailsift/mailsift/internal/errors"
)

// Providers do not agree on how they phrase rejections, so transport
// errors are classified off the response text the way the connection
// handling always has been.
var quotaIndicators = []string{
	"too many",
	"rate limit",
	"quota",
	"throttl",
	"[limit]",
	"overquota",
	"temporarily blocked",
}

// classifyListError wraps a UID SEARCH failure. Listing happens before
// any message is touched, so everything here is fatal to the run:
// quota rejections keep their own identity, the rest is connectivity.
func classifyListError(err error) error {
	if err == nil {
		return nil
	}
	if matchesAny(err, quotaIndicators) {
		return errors.Wrap(er.ErrQuotaExceeded, err.Error())
	}
	return errors.Wrap(er.ErrConnectivity, err.Error())
}

// classifyFetchError wraps a UID FETCH failure. Quota rejections abort
// the run; everything else mid-fetch is transient and earns one retry.
func classifyFetchError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if matchesAny(err, quotaIndicators) {
		return errors.Wrap(er.ErrQuotaExceeded, err.Error())
	}
	return errors.Wrap(er.ErrTransientFetch, err.Error())
}

func classifyConnectError(err error) error {
	if err == nil {
		return nil
	}
	if matchesAny(err, quotaIndicators) {
		return errors.Wrap(er.ErrQuotaExceeded, err.Error())
	}
	return errors.Wrap(er.ErrConnectivity, err.Error())
}

func matchesAny(err error, indicators []string) bool {
	text := strings.ToLower(err.Error())
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}
