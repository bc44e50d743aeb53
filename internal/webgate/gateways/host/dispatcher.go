// Package host adapts filter verdicts to the actions a web-shell host must
// take: cancel or proceed, return an empty response, dial, or prompt.
package host

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/haukened/rr-webgate/internal/webgate/common/log"
	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/services/filter"
)

// ErrNoHandler is returned when a verdict needs a collaborator that the host
// did not provide, e.g. no dialer is installed for a tel: link.
var ErrNoHandler = errors.New("no handler for verdict")

// Response is the definitively-empty response returned in place of a denied
// sub-resource.
type Response struct {
	MimeType string
	Encoding string
	Body     []byte
}

// emptyResponse is what a denied sub-resource resolves to.
var emptyResponse = Response{MimeType: "text/javascript", Encoding: "UTF-8"}

// Dispatcher turns verdicts into host actions.
type Dispatcher struct {
	interceptor filter.RequestInterceptor
	dialer      Dialer
	prompter    Prompter
	opener      ExternalOpener
	logger      log.Logger
	prompts     singleflight.Group
}

// Options configures a Dispatcher. Collaborators are optional; a verdict that
// needs a missing one fails with ErrNoHandler.
type Options struct {
	Interceptor filter.RequestInterceptor
	Dialer      Dialer
	Prompter    Prompter
	Opener      ExternalOpener
	Logger      log.Logger
}

func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Dispatcher{
		interceptor: opts.Interceptor,
		dialer:      opts.Dialer,
		prompter:    opts.Prompter,
		opener:      opts.Opener,
		logger:      logger,
	}
}

// HandleResource returns nil when the resource may load, or the empty
// response the host must serve instead.
func (d *Dispatcher) HandleResource(url string) *Response {
	if d.interceptor.DecideResource(url).IsAllowed() {
		return nil
	}
	r := emptyResponse
	return &r
}

// HandleNavigation reports whether the main frame may proceed to url.
// Intercepts and prompts are carried out before returning; the shell itself
// never navigates for them. Errors come from collaborators only.
func (d *Dispatcher) HandleNavigation(ctx context.Context, url string) (bool, error) {
	v := d.interceptor.DecideNavigation(url)
	switch v.Kind {
	case domain.VerdictAllow:
		return true, nil
	case domain.VerdictIntercept:
		return false, d.intercept(ctx, v)
	case domain.VerdictDenyWithPrompt:
		return false, d.prompt(ctx, v.URL)
	default:
		return false, nil
	}
}

func (d *Dispatcher) intercept(ctx context.Context, v domain.Verdict) error {
	switch v.Action {
	case domain.ActionDial:
		if d.dialer == nil {
			return fmt.Errorf("%w: %s", ErrNoHandler, v.Action)
		}
		if err := d.dialer.Dial(ctx, v.URL); err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrNoHandler, v.Action)
	}
}

// prompt asks once per URL at a time: concurrent navigations to the same
// destination share a single confirmation.
func (d *Dispatcher) prompt(ctx context.Context, url string) error {
	if d.prompter == nil || d.opener == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, domain.VerdictDenyWithPrompt)
	}
	_, err, shared := d.prompts.Do(url, func() (any, error) {
		ok, err := d.prompter.Confirm(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("confirm: %w", err)
		}
		if !ok {
			d.logger.Debug(map[string]any{"url": url}, "external open declined")
			return nil, nil
		}
		if err := d.opener.Open(ctx, url); err != nil {
			return nil, fmt.Errorf("open external: %w", err)
		}
		d.logger.Info(map[string]any{"url": url}, "opened externally")
		return nil, nil
	})
	if shared {
		d.logger.Debug(map[string]any{"url": url}, "prompt shared with concurrent navigation")
	}
	return err
}
