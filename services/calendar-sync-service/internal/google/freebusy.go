// Package google reads busy time from Google Calendar through the FreeBusy API.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrDisconnected means the stored grant no longer works and the user has to reconnect.
var ErrDisconnected = errors.New("calendar connection revoked")

type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type Busy struct {
	Start time.Time
	End   time.Time
}

type Result struct {
	Busy []Busy
	// Token is the token in use after the call, refreshed when the old one expired.
	Token Token
}

type Options struct {
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
	// HTTPClient is used for both the token endpoint and API calls.
	HTTPClient *http.Client
	MaxRetries int
	RetryBase  time.Duration
}

type Client struct {
	oauth      *oauth2.Config
	endpoint   string
	base       *http.Client
	maxRetries int
	retryBase  time.Duration
	sleep      func(context.Context, time.Duration) error
}

// LoadConfig reads an OAuth client credentials file as downloaded from the Google console.
func LoadConfig(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return googleoauth.ConfigFromJSON(data, calendar.CalendarReadonlyScope)
}

func New(cfg *oauth2.Config, opts Options) *Client {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	return &Client{
		oauth:      cfg,
		endpoint:   opts.Endpoint,
		base:       opts.HTTPClient,
		maxRetries: opts.MaxRetries,
		retryBase:  opts.RetryBase,
		sleep:      sleepCtx,
	}
}

// FreeBusy returns the busy periods of calendarID in [start, end).
func (c *Client) FreeBusy(ctx context.Context, tok Token, calendarID string, start, end time.Time) (Result, error) {
	if c.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	}
	ts := c.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		TokenType:    "Bearer",
	})
	ts = oauth2.ReuseTokenSource(nil, ts)

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return Result{}, err
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	var resp *calendar.FreeBusyResponse
	for attempt := 0; ; attempt++ {
		resp, err = svc.Freebusy.Query(req).Context(ctx).Do()
		if err == nil {
			break
		}
		if revoked(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		if !rateLimited(err) || attempt >= c.maxRetries {
			return Result{}, err
		}
		if err := c.sleep(ctx, c.retryBase<<attempt); err != nil {
			return Result{}, err
		}
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return Result{}, fmt.Errorf("calendar %s missing from freebusy response", calendarID)
	}
	for _, e := range cal.Errors {
		if e.Reason == "notFound" || e.Reason == "forbidden" {
			return Result{}, fmt.Errorf("%w: calendar %s: %s", ErrDisconnected, calendarID, e.Reason)
		}
		return Result{}, fmt.Errorf("calendar %s: %s", calendarID, e.Reason)
	}

	out := Result{Busy: make([]Busy, 0, len(cal.Busy))}
	for _, p := range cal.Busy {
		s, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return Result{}, fmt.Errorf("busy start %q: %w", p.Start, err)
		}
		e, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return Result{}, fmt.Errorf("busy end %q: %w", p.End, err)
		}
		if !e.After(s) {
			continue
		}
		out.Busy = append(out.Busy, Busy{Start: s.UTC(), End: e.UTC()})
	}

	if current, err := ts.Token(); err == nil {
		out.Token = Token{AccessToken: current.AccessToken, RefreshToken: current.RefreshToken, Expiry: current.Expiry}
		if out.Token.RefreshToken == "" {
			out.Token.RefreshToken = tok.RefreshToken
		}
	} else {
		out.Token = tok
	}
	return out, nil
}

func revoked(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return re.ErrorCode == "invalid_grant" || re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized
	}
	var ge *googleapi.Error
	return errors.As(err, &ge) && ge.Code == http.StatusUnauthorized
}

func rateLimited(err error) bool {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return false
	}
	if ge.Code == http.StatusTooManyRequests {
		return true
	}
	for _, item := range ge.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
