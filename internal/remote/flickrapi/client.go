// Package flickrapi implements remote.Service against the Flickr REST API
// with OAuth 1.0a signed calls. One client serves one account; calls are
// strictly sequential, matching how the engine drives them.
package flickrapi

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/masci/flickr.v3"

	"setkeeper/internal/remote"
)

// Config carries the credentials for one Flickr account.
type Config struct {
	APIKey           string
	APISecret        string
	OAuthToken       string
	OAuthTokenSecret string
	// UserID scopes searches and listings; "me" when empty.
	UserID string
}

// Client is the Flickr-backed remote.Service.
type Client struct {
	fc     *flickr.FlickrClient
	userID string
	log    *zap.Logger
}

var _ remote.Service = (*Client)(nil)

// New builds a Client. Missing credentials fail here, before any call.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("flickr api key and secret are required")
	}
	if cfg.OAuthToken == "" || cfg.OAuthTokenSecret == "" {
		return nil, fmt.Errorf("flickr oauth token and token secret are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	fc := flickr.NewFlickrClient(cfg.APIKey, cfg.APISecret)
	fc.OAuthToken = cfg.OAuthToken
	fc.OAuthTokenSecret = cfg.OAuthTokenSecret

	userID := cfg.UserID
	if userID == "" {
		userID = "me"
	}
	return &Client{fc: fc, userID: userID, log: log}, nil
}

// call performs one signed API call. Transport failures come back as
// transient remote errors; API-level failures are classified by code and
// message.
func (c *Client) call(ctx context.Context, op, method string, args map[string]string, resp flickr.FlickrResponse, post bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.fc.Init()
	c.fc.Args.Set("method", method)
	for k, v := range args {
		c.fc.Args.Set(k, v)
	}
	c.fc.OAuthSign()

	var err error
	if post {
		err = flickr.DoPost(c.fc, resp)
	} else {
		err = flickr.DoGet(c.fc, resp)
	}
	return c.wrap(op, resp, err)
}

// wrap normalizes the (response, error) pair the flickr library hands back.
// The library reports API failures both through the error and through the
// parsed response; the response's code wins when present.
func (c *Client) wrap(op string, resp flickr.FlickrResponse, err error) error {
	if resp != nil && resp.HasErrors() {
		return apiError(op, resp.ErrorCode(), resp.ErrorMsg())
	}
	if err != nil {
		return &remote.Error{Op: op, Class: remote.ClassTransient, Err: err}
	}
	return nil
}

// apiError classifies a Flickr API failure. Codes 105 and 106 are the
// documented "service currently unavailable" / "write operation failed"
// codes. Duplicate memberships come back as an error whose message says the
// photo is already in the set.
func apiError(op string, code int, msg string) *remote.Error {
	class := remote.ClassPermanent
	switch {
	case code == 105 || code == 106:
		class = remote.ClassTransient
	case strings.Contains(strings.ToLower(msg), "already in"):
		class = remote.ClassBenign
	}
	return &remote.Error{Op: op, Code: code, Message: msg, Class: class}
}
