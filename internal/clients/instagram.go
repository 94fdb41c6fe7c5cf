package clients

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/services"
)

const instagramHomeURL = "https://www.instagram.com/"

// Compile-time interface compliance check
var _ services.Provider = (*InstagramProvider)(nil)

// InstagramProvider publishes to an Instagram business account reached
// through the Facebook Page it is linked to.
type InstagramProvider struct {
	*metaProvider
}

// NewInstagramProvider creates an Instagram adapter
func NewInstagramProvider(cfg ProviderConfig) *InstagramProvider {
	return &InstagramProvider{metaProvider: newMetaProvider(services.PlatformInstagram, cfg)}
}

// Platform returns the platform identifier
func (p *InstagramProvider) Platform() string {
	return services.PlatformInstagram
}

type igAccount struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// ResolveIdentity finds the business account linked to one of the user's
// pages. A previously stored business account wins when any page still links
// it; otherwise the first page with a linked account is used. There is no
// personal-profile fallback on Instagram.
func (p *InstagramProvider) ResolveIdentity(ctx context.Context, userToken, preferredAccountID string) (*services.Identity, error) {
	pages, err := p.graph.listPages(ctx, userToken)
	if err != nil {
		return nil, err
	}

	var (
		first    *services.Identity
		firstErr error
		sawPage  bool
	)
	for _, page := range pages {
		if page.AccessToken == "" {
			continue
		}
		sawPage = true

		identity, err := p.linkedAccount(ctx, page)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if identity == nil {
			continue
		}
		if preferredAccountID == "" || identity.ID == preferredAccountID {
			return identity, nil
		}
		if first == nil {
			first = identity
		}
	}

	switch {
	case first != nil:
		p.logger.Info("stored Instagram account is no longer linked to any page",
			zap.String("preferred", preferredAccountID),
			zap.String("resolved", first.ID),
		)
		return first, nil
	case firstErr != nil:
		return nil, firstErr
	case !sawPage:
		return nil, services.NewError(services.KindAccountInfoFailed,
			"no Facebook Page found; Instagram business accounts are managed through a Page")
	default:
		return nil, services.NewError(services.KindAccountInfoFailed,
			"no Facebook Page has a linked Instagram business account")
	}
}

// linkedAccount returns the business account behind page, or nil when the
// page has none.
func (p *InstagramProvider) linkedAccount(ctx context.Context, page graphPage) (*services.Identity, error) {
	var resp struct {
		Business *igAccount `json:"instagram_business_account"`
	}
	err := p.graph.get(ctx, "fetch linked account", "/"+url.PathEscape(page.ID), page.AccessToken, url.Values{
		"fields": {"instagram_business_account{id,username,name,profile_picture_url}"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Business == nil || resp.Business.ID == "" {
		return nil, nil
	}

	name := resp.Business.Name
	if name == "" {
		name = resp.Business.Username
	}
	return &services.Identity{
		ID:       resp.Business.ID,
		Name:     name,
		Username: resp.Business.Username,
		Picture:  resp.Business.ProfilePictureURL,
		Token:    page.AccessToken,
	}, nil
}

// publishToken is the linked page's token when known, else the user token
func publishToken(conn *services.Connection) string {
	if conn.PageAccessToken != "" {
		return conn.PageAccessToken
	}
	return conn.AccessToken
}

func requireBusinessAccount(conn *services.Connection) error {
	if conn.AccountID == "" || conn.AccountID == services.PersonalAccountID {
		return services.NewError(services.KindAccountInfoFailed, "no Instagram business account is connected")
	}
	return nil
}

// FetchProfile reads business account metadata
func (p *InstagramProvider) FetchProfile(ctx context.Context, conn *services.Connection) (*services.Profile, error) {
	if err := requireBusinessAccount(conn); err != nil {
		return nil, err
	}

	var acct struct {
		igAccount
		FollowersCount int64 `json:"followers_count"`
		FollowsCount   int64 `json:"follows_count"`
		MediaCount     int64 `json:"media_count"`
	}
	err := p.graph.get(ctx, "fetch profile", "/"+url.PathEscape(conn.AccountID), publishToken(conn), url.Values{
		"fields": {"id,username,name,profile_picture_url,followers_count,follows_count,media_count"},
	}, &acct)
	if err != nil {
		return nil, err
	}

	return &services.Profile{
		AccountID:      acct.ID,
		Name:           acct.Name,
		Username:       acct.Username,
		Picture:        acct.ProfilePictureURL,
		FollowersCount: acct.FollowersCount,
		FollowingCount: acct.FollowsCount,
		PostsCount:     acct.MediaCount,
	}, nil
}

// ValidateContent requires an image; Instagram has no text-only posts
func (p *InstagramProvider) ValidateContent(content services.PostContent) error {
	if content.ImageURL == "" {
		return services.NewError(services.KindMissingRequiredMedia, "Instagram posts require an image")
	}
	return nil
}

// PublishCandidates is the stored business account alone
func (p *InstagramProvider) PublishCandidates(ctx context.Context, conn *services.Connection) ([]services.PublishCandidate, error) {
	if err := requireBusinessAccount(conn); err != nil {
		return nil, err
	}
	return []services.PublishCandidate{{
		AccountID:   conn.AccountID,
		AccountName: conn.AccountName,
		Token:       publishToken(conn),
	}}, nil
}

// Publish creates a media container, then publishes it.
// A failed container step returns before the publish step is attempted.
func (p *InstagramProvider) Publish(ctx context.Context, cand services.PublishCandidate, content services.PostContent) (*services.PublishResult, error) {
	if err := p.ValidateContent(content); err != nil {
		return nil, err
	}
	account := "/" + url.PathEscape(cand.AccountID)

	// Step 1: media container
	var container struct {
		ID string `json:"id"`
	}
	form := url.Values{"image_url": {content.ImageURL}}
	if content.Text != "" {
		form.Set("caption", content.Text)
	}
	if err := p.graph.post(ctx, "create media container", account+"/media", cand.Token, form, &container); err != nil {
		return nil, err
	}
	if container.ID == "" {
		return nil, &services.ProviderFailure{
			Platform:   services.PlatformInstagram,
			Operation:  "create media container",
			StatusCode: http.StatusOK,
			Message:    "response carried no creation id",
		}
	}

	// Step 2: publish the container
	var published struct {
		ID string `json:"id"`
	}
	err := p.graph.post(ctx, "publish media", account+"/media_publish", cand.Token, url.Values{
		"creation_id": {container.ID},
	}, &published)
	if err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, &services.ProviderFailure{
			Platform:   services.PlatformInstagram,
			Operation:  "publish media",
			StatusCode: http.StatusOK,
			Message:    "response carried no media id",
		}
	}

	return &services.PublishResult{PostID: published.ID, URL: p.permalink(ctx, published.ID, cand.Token)}, nil
}

// permalink looks up the public URL of a media object. The post is already
// live, so a failed lookup falls back to the Instagram home URL.
func (p *InstagramProvider) permalink(ctx context.Context, mediaID, token string) string {
	var media struct {
		Permalink string `json:"permalink"`
	}
	err := p.graph.get(ctx, "fetch permalink", "/"+url.PathEscape(mediaID), token, url.Values{
		"fields": {"permalink"},
	}, &media)
	if err != nil || media.Permalink == "" {
		p.logger.Debug("permalink lookup failed", zap.String("media_id", mediaID), zap.Error(err))
		return instagramHomeURL
	}
	return media.Permalink
}
