package clients

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/services"
)

const facebookPostURL = "https://www.facebook.com/"

// Compile-time interface compliance check
var _ services.Provider = (*FacebookProvider)(nil)

// FacebookProvider publishes to Facebook Pages, falling back to the
// personal profile when the user manages no usable page.
type FacebookProvider struct {
	*metaProvider
}

// NewFacebookProvider creates a Facebook adapter
func NewFacebookProvider(cfg ProviderConfig) *FacebookProvider {
	return &FacebookProvider{metaProvider: newMetaProvider(services.PlatformFacebook, cfg)}
}

// Platform returns the platform identifier
func (p *FacebookProvider) Platform() string {
	return services.PlatformFacebook
}

type graphUser struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Picture graphPicture `json:"picture"`
}

// ResolveIdentity picks a managed page, or the personal profile when the
// pages call fails or yields no page with a token.
func (p *FacebookProvider) ResolveIdentity(ctx context.Context, userToken, preferredAccountID string) (*services.Identity, error) {
	pages, err := p.graph.listPages(ctx, userToken)
	if err != nil {
		p.logger.Info("listing pages failed, using personal profile", zap.Error(err))
	}

	if page, ok := pickPage(pages, preferredAccountID); ok {
		return &services.Identity{
			ID:      page.ID,
			Name:    page.Name,
			Picture: page.Picture.Data.URL,
			Token:   page.AccessToken,
			IsPage:  true,
		}, nil
	}

	me, err := p.fetchMe(ctx, userToken)
	if err != nil {
		return nil, err
	}
	return &services.Identity{
		ID:      services.PersonalAccountID,
		Name:    me.Name,
		Picture: me.Picture.Data.URL,
		Token:   userToken,
	}, nil
}

func (p *FacebookProvider) fetchMe(ctx context.Context, token string) (*graphUser, error) {
	var me graphUser
	err := p.graph.get(ctx, "fetch profile", "/me", token, url.Values{
		"fields": {"id,name,picture{url}"},
	}, &me)
	if err != nil {
		return nil, err
	}
	return &me, nil
}

// FetchProfile reads page metadata for a page identity, or the user's own
// profile for "me". The personal profile reports no AccountID so the stored
// "me" is kept.
func (p *FacebookProvider) FetchProfile(ctx context.Context, conn *services.Connection) (*services.Profile, error) {
	if !conn.HasPageIdentity() {
		me, err := p.fetchMe(ctx, conn.AccessToken)
		if err != nil {
			return nil, err
		}
		return &services.Profile{Name: me.Name, Picture: me.Picture.Data.URL}, nil
	}

	var page struct {
		ID                 string       `json:"id"`
		Name               string       `json:"name"`
		Username           string       `json:"username"`
		Picture            graphPicture `json:"picture"`
		FollowersCount     int64        `json:"followers_count"`
		FanCount           int64        `json:"fan_count"`
		VerificationStatus string       `json:"verification_status"`
	}
	err := p.graph.get(ctx, "fetch page", "/"+url.PathEscape(conn.AccountID), conn.PageAccessToken, url.Values{
		"fields": {"id,name,username,picture{url},followers_count,fan_count,verification_status"},
	}, &page)
	if err != nil {
		return nil, err
	}

	followers := page.FollowersCount
	if followers == 0 {
		followers = page.FanCount
	}
	return &services.Profile{
		AccountID:      page.ID,
		Name:           page.Name,
		Username:       page.Username,
		Picture:        page.Picture.Data.URL,
		FollowersCount: followers,
		Verified:       page.VerificationStatus == "blue_verified" || page.VerificationStatus == "gray_verified",
	}, nil
}

// ValidateContent requires text or an image
func (p *FacebookProvider) ValidateContent(content services.PostContent) error {
	if strings.TrimSpace(content.Text) == "" && content.ImageURL == "" {
		return services.NewError(services.KindMissingRequiredMedia, "a Facebook post needs text or an image")
	}
	return nil
}

// PublishCandidates returns the page, then "me". A connection without a
// stored page identity is re-resolved against /me/accounts first; when no
// page turns up the ladder is "me" alone.
func (p *FacebookProvider) PublishCandidates(ctx context.Context, conn *services.Connection) ([]services.PublishCandidate, error) {
	personal := services.PublishCandidate{AccountID: services.PersonalAccountID, Token: conn.AccessToken}

	if conn.HasPageIdentity() {
		return []services.PublishCandidate{
			{AccountID: conn.AccountID, AccountName: conn.AccountName, Token: conn.PageAccessToken, IsPage: true, AllowFallback: true},
			personal,
		}, nil
	}

	preferred := conn.AccountID
	if preferred == services.PersonalAccountID {
		preferred = ""
	}
	pages, err := p.graph.listPages(ctx, conn.AccessToken)
	if err != nil {
		p.logger.Info("page re-resolution failed, publishing as personal profile", zap.Error(err))
	}
	if page, ok := pickPage(pages, preferred); ok {
		return []services.PublishCandidate{
			{AccountID: page.ID, AccountName: page.Name, Token: page.AccessToken, IsPage: true, AllowFallback: true},
			personal,
		}, nil
	}
	return []services.PublishCandidate{personal}, nil
}

// Publish posts text to the feed, or an image with caption to photos
func (p *FacebookProvider) Publish(ctx context.Context, cand services.PublishCandidate, content services.PostContent) (*services.PublishResult, error) {
	target := cand.AccountID
	if target == "" {
		target = services.PersonalAccountID
	}

	var resp struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	var err error
	if content.ImageURL != "" {
		form := url.Values{"url": {content.ImageURL}}
		if content.Text != "" {
			form.Set("caption", content.Text)
		}
		err = p.graph.post(ctx, "publish photo", "/"+url.PathEscape(target)+"/photos", cand.Token, form, &resp)
	} else {
		err = p.graph.post(ctx, "publish post", "/"+url.PathEscape(target)+"/feed", cand.Token, url.Values{
			"message": {content.Text},
		}, &resp)
	}
	if err != nil {
		return nil, err
	}

	postID := resp.PostID
	if postID == "" {
		postID = resp.ID
	}
	if postID == "" {
		return nil, &services.ProviderFailure{
			Platform:   services.PlatformFacebook,
			Operation:  "publish",
			StatusCode: http.StatusOK,
			Message:    "response carried no post id",
		}
	}

	return &services.PublishResult{PostID: postID, URL: facebookPostURL + postID}, nil
}
