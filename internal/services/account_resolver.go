package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// AccountResolver determines the identity a connection publishes as and
// keeps its display metadata fresh. Provider-specific rules live in each
// IdentityProvider; the resolver applies the shared failure semantics.
type AccountResolver struct {
	providers  ProviderRegistry
	translator *ErrorTranslator
	logger     *zap.Logger
}

// NewAccountResolver creates a resolver over the registered providers.
func NewAccountResolver(providers ProviderRegistry, translator *ErrorTranslator, logger *zap.Logger) *AccountResolver {
	if translator == nil {
		translator = NewErrorTranslator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountResolver{providers: providers, translator: translator, logger: logger}
}

// Resolve returns the publishable identity for a fresh user token.
// Any failure, or a result without an id or token, is KindAccountInfoFailed.
func (r *AccountResolver) Resolve(ctx context.Context, platform, userToken, preferredAccountID string) (*Identity, error) {
	provider, err := r.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	identity, err := provider.ResolveIdentity(ctx, userToken, preferredAccountID)
	if err != nil {
		r.logger.Warn("identity resolution failed",
			zap.String("platform", platform),
			zap.Error(err),
		)
		se := r.translator.Translate(platform, err)
		if se.Kind == KindAccountInfoFailed {
			return nil, se
		}
		return nil, &ServiceError{
			Kind:     KindAccountInfoFailed,
			Platform: platform,
			Message:  se.Message,
			Help:     HelpFor(KindAccountInfoFailed),
			Raw:      se.Raw,
			Err:      err,
		}
	}

	if identity == nil || identity.ID == "" || identity.Token == "" {
		return nil, &ServiceError{
			Kind:     KindAccountInfoFailed,
			Platform: platform,
			Message:  "provider returned no usable identity",
			Help:     HelpFor(KindAccountInfoFailed),
		}
	}
	return identity, nil
}

// SyncProfile fetches fresh display metadata for conn.
func (r *AccountResolver) SyncProfile(ctx context.Context, conn *Connection) (*Profile, error) {
	provider, err := r.providers.Get(conn.Platform)
	if err != nil {
		return nil, err
	}

	profile, err := provider.FetchProfile(ctx, conn)
	if err != nil {
		return nil, r.translator.Translate(conn.Platform, err)
	}
	if profile == nil {
		return nil, NewError(KindUnknownProviderError, "provider returned no profile")
	}
	return profile, nil
}

// ApplyIdentity copies a resolved identity onto conn. The user token stays in
// AccessToken; a dedicated identity token (a Page token) goes to
// PageAccessToken. Callers set AccessToken first.
func ApplyIdentity(conn *Connection, identity *Identity) {
	conn.AccountID = identity.ID
	conn.AccountName = identity.Name
	if identity.Username != "" {
		conn.Username = identity.Username
	}
	if identity.Picture != "" {
		conn.ProfilePicture = identity.Picture
	}
	if identity.Token != "" && identity.Token != conn.AccessToken {
		conn.PageAccessToken = identity.Token
	} else {
		conn.PageAccessToken = ""
	}
}

// ApplyProfile copies display metadata onto conn. AccountID changes only when
// the provider reports a different identity.
func ApplyProfile(conn *Connection, profile *Profile) {
	if profile.AccountID != "" && profile.AccountID != conn.AccountID {
		conn.AccountID = profile.AccountID
	}
	if profile.Name != "" {
		conn.AccountName = profile.Name
	}
	if profile.Username != "" {
		conn.Username = profile.Username
	}
	if profile.Picture != "" {
		conn.ProfilePicture = profile.Picture
	}
	conn.FollowersCount = profile.FollowersCount
	conn.FollowingCount = profile.FollowingCount
	conn.PostsCount = profile.PostsCount
	conn.Verified = profile.Verified
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound)
}
