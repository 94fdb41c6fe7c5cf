package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// =============================================================================
// Provider error translation
// Raw provider codes are mapped to ErrorKind through one table per platform.
// =============================================================================

// ProviderFailure is the raw outcome of a failed provider call, before
// translation.
type ProviderFailure struct {
	Platform   string
	Operation  string
	StatusCode int // 0 when no response was received
	Code       string
	Subcode    string
	Message    string
	Body       string
	Err        error // transport error, if any
}

func (f *ProviderFailure) Error() string {
	switch {
	case f.Err != nil:
		return fmt.Sprintf("%s %s: %v", f.Platform, f.Operation, f.Err)
	case f.Code != "":
		return fmt.Sprintf("%s %s failed (status %d, code %s): %s", f.Platform, f.Operation, f.StatusCode, f.Code, f.Message)
	default:
		return fmt.Sprintf("%s %s failed (status %d): %s", f.Platform, f.Operation, f.StatusCode, f.Message)
	}
}

func (f *ProviderFailure) Unwrap() error { return f.Err }

// TranslationRule is the kind and remediation for one raw code.
type TranslationRule struct {
	Kind ErrorKind
	Help string
}

// TranslationTable maps raw keys to rules. Keys are "<code>/<subcode>",
// "<code>", or "http:<status>".
type TranslationTable map[string]TranslationRule

const pageRequiredHelp = "Facebook does not allow publishing to this profile with the granted permissions. Create or connect a Facebook Page you manage, then reconnect."

var graphCommon = TranslationTable{
	"1":   {KindProviderUnavailable, ""},
	"2":   {KindProviderUnavailable, ""},
	"4":   {KindRateLimited, "The app hit Facebook's request limit. Try again in an hour."},
	"17":  {KindRateLimited, "Your account hit Facebook's request limit. Try again later."},
	"32":  {KindRateLimited, "This page hit Facebook's request limit. Try again later."},
	"613": {KindRateLimited, ""},
	"102": {KindInvalidToken, ""},
	"190": {KindInvalidToken, "Your Facebook session expired or the password changed. Reconnect the account."},
	"463": {KindInvalidToken, ""},
	"467": {KindInvalidToken, ""},
}

var facebookTable = mergeTables(graphCommon, TranslationTable{
	"10":       {KindInsufficientPermission, pageRequiredHelp},
	"200":      {KindInsufficientPermission, pageRequiredHelp},
	"299":      {KindInsufficientPermission, pageRequiredHelp},
	"100/33":   {KindAccountInfoFailed, "The page no longer exists or you lost access to it. Reconnect Facebook."},
	"368":      {KindRateLimited, "Facebook temporarily blocked posting from this account."},
	"324":      {KindMissingRequiredMedia, "Facebook could not read the image. Check the image URL."},
	"http:401": {KindInvalidToken, ""},
	"http:403": {KindInsufficientPermission, pageRequiredHelp},
	"http:429": {KindRateLimited, ""},
})

var instagramTable = mergeTables(graphCommon, TranslationTable{
	"10":          {KindInsufficientPermission, "Reconnect Instagram and grant the content publishing permission."},
	"200":         {KindInsufficientPermission, "Reconnect Instagram and grant the content publishing permission."},
	"9/2207042":   {KindRateLimited, "Instagram allows a limited number of posts per 24 hours. Try again tomorrow."},
	"9004":        {KindMissingRequiredMedia, "Instagram could not download the image. Use a public JPEG URL."},
	"100/2207052": {KindMissingRequiredMedia, "Instagram could not download the image. Use a public JPEG URL."},
	"36003":       {KindMissingRequiredMedia, "The image aspect ratio is not supported by Instagram."},
	"http:401":    {KindInvalidToken, ""},
	"http:403":    {KindInsufficientPermission, ""},
	"http:429":    {KindRateLimited, ""},
})

var linkedInTable = TranslationTable{
	"65600":    {KindInvalidToken, ""},
	"65601":    {KindInvalidToken, ""},
	"65602":    {KindInvalidToken, ""},
	"100":      {KindInsufficientPermission, "Reconnect LinkedIn and allow posting on your behalf."},
	"http:401": {KindInvalidToken, "Your LinkedIn token expired. Reconnect LinkedIn."},
	"http:403": {KindInsufficientPermission, "Reconnect LinkedIn and allow posting on your behalf."},
	"http:429": {KindRateLimited, "LinkedIn's daily posting limit was reached. Try again tomorrow."},
}

// DefaultTranslationTables returns the built-in tables keyed by platform.
func DefaultTranslationTables() map[string]TranslationTable {
	return map[string]TranslationTable{
		PlatformFacebook:  facebookTable,
		PlatformInstagram: instagramTable,
		PlatformLinkedIn:  linkedInTable,
	}
}

func mergeTables(tables ...TranslationTable) TranslationTable {
	out := TranslationTable{}
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

// ErrorTranslator converts raw provider failures into ServiceErrors.
type ErrorTranslator struct {
	tables map[string]TranslationTable
}

// NewErrorTranslator creates a translator over the given tables.
// A nil map uses DefaultTranslationTables.
func NewErrorTranslator(tables map[string]TranslationTable) *ErrorTranslator {
	if tables == nil {
		tables = DefaultTranslationTables()
	}
	return &ErrorTranslator{tables: tables}
}

// Translate classifies err for platform. ServiceErrors pass through unchanged.
func (t *ErrorTranslator) Translate(platform string, err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	var pf *ProviderFailure
	if !errors.As(err, &pf) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return t.build(platform, KindProviderUnavailable, "", err, "")
		}
		return t.build(platform, KindUnknownProviderError, "", err, "")
	}

	if pf.StatusCode == 0 && pf.Err != nil {
		return t.build(platform, KindProviderUnavailable, "", pf, "")
	}

	if rule, ok := t.lookup(platform, pf); ok {
		return t.build(platform, rule.Kind, rule.Help, pf, pf.Body)
	}

	if pf.StatusCode >= 500 {
		return t.build(platform, KindProviderUnavailable, "", pf, pf.Body)
	}
	return t.build(platform, KindUnknownProviderError, "", pf, pf.Body)
}

func (t *ErrorTranslator) lookup(platform string, pf *ProviderFailure) (TranslationRule, bool) {
	table := t.tables[platform]
	if table == nil {
		return TranslationRule{}, false
	}

	keys := make([]string, 0, 3)
	if pf.Code != "" && pf.Subcode != "" {
		keys = append(keys, pf.Code+"/"+pf.Subcode)
	}
	if pf.Code != "" {
		keys = append(keys, pf.Code)
	}
	if pf.StatusCode != 0 {
		keys = append(keys, "http:"+strconv.Itoa(pf.StatusCode))
	}

	for _, k := range keys {
		if rule, ok := table[k]; ok {
			return rule, true
		}
	}
	return TranslationRule{}, false
}

func (t *ErrorTranslator) build(platform string, kind ErrorKind, help string, cause error, raw string) *ServiceError {
	if help == "" {
		help = HelpFor(kind)
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	var pf *ProviderFailure
	if errors.As(cause, &pf) && pf.Message != "" {
		msg = pf.Message
	}
	return &ServiceError{
		Kind:     kind,
		Platform: platform,
		Message:  msg,
		Help:     help,
		Raw:      raw,
		Err:      cause,
	}
}
