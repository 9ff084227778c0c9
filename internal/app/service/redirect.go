package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/paylink/internal/app/model"
	"github.com/sifan077/paylink/internal/http/view"
)

// PayloadKind tells the HTTP layer how to deliver a RedirectPayload.
type PayloadKind int

const (
	// PayloadRedirect is sent as a 302 with Location.
	PayloadRedirect PayloadKind = iota
	// PayloadDocument is sent as a 200 with Body.
	PayloadDocument
)

const contentTypeHTML = "text/html; charset=utf-8"

// RedirectPayload is the platform-specific answer to a link visit.
type RedirectPayload struct {
	Client      model.ClientCategory
	PaymentID   string
	Kind        PayloadKind
	Location    string
	Body        string
	ContentType string
}

// RedirectTargets configures the destinations visitors are dispatched to.
type RedirectTargets struct {
	PrimaryScheme    string
	SecondaryScheme  string
	AndroidScheme    string
	AndroidPackage   string
	AndroidStoreURL  string
	WebURL           string
	IOSRetryDelay    time.Duration
	IOSFallbackDelay time.Duration
}

// DefaultRedirectTargets returns the production destinations.
func DefaultRedirectTargets() RedirectTargets {
	return RedirectTargets{
		PrimaryScheme:    "bank100000000004",
		SecondaryScheme:  "tinkoffbank",
		AndroidScheme:    "tinkoffbank",
		AndroidPackage:   "ru.tinkoff.android",
		AndroidStoreURL:  "https://rustore.ru/app/tinkoff",
		WebURL:           "https://tpay-web.com/pay",
		IOSRetryDelay:    time.Second,
		IOSFallbackDelay: 2 * time.Second,
	}
}

type payloadBuilder struct {
	targets RedirectTargets
	domain  string
}

func (b payloadBuilder) build(client model.ClientCategory, paymentID string) (*RedirectPayload, error) {
	switch client {
	case model.ClientIOS:
		return b.ios(paymentID)
	case model.ClientAndroid:
		return &RedirectPayload{
			Client:    client,
			PaymentID: paymentID,
			Kind:      PayloadRedirect,
			Location:  b.androidIntent(paymentID),
		}, nil
	default:
		return &RedirectPayload{
			Client:    model.ClientDesktop,
			PaymentID: paymentID,
			Kind:      PayloadRedirect,
			Location:  b.webPaymentURL(paymentID),
		}, nil
	}
}

func (b payloadBuilder) ios(paymentID string) (*RedirectPayload, error) {
	html, err := view.RenderDeepLinkPage(view.DeepLinkPageData{
		PrimaryURL:    appURL(b.targets.PrimaryScheme, paymentID),
		SecondaryURL:  appURL(b.targets.SecondaryScheme, paymentID),
		FallbackURL:   b.iosFallbackURL(paymentID),
		RetryDelay:    b.targets.IOSRetryDelay,
		FallbackDelay: b.targets.IOSFallbackDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("render deep link page: %w", err)
	}
	return &RedirectPayload{
		Client:      model.ClientIOS,
		PaymentID:   paymentID,
		Kind:        PayloadDocument,
		Body:        html,
		ContentType: contentTypeHTML,
	}, nil
}

// androidIntent leaves "is the app installed" to Android's intent resolution;
// browser_fallback_url is opened when no activity handles the scheme.
func (b payloadBuilder) androidIntent(paymentID string) string {
	return fmt.Sprintf("intent://tpay/%s#Intent;scheme=%s;package=%s;S.browser_fallback_url=%s;end",
		url.PathEscape(paymentID),
		b.targets.AndroidScheme,
		b.targets.AndroidPackage,
		url.QueryEscape(b.targets.AndroidStoreURL),
	)
}

func (b payloadBuilder) webPaymentURL(paymentID string) string {
	return strings.TrimRight(b.targets.WebURL, "/") + "/" + url.PathEscape(paymentID)
}

func (b payloadBuilder) iosFallbackURL(paymentID string) string {
	return b.domain + IOSFallbackPath + "/" + url.PathEscape(paymentID)
}

func appURL(scheme, paymentID string) string {
	return scheme + "://tpay/" + url.PathEscape(paymentID)
}
