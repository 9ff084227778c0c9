package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/paylink/internal/app/model"
	"github.com/sifan077/paylink/internal/app/repository"
	"github.com/sifan077/paylink/internal/app/signer"
	"go.uber.org/zap"
)

const (
	// DefaultLinkTTL is how long a masked link stays resolvable.
	DefaultLinkTTL = 600 * time.Second

	// DefaultStoreTimeout bounds every single store call.
	DefaultStoreTimeout = 2 * time.Second

	// DefaultRedirectPrefix is the path masked links are served under.
	DefaultRedirectPrefix = "/p"

	// IOSFallbackPath is where the iOS page sends visitors without the app.
	IOSFallbackPath = "/ios-fallback"

	maxLinkIDLen = 64
)

// LinkService issues masked payment links and resolves them on visit.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*CreatedLink, error)
	ResolveLink(ctx context.Context, linkID, userAgent string) (*RedirectPayload, error)
	WebPaymentURL(paymentID string) string
}

// LinkConfig is the immutable configuration shared by every request.
type LinkConfig struct {
	SecretKey      string
	Domain         string
	RedirectPrefix string
	TTL            time.Duration
	StoreTimeout   time.Duration
	Targets        RedirectTargets
}

// CreateLinkInput captures a signed link creation request.
type CreateLinkInput struct {
	PaymentID string
	OSType    string
	IsWebView bool
	Signature string
}

// CreatedLink is a freshly minted masked link.
type CreatedLink struct {
	ID     string
	URL    string
	Record model.LinkRecord
}

type linkService struct {
	store   repository.LinkStore
	signer  *signer.Signer
	cfg     LinkConfig
	payload payloadBuilder
	logger  *zap.Logger
	random  io.Reader
}

// NewLinkService returns a service implementation backed by the given store.
func NewLinkService(store repository.LinkStore, cfg LinkConfig, logger *zap.Logger) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLinkTTL
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.RedirectPrefix == "" {
		cfg.RedirectPrefix = DefaultRedirectPrefix
	}
	cfg.Domain = strings.TrimRight(cfg.Domain, "/")

	return &linkService{
		store:  store,
		signer: signer.New(cfg.SecretKey),
		cfg:    cfg,
		payload: payloadBuilder{
			targets: cfg.Targets,
			domain:  cfg.Domain,
		},
		logger: logger,
		random: rand.Reader,
	}
}

// Validate checks the request shape before any signature work is done.
func (in CreateLinkInput) Validate() error {
	switch {
	case strings.TrimSpace(in.PaymentID) == "":
		return fmt.Errorf("%w: paymentId is required", ErrMalformedRequest)
	case in.Signature == "":
		return fmt.Errorf("%w: signature is required", ErrMalformedRequest)
	case model.ContainsSeparator(in.PaymentID):
		return fmt.Errorf("%w: paymentId must not contain '|'", ErrMalformedRequest)
	case model.ContainsSeparator(in.OSType):
		return fmt.Errorf("%w: osType must not contain '|'", ErrMalformedRequest)
	}
	return nil
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*CreatedLink, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	params := signer.Params{
		PaymentID: input.PaymentID,
		OSType:    input.OSType,
		IsWebView: input.IsWebView,
	}
	if !s.signer.Verify(params, input.Signature) {
		return nil, ErrInvalidSignature
	}

	linkID, err := s.newLinkID()
	if err != nil {
		return nil, fmt.Errorf("mint link id: %w", err)
	}

	record := model.LinkRecord{
		PaymentID: input.PaymentID,
		OSType:    input.OSType,
		IsWebView: input.IsWebView,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.store.Put(storeCtx, model.LinkKey(linkID), record.Encode(), s.cfg.TTL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return &CreatedLink{
		ID:     linkID,
		URL:    s.cfg.Domain + s.cfg.RedirectPrefix + "/" + linkID,
		Record: record,
	}, nil
}

func (s *linkService) ResolveLink(ctx context.Context, linkID, userAgent string) (*RedirectPayload, error) {
	if linkID == "" || len(linkID) > maxLinkIDLen {
		return nil, ErrLinkNotFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	value, err := s.store.Get(storeCtx, model.LinkKey(linkID))
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	record, err := model.DecodeLinkRecord(value)
	if err != nil {
		s.logger.Error("stored link record is corrupt",
			zap.String("link_id", linkID),
			zap.Int("value_len", len(value)),
			zap.Error(err),
		)
		return nil, ErrLinkNotFound
	}

	payload, err := s.payload.build(Classify(userAgent), record.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("build redirect payload: %w", err)
	}
	return payload, nil
}

func (s *linkService) WebPaymentURL(paymentID string) string {
	return s.payload.webPaymentURL(paymentID)
}

// newLinkID draws 128 random bits and renders them in the 8-4-4-4-12 hex layout.
func (s *linkService) newLinkID() (string, error) {
	var raw uuid.UUID
	if _, err := io.ReadFull(s.random, raw[:]); err != nil {
		return "", err
	}
	return raw.String(), nil
}
