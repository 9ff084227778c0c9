package handler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/paylink/internal/app/model"
	"github.com/sifan077/paylink/internal/app/service"
	infraPrometheus "github.com/sifan077/paylink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	resolveOutcomeServed      = "served"
	resolveOutcomeNotFound    = "not_found"
	resolveOutcomeUnavailable = "unavailable"
)

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Publisher   EventPublisher
	Metrics     *infraPrometheus.Metrics
	Prefix      string
}

// RedirectHandler serves masked links and the iOS web fallback.
type RedirectHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	events      eventEmitter
	metrics     *infraPrometheus.Metrics
	prefix      string
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := strings.TrimRight(deps.Prefix, "/")
	if prefix == "" {
		prefix = service.DefaultRedirectPrefix
	}
	return &RedirectHandler{
		logger:      logger,
		linkService: deps.LinkService,
		events:      eventEmitter{publisher: deps.Publisher, logger: logger},
		metrics:     deps.Metrics,
		prefix:      prefix,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get(h.prefix+"/:linkId", h.Resolve)
	router.Get(service.IOSFallbackPath+"/:paymentId", h.IOSFallback)
}

// Resolve handles GET {prefix}/:linkId and answers with the platform payload.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	linkID := strings.Clone(c.Params("linkId"))
	userAgent := strings.Clone(c.Get(fiber.HeaderUserAgent))

	payload, err := h.linkService.ResolveLink(c.UserContext(), linkID, userAgent)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			h.metrics.LinkResolved(resolveOutcomeNotFound, "")
			return c.Status(fiber.StatusNotFound).SendString(service.ErrLinkNotFound.Error())
		}
		if errors.Is(err, service.ErrStoreUnavailable) {
			h.metrics.LinkResolved(resolveOutcomeUnavailable, "")
			h.logger.Error("failed to resolve link", zap.String("link_id", linkID), zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).SendString("service temporarily unavailable, retry later")
		}
		h.logger.Error("failed to build redirect", zap.String("link_id", linkID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("internal server error")
	}

	h.metrics.LinkResolved(resolveOutcomeServed, string(payload.Client))
	h.events.emit(model.LinkEvent{
		Type:      model.LinkEventVisited,
		LinkID:    linkID,
		Client:    string(payload.Client),
		IP:        strings.Clone(c.IP()),
		UserAgent: userAgent,
	})

	switch payload.Kind {
	case service.PayloadDocument:
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Type("html", "utf-8").SendString(payload.Body)
	default:
		h.logger.Debug("redirecting masked link",
			zap.String("link_id", linkID),
			zap.String("client", string(payload.Client)),
		)
		return c.Redirect(payload.Location, fiber.StatusFound)
	}
}

// IOSFallback handles GET /ios-fallback/:paymentId, the page the iOS cascade
// ends on when neither app scheme opened.
func (h *RedirectHandler) IOSFallback(c *fiber.Ctx) error {
	paymentID, err := url.PathUnescape(c.Params("paymentId"))
	if err != nil || paymentID == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing payment id")
	}
	return c.Redirect(h.linkService.WebPaymentURL(paymentID), fiber.StatusFound)
}
