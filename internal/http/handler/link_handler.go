package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/paylink/internal/app/model"
	"github.com/sifan077/paylink/internal/app/service"
	infraPrometheus "github.com/sifan077/paylink/internal/infra/prometheus"
	"go.uber.org/zap"
)

// LinkDeps groups dependencies required by the link creation API.
type LinkDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Publisher   EventPublisher
	Metrics     *infraPrometheus.Metrics
	// Middleware runs in front of every /api route, typically CORS and rate limiting.
	Middleware []fiber.Handler
}

// LinkHandler implements the link creation endpoint.
type LinkHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	events      eventEmitter
	metrics     *infraPrometheus.Metrics
	middleware  []fiber.Handler
}

// NewLinkHandler creates a link handler with the provided dependencies.
func NewLinkHandler(deps LinkDeps) *LinkHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		logger:      logger,
		linkService: deps.LinkService,
		events:      eventEmitter{publisher: deps.Publisher, logger: logger},
		metrics:     deps.Metrics,
		middleware:  deps.Middleware,
	}
}

// Register wires API routes onto the provided router.
func (h *LinkHandler) Register(router fiber.Router) {
	api := router.Group("/api", h.middleware...)
	api.Post("/generate-link", h.GenerateLink)
}

// GenerateLinkRequest is the signed creation request. Pointer fields let a
// missing key be told apart from a zero value.
type GenerateLinkRequest struct {
	PaymentID *string `json:"paymentId"`
	OSType    *string `json:"osType"`
	IsWebView *bool   `json:"isWebView"`
	Signature *string `json:"signature"`
}

// GenerateLinkResponse carries the masked URL.
type GenerateLinkResponse struct {
	URL string `json:"url"`
}

func (r GenerateLinkRequest) input() (service.CreateLinkInput, string) {
	switch {
	case r.PaymentID == nil:
		return service.CreateLinkInput{}, "paymentId is required"
	case r.OSType == nil:
		return service.CreateLinkInput{}, "osType is required"
	case r.IsWebView == nil:
		return service.CreateLinkInput{}, "isWebView is required"
	case r.Signature == nil:
		return service.CreateLinkInput{}, "signature is required"
	}
	return service.CreateLinkInput{
		PaymentID: *r.PaymentID,
		OSType:    *r.OSType,
		IsWebView: *r.IsWebView,
		Signature: *r.Signature,
	}, ""
}

// GenerateLink handles POST /api/generate-link
func (h *LinkHandler) GenerateLink(c *fiber.Ctx) error {
	var req GenerateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	input, problem := req.input()
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": problem,
		})
	}

	link, err := h.linkService.CreateLink(c.UserContext(), input)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMalformedRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": strings.TrimPrefix(err.Error(), service.ErrMalformedRequest.Error()+": "),
		})
	case errors.Is(err, service.ErrInvalidSignature):
		h.metrics.SignatureRejected()
		h.events.emit(model.LinkEvent{
			Type:      model.LinkEventRejected,
			OSType:    input.OSType,
			IsWebView: input.IsWebView,
			IP:        strings.Clone(c.IP()),
			UserAgent: strings.Clone(c.Get(fiber.HeaderUserAgent)),
		})
		h.logger.Info("link creation rejected: invalid signature", zap.String("ip", c.IP()))
		// SendStatus would fill the empty body with "Forbidden".
		c.Status(fiber.StatusForbidden)
		return nil
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logger.Error("failed to store link", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "link store unavailable, retry later",
		})
	default:
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create link",
		})
	}

	h.metrics.LinkIssued()
	h.events.emit(model.LinkEvent{
		Type:      model.LinkEventIssued,
		LinkID:    link.ID,
		OSType:    link.Record.OSType,
		IsWebView: link.Record.IsWebView,
		IP:        strings.Clone(c.IP()),
		UserAgent: strings.Clone(c.Get(fiber.HeaderUserAgent)),
	})
	h.logger.Debug("masked link issued", zap.String("link_id", link.ID))

	return c.JSON(GenerateLinkResponse{URL: link.URL})
}
