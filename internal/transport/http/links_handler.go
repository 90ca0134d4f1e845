package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/IgorGrieder/shorty/internal/constants"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/shorty/internal/infrastructure/validation"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/IgorGrieder/shorty/pkg/httputils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxCreateBodyBytes = 1 << 20

type LinksHandlerOptions struct {
	RedirectStatus int
	ClickTimeout   time.Duration
	// AsyncClick records clicks after the redirect is written. When false
	// the click is recorded before responding (used by tests).
	AsyncClick bool
}

type LinksHandler struct {
	svc *links.Service

	redirectStatus int
	clickTimeout   time.Duration
	asyncClick     bool

	clicks sync.WaitGroup
}

func NewLinksHandler(svc *links.Service, opts LinksHandlerOptions) *LinksHandler {
	if opts.RedirectStatus != http.StatusMovedPermanently {
		opts.RedirectStatus = http.StatusFound
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = 2 * time.Second
	}

	return &LinksHandler{
		svc:            svc,
		redirectStatus: opts.RedirectStatus,
		clickTimeout:   opts.ClickTimeout,
		asyncClick:     opts.AsyncClick,
	}
}

type createLinkRequest struct {
	Target string `json:"target" validate:"required,notblank,http_url"`
	Code   string `json:"code,omitempty" validate:"omitempty,alphanum,min=6,max=8"`
}

type listLinksResponse struct {
	Links []links.Link `json:"links"`
}

type deleteLinkResponse struct {
	OK bool `json:"ok"`
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBodyBytes)).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, decodeError(err))
		return
	}
	req.Target = strings.TrimSpace(req.Target)
	req.Code = strings.TrimSpace(req.Code)

	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, validationError(err))
		return
	}

	link, err := h.svc.CreateLink(r.Context(), links.CreateLinkInput{
		Target: req.Target,
		Code:   req.Code,
	})
	if err != nil {
		switch {
		case errors.Is(err, links.ErrInvalidTarget):
			httputils.WriteAPIError(w, r, constants.ErrInvalidTarget)
		case errors.Is(err, links.ErrInvalidCode):
			httputils.WriteAPIError(w, r, constants.ErrInvalidCode)
		case errors.Is(err, links.ErrCodeExists):
			httputils.WriteAPIError(w, r, constants.ErrCodeExists)
		case errors.Is(err, links.ErrCodeSpaceExhausted):
			logger.Error("code generation exhausted", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrCodeUnavailable)
		default:
			logger.Error("failed to create link", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	logger.Info("link created", zap.String("code", link.Code))
	httputils.WriteJSON(w, r, http.StatusCreated, link)
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.ListLinks(r.Context())
	if err != nil {
		logger.Error("failed to list links", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}
	if all == nil {
		all = []links.Link{}
	}
	httputils.WriteJSON(w, r, http.StatusOK, listLinksResponse{Links: all})
}

func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.svc.GetLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			httputils.WriteAPIError(w, r, constants.ErrNotFound)
			return
		}
		logger.Error("failed to get link", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}
	httputils.WriteJSON(w, r, http.StatusOK, link)
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if err := h.svc.DeleteLink(r.Context(), code); err != nil {
		if errors.Is(err, links.ErrNotFound) {
			httputils.WriteAPIError(w, r, constants.ErrNotFound)
			return
		}
		logger.Error("failed to delete link", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	logger.Info("link deleted", zap.String("code", code))
	httputils.WriteJSON(w, r, http.StatusOK, deleteLinkResponse{OK: true})
}

func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.svc.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			httputils.WriteAPIError(w, r, constants.ErrNotFound)
			return
		}
		logger.Error("failed to resolve code", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	// The click outlives the request; keep its trace but not its cancellation.
	clickCtx := context.WithoutCancel(r.Context())
	if h.asyncClick {
		h.clicks.Add(1)
		go func() {
			defer h.clicks.Done()
			h.recordClick(clickCtx, link.Code)
		}()
	} else {
		h.recordClick(clickCtx, link.Code)
	}

	w.Header().Set("Location", link.Target)
	w.Header().Set("Cache-Control", "private, max-age=0")
	w.WriteHeader(h.redirectStatus)
}

// recordClick never fails the redirect; errors only reach logs and metrics.
func (h *LinksHandler) recordClick(parent context.Context, code string) {
	ctx, cancel := context.WithTimeout(parent, h.clickTimeout)
	defer cancel()

	if err := h.svc.RecordClick(ctx, code); err != nil {
		clickRecordFailures.Inc()
		logger.Warn("failed to record click", zap.Error(err), zap.String("code", code))
	}
}

// WaitForClicks blocks until in-flight click recordings finish or ctx ends.
func (h *LinksHandler) WaitForClicks(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.clicks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeError maps a wrongly typed field to that field's error code; any
// other decode failure is a malformed body.
func decodeError(err error) constants.APIError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "target":
			return constants.ErrInvalidTarget.WithMessage(constants.MsgTargetNotString)
		case "code":
			return constants.ErrInvalidCode.WithMessage(constants.MsgCodeNotString)
		}
	}
	return constants.ErrInvalidRequestBody
}

func validationError(err error) constants.APIError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return constants.ErrInvalidRequestBody
	}
	for _, e := range validationErrs {
		switch e.Field() {
		case "target":
			if e.Tag() == "required" || e.Tag() == "notblank" {
				return constants.ErrInvalidTarget.WithMessage(constants.MsgTargetRequired)
			}
			return constants.ErrInvalidTarget
		case "code":
			return constants.ErrInvalidCode
		}
	}
	return constants.ErrInvalidRequestBody
}
