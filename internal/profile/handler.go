package profile

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/thuddle/api/internal/middleware"
	"github.com/thuddle/api/internal/response"
	"github.com/thuddle/api/internal/user"
)

// multipartOverhead is the slack allowed on top of the picture limit for
// multipart boundaries and headers before the body is cut off.
const multipartOverhead = 1 << 20

// Handler holds HTTP handlers for profile endpoints.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
}

// NewHandler creates a new profile Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, maxUploadBytes: svc.opts.MaxUploadBytes}
}

// Routes returns the /api/profile router. requireAuth guards every route but
// the public picture fetch.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/picture/{identity}", h.GetPicture)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.GetProfile)
		r.Put("/displayname", h.UpdateDisplayName)
		r.Post("/picture", h.UploadPicture)
	})
	return r
}

type profileBody struct {
	DisplayName       *string `json:"displayName" example:"Ada"`
	Email             string  `json:"email" example:"ada@example.com"`
	HasProfilePicture bool    `json:"hasProfilePicture" example:"true"`
}

type displayNameRequest struct {
	DisplayName string `json:"displayName" example:"Ada"`
}

type displayNameBody struct {
	DisplayName *string `json:"displayName" example:"Ada"`
}

type messageBody struct {
	Message string `json:"message" example:"Profile picture uploaded."`
}

// GetProfile godoc
//
//	@Summary		Get current profile
//	@Description	Returns the caller's profile, creating the record on first access.
//	@Tags			profile
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	profileBody
//	@Failure		401	{object}	response.ErrorBody
//	@Failure		409	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetOrCreateProfile(r.Context(), id.ID, id.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, profileBody{
		DisplayName:       u.DisplayName,
		Email:             u.Email,
		HasProfilePicture: u.HasPicture(),
	})
}

// UpdateDisplayName godoc
//
//	@Summary		Update display name
//	@Description	Sets the caller's display name. A blank name clears it.
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		displayNameRequest	true	"New display name"
//	@Success		200		{object}	displayNameBody
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		401		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Router			/profile/displayname [put]
func (h *Handler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req displayNameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		response.BadRequest(w, response.CodeInvalidRequest, "invalid request body")
		return
	}

	u, err := h.svc.UpdateDisplayName(r.Context(), id.ID, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, displayNameBody{DisplayName: u.DisplayName})
}

// UploadPicture godoc
//
//	@Summary		Upload profile picture
//	@Description	Stores the uploaded image and a square PNG thumbnail. Maximum 5 MiB.
//	@Tags			profile
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			picture	formData	file	true	"Image file"
//	@Success		200		{object}	messageBody
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		401		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/profile/picture [post]
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("picture")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, &ValidationError{Reason: ReasonTooLarge})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeError(w, &ValidationError{Reason: ReasonEmpty})
		default:
			response.BadRequest(w, response.CodeInvalidRequest, "invalid multipart body")
		}
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		response.BadRequest(w, response.CodeInvalidRequest, "unable to read uploaded file")
		return
	}

	if err := h.svc.UploadPicture(r.Context(), id.ID, data, header.Size); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, messageBody{Message: "Profile picture uploaded."})
}

// GetPicture godoc
//
//	@Summary		Get profile picture
//	@Description	Returns the PNG thumbnail of any user. Public.
//	@Tags			profile
//	@Produce		png
//	@Param			identity	path		string	true	"External identity"
//	@Success		200			{file}		binary
//	@Failure		404			{object}	response.ErrorBody
//	@Router			/profile/picture/{identity} [get]
func (h *Handler) GetPicture(w http.ResponseWriter, r *http.Request) {
	identity, ok := pathIdentity(r)
	if !ok {
		response.NotFound(w, "picture not found")
		return
	}

	data, err := h.svc.GetPicture(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	response.PNG(w, data)
}

// pathIdentity returns the {identity} route param decoded exactly once. chi
// matches on URL.RawPath when it is set, so only then is the param still escaped.
func pathIdentity(r *http.Request) (string, bool) {
	identity := chi.URLParam(r, "identity")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(identity)
		if err != nil {
			return "", false
		}
		identity = unescaped
	}
	return identity, identity != ""
}

// writeError maps pipeline errors onto stable HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		switch verr.Reason {
		case ReasonEmpty:
			response.BadRequest(w, response.CodeEmpty, "No picture uploaded.")
		case ReasonTooLarge:
			response.BadRequest(w, response.CodeTooLarge, "File too large. Maximum 5MB.")
		default:
			response.BadRequest(w, response.CodeInvalidRequest, verr.Error())
		}
	case isImageError(err):
		response.BadRequest(w, response.CodeInvalidImage, "Unable to process image.")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, user.ErrEmailTaken):
		response.Conflict(w, "email already registered to another account")
	default:
		log.Printf("profile: request failed: %v", err)
		response.InternalError(w)
	}
}
