package httpadapter

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

type startMovementRequest struct {
	Site string `json:"site"`
}

type startMovementResponse struct {
	Session   *domain.Session `json:"session"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type completeEditRequest struct {
	Lang string `json:"lang"`
}

type updateCaptionRequest struct {
	Caption string `json:"caption"`
}

type interactRequest struct {
	Summary string `json:"summary"`
}

// formFile bounds the request body and returns the "file" part of a
// multipart upload.
func (rt *Router) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	limit := rt.cfg.MaxImageBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMaxMemory/8)
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("invalid multipart form: %w", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", errors.New("file is required"))
	}
	return file, header, nil
}

func (rt *Router) startMovement(w http.ResponseWriter, r *http.Request) {
	var req startMovementRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	site := rt.siteFromRequest(r)
	if req.Site != "" {
		parsed, err := domain.ParseSite(req.Site)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		site = parsed
	}

	session, err := rt.movements.Start(r.Context(), site)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	token, expiresAt, err := rt.tokens.Issue(session.ID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.setSessionCookie(w, token, expiresAt)
	rt.recordTransition("start", session)
	writeJSON(w, http.StatusCreated, startMovementResponse{Session: session, Token: token, ExpiresAt: expiresAt})
}

func (rt *Router) getMovement(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	session, err := rt.movements.Get(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) uploadMovementImage(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	file, header, err := rt.formFile(w, r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer file.Close()

	session, err := rt.movements.UploadImage(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.recordTransition("upload", session)
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) completeMovementEdit(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req completeEditRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	lang, err := domain.ParseLanguage(req.Lang)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	session, err := rt.movements.CompleteEdit(r.Context(), id, lang)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrImageLoad) {
			rt.metrics.RecordColorAnalysisFailure(serviceName, "complete")
		}
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil && session.Flow.Analysis != nil {
		a := session.Flow.Analysis
		rt.metrics.RecordColorAnalysis(serviceName, string(a.Brand.Name), a.Refined.Name)
		rt.metrics.RecordCaption(serviceName, "complete", !session.Flow.CaptionFailed)
	}
	rt.recordTransition("complete", session)
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) updateMovementCaption(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req updateCaptionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	session, err := rt.movements.UpdateCaption(r.Context(), id, req.Caption)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) interactMovement(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req interactRequest
	if err := decodeJSONBody(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	session, err := rt.movements.Interact(r.Context(), id, req.Summary)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.recordTransition("interact", session)
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) backMovement(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	session, err := rt.movements.Back(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.recordTransition("back", session)
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) resetMovement(w http.ResponseWriter, r *http.Request) {
	id, err := rt.authorizeSession(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	session, err := rt.movements.Reset(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.recordTransition("reset", session)
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) recordTransition(action string, session *domain.Session) {
	if rt.metrics == nil || session == nil {
		return
	}
	rt.metrics.RecordFlowTransition(serviceName, action, string(session.Flow.Step))
}
