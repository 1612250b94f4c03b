package httpadapter

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type paletteStatsResponse struct {
	Day   string               `json:"day"`
	Stats []domain.PaletteStat `json:"stats"`
}

func (rt *Router) submitSurvey(w http.ResponseWriter, r *http.Request) {
	var req domain.SurveySubmission
	if err := decodeJSONBody(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Site) == "" {
		req.Site = string(rt.siteFromRequest(r))
	}
	resp, err := rt.surveys.Submit(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (rt *Router) exportSurveys(w http.ResponseWriter, r *http.Request) {
	if err := rt.authorizeAdmin(r); err != nil {
		rt.writeError(w, r, err)
		return
	}

	// Buffered so a failed export still gets a JSON error instead of a
	// truncated workbook.
	var buf bytes.Buffer
	if err := rt.surveys.Export(r.Context(), &buf); err != nil {
		rt.writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("surveys-%s.xlsx", time.Now().In(rt.exportTZ).Format("20060102-1504"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) paletteStats(w http.ResponseWriter, r *http.Request) {
	if err := rt.authorizeAdmin(r); err != nil {
		rt.writeError(w, r, err)
		return
	}
	day := time.Now().In(rt.exportTZ)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
		if err != nil {
			rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "palette stats", errors.New("date must be YYYY-MM-DD")))
			return
		}
		day = parsed
	} else {
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	}

	stats, err := rt.palette.ForDay(r.Context(), day)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if stats == nil {
		stats = []domain.PaletteStat{}
	}
	writeJSON(w, http.StatusOK, paletteStatsResponse{
		Day:   day.Format(time.DateOnly),
		Stats: stats,
	})
}

// authorizeAdmin requires the admin key as a bearer token, checked against
// the bcrypt hash when one is configured and the plain key otherwise. With
// neither configured the admin endpoints stay closed.
func (rt *Router) authorizeAdmin(r *http.Request) error {
	hash := strings.TrimSpace(rt.cfg.AdminAPIKeyHash)
	plain := strings.TrimSpace(rt.cfg.AdminAPIKey)
	if hash == "" && plain == "" {
		return domain.WrapError(domain.ErrUnauthorized, "authorize admin", errors.New("admin access is disabled"))
	}

	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	got = strings.TrimSpace(got)
	if ok && got != "" {
		if hash != "" {
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(got)) == nil {
				return nil
			}
		} else if subtle.ConstantTimeCompare([]byte(got), []byte(plain)) == 1 {
			return nil
		}
	}
	return domain.WrapError(domain.ErrUnauthorized, "authorize admin", errors.New("invalid admin key"))
}
