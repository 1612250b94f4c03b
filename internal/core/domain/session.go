package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/flow"
)

// Session is one visitor's pass through the movement creator.
type Session struct {
	ID        string        `json:"id"`
	Site      Site          `json:"site"`
	Flow      flow.Snapshot `json:"flow"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Site tells the main exhibition site and the invitation site apart.
type Site string

const (
	SiteMain       Site = "main"
	SiteInvitation Site = "invitation"
)

func ParseSite(raw string) (Site, error) {
	switch Site(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SiteMain:
		return SiteMain, nil
	case SiteInvitation:
		return SiteInvitation, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse site", fmt.Errorf("unknown site %q", raw))
	}
}

// Language selects the caption instruction set.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageKorean  Language = "ko"
)

func ParseLanguage(raw string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageKorean:
		return LanguageKorean, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse language", fmt.Errorf("unsupported language %q", raw))
	}
}

// CaptionResult mirrors the caption collaborator contract.
type CaptionResult struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
}

// CaptionErrorSentinel is the description returned when captioning fails.
const CaptionErrorSentinel = "ERROR"

// MovementCreated is published once a session reaches the result step.
type MovementCreated struct {
	SessionID    string    `json:"session_id"`
	Site         Site      `json:"site"`
	BrandColor   string    `json:"brand_color"`
	RefinedColor string    `json:"refined_color"`
	ExtractedHex string    `json:"extracted_hex"`
	IsAchromatic bool      `json:"is_achromatic"`
	CreatedAt    time.Time `json:"created_at"`
}

// PaletteStat is a daily tally of finished movements per refined color.
type PaletteStat struct {
	Day          time.Time `json:"day"`
	BrandColor   string    `json:"brand_color"`
	RefinedColor string    `json:"refined_color"`
	Count        int       `json:"count"`
}
