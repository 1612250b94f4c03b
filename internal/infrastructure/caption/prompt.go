// Package caption holds what every caption provider shares: the per-language
// instructions and the cleanup applied to model replies.
package caption

import (
	"strings"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

func SystemInstruction(lang domain.Language) string {
	if lang == domain.LanguageKorean {
		return "당신은 디자인 전시의 작품 제목을 짓는 큐레이터입니다. " +
			"이미지의 분위기와 움직임을 12~20자 사이의 한국어 한 문장으로 표현하세요. " +
			"따옴표, 이모지, 해시태그 없이 문장만 답하세요. " +
			"이미지를 설명할 수 없으면 ERROR 라고만 답하세요."
	}
	return "You title artworks for a design exhibition. " +
		"Describe the mood and movement of the image in a single English phrase of 20 to 30 characters. " +
		"Answer with the phrase only, no quotes, emoji or hashtags. " +
		"If the image cannot be described, answer ERROR."
}

func UserInstruction(lang domain.Language) string {
	if lang == domain.LanguageKorean {
		return "이 이미지의 제목을 지어 주세요."
	}
	return "Give this image a title."
}

// Clean strips wrapping quotes and keeps the first line of a reply.
func Clean(raw string) string {
	out := strings.TrimSpace(raw)
	out = strings.Trim(out, "\"'“”‘’「」")
	if idx := strings.IndexAny(out, "\r\n"); idx >= 0 {
		out = out[:idx]
	}
	return strings.TrimSpace(out)
}

// Usable reports whether a cleaned reply can be shown as a caption.
func Usable(cleaned string) bool {
	return cleaned != "" && cleaned != domain.CaptionErrorSentinel
}
