package caption

import (
	"strings"
	"testing"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

func TestCleanKeepsFirstLineWithoutQuotes(t *testing.T) {
	got := Clean("  \"Pink waves at dusk\"\nSecond line")
	if got != "Pink waves at dusk" {
		t.Fatalf("Clean() = %q", got)
	}
}

func TestUsableRejectsSentinelAndEmpty(t *testing.T) {
	if Usable("") || Usable(domain.CaptionErrorSentinel) {
		t.Fatalf("empty and sentinel replies must be unusable")
	}
	if !Usable("노을 속 분홍 물결") {
		t.Fatalf("expected korean caption to be usable")
	}
}

func TestInstructionsFollowLanguage(t *testing.T) {
	if !strings.Contains(SystemInstruction(domain.LanguageKorean), "12~20자") {
		t.Fatalf("korean instruction must carry the length window")
	}
	if !strings.Contains(SystemInstruction(domain.LanguageEnglish), "20 to 30 characters") {
		t.Fatalf("english instruction must carry the length window")
	}
	if UserInstruction(domain.LanguageEnglish) == UserInstruction(domain.LanguageKorean) {
		t.Fatalf("user instruction must differ per language")
	}
}
