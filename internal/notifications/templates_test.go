package notifications

import (
	"strings"
	"testing"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

func TestRenderTemplateFallsBackToEnglish(t *testing.T) {
	subject, body, err := RenderTemplate(enums.TemplateCompleted, enums.Locale("fr"), TemplateData{RequestNumber: 12})
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if !strings.Contains(subject, "completed") {
		t.Fatalf("expected english fallback subject, got %q", subject)
	}
	if strings.Contains(body, "dir=\"rtl\"") {
		t.Fatal("fallback body should not be right-to-left")
	}
}

func TestRenderTemplateUnknownTemplate(t *testing.T) {
	if _, _, err := RenderTemplate(enums.NotificationTemplate("bogus"), enums.LocaleEnglish, TemplateData{}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
