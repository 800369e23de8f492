package mailer

import "testing"

func TestHTMLToTextStripsTags(t *testing.T) {
	got := HTMLToText("<p>Request #7 has been assigned to Sparkle Cleaners.</p>")
	want := "Request #7 has been assigned to Sparkle Cleaners."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestHTMLToTextSeparatesParagraphs(t *testing.T) {
	got := HTMLToText("<p>Sparkle declined request #7.</p><p>Reason: no capacity</p>")
	want := "Sparkle declined request #7.\nReason: no capacity"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestHTMLToTextKeepsDirectionalBodies(t *testing.T) {
	got := HTMLToText("<p dir=\"rtl\">تم إغلاق الطلب رقم 7.</p>")
	want := "تم إغلاق الطلب رقم 7."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
