package notifications

import (
	"fmt"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// TemplateData carries the values interpolated into a rendered message.
type TemplateData struct {
	RequestNumber  int64
	PartnerName    string
	Status         string
	Reason         string
	TimeoutMinutes int
}

// RenderTemplate produces the localized subject and HTML body for one
// recipient. Unknown locales render in English.
func RenderTemplate(template enums.NotificationTemplate, locale enums.Locale, data TemplateData) (string, string, error) {
	locale = locale.Or(enums.LocaleEnglish)
	switch locale {
	case enums.LocaleArabic:
		return renderArabic(template, data)
	default:
		return renderEnglish(template, data)
	}
}

func renderEnglish(template enums.NotificationTemplate, data TemplateData) (string, string, error) {
	number := data.RequestNumber
	switch template {
	case enums.TemplateAssigned:
		subject := fmt.Sprintf("Request #%d assigned", number)
		body := fmt.Sprintf("<p>Request #%d has been assigned to %s. A response is expected within %d minutes.</p>", number, data.PartnerName, data.TimeoutMinutes)
		return subject, body, nil
	case enums.TemplateAccepted, enums.TemplateConfirmed:
		subject := fmt.Sprintf("Request #%d confirmed", number)
		body := fmt.Sprintf("<p>%s has confirmed request #%d and will be in touch shortly.</p>", data.PartnerName, number)
		return subject, body, nil
	case enums.TemplateRejected:
		subject := fmt.Sprintf("Request #%d needs reassignment", number)
		body := fmt.Sprintf("<p>%s declined request #%d.</p><p>Reason: %s</p>", data.PartnerName, number, data.Reason)
		return subject, body, nil
	case enums.TemplateInProgress:
		subject := fmt.Sprintf("Request #%d is in progress", number)
		body := fmt.Sprintf("<p>Work on request #%d has started.</p>", number)
		return subject, body, nil
	case enums.TemplateCompleted:
		subject := fmt.Sprintf("Request #%d completed", number)
		body := fmt.Sprintf("<p>Request #%d has been completed. Thank you for using our service.</p>", number)
		return subject, body, nil
	case enums.TemplateClosed:
		subject := fmt.Sprintf("Request #%d closed", number)
		body := fmt.Sprintf("<p>Request #%d is now closed.</p>", number)
		return subject, body, nil
	case enums.TemplateSLATimeout:
		subject := fmt.Sprintf("Request #%d: partner response window elapsed", number)
		body := fmt.Sprintf("<p>%s did not respond to request #%d within %d minutes. The request has been returned to the dispatch queue.</p>", data.PartnerName, number, data.TimeoutMinutes)
		return subject, body, nil
	case enums.TemplateStatusChanged:
		subject := fmt.Sprintf("Request #%d updated", number)
		body := fmt.Sprintf("<p>The status of request #%d changed to %s.</p>", number, data.Status)
		return subject, body, nil
	default:
		return "", "", fmt.Errorf("no template registered for %q", template)
	}
}

func renderArabic(template enums.NotificationTemplate, data TemplateData) (string, string, error) {
	number := data.RequestNumber
	switch template {
	case enums.TemplateAssigned:
		subject := fmt.Sprintf("تم إسناد الطلب رقم %d", number)
		body := fmt.Sprintf("<p dir=\"rtl\">تم إسناد الطلب رقم %d إلى %s. يُتوقع الرد خلال %d دقيقة.</p>", number, data.PartnerName, data.TimeoutMinutes)
		return subject, body, nil
	case enums.TemplateAccepted, enums.TemplateConfirmed:
		subject := fmt.Sprintf("تم تأكيد الطلب رقم %d", number)
		body := fmt.Sprintf("<p dir=\"rtl\">قام %s بتأكيد الطلب رقم %d وسيتواصل معكم قريبًا.</p>", data.PartnerName, number)
		return subject, body, nil
	case enums.TemplateRejected:
		subject := fmt.Sprintf("الطلب رقم %d بحاجة إلى إعادة إسناد", number)
		body := fmt.Sprintf("<p dir=\"rtl\">اعتذر %s عن الطلب رقم %d.</p><p dir=\"rtl\">السبب: %s</p>", data.PartnerName, number, data.Reason)
		return subject, body, nil
	case enums.TemplateInProgress:
		subject := fmt.Sprintf("الطلب رقم %d قيد التنفيذ", number)
		body := fmt.Sprintf("<p dir=\"rtl\">بدأ العمل على الطلب رقم %d.</p>", number)
		return subject, body, nil
	case enums.TemplateCompleted:
		subject := fmt.Sprintf("اكتمل الطلب رقم %d", number)
		body := fmt.Sprintf("<p dir=\"rtl\">تم إكمال الطلب رقم %d. شكرًا لاستخدامكم خدمتنا.</p>", number)
		return subject, body, nil
	case enums.TemplateClosed:
		subject := fmt.Sprintf("أُغلق الطلب رقم %d", number)
		body := fmt.Sprintf("<p dir=\"rtl\">تم إغلاق الطلب رقم %d.</p>", number)
		return subject, body, nil
	case enums.TemplateSLATimeout:
		subject := fmt.Sprintf("الطلب رقم %d: انتهت مهلة رد الشريك", number)
		body := fmt.Sprintf("<p dir=\"rtl\">لم يرد %s على الطلب رقم %d خلال %d دقيقة، وتمت إعادة الطلب إلى قائمة الإسناد.</p>", data.PartnerName, number, data.TimeoutMinutes)
		return subject, body, nil
	case enums.TemplateStatusChanged:
		subject := fmt.Sprintf("تحديث على الطلب رقم %d", number)
		body := fmt.Sprintf("<p dir=\"rtl\">تغيرت حالة الطلب رقم %d إلى %s.</p>", number, data.Status)
		return subject, body, nil
	default:
		return "", "", fmt.Errorf("no template registered for %q", template)
	}
}
