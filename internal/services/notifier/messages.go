package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Message — готовые тексты уведомления для обоих каналов.
type Message struct {
	Subject string
	HTML    string
	SMS     string
}

const (
	expiryDateLayout = "2006-01-02 15:04 MST"
	paymentSubject   = "Kugura Ifatabuguzi"
)

var emailTemplates = template.Must(template.New("notice").Parse(`
{{define "expiry"}}<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
  <h2>Subscription {{if .Expired}}Expiration{{else}}Expiration Warning{{end}}</h2>
  <p>Dear {{.Name}},</p>
  <p>Your subscription <strong>{{.Subscription}}</strong> {{.Remaining}}.</p>
  <div style="margin: 20px 0; padding: 15px; background-color: #f5f5f5; border-radius: 5px;">
    <p><strong>Subscription Details:</strong></p>
    <ul>
      <li>Name: {{.Subscription}}</li>
      <li>Expiry Date: {{.ExpiresAt}}</li>
    </ul>
  </div>
  <p>Please renew your subscription to continue enjoying our services.</p>
  <p>Best regards,<br>Umuhanda team</p>
</div>{{end}}
{{define "payment_succeeded"}}<div style="font-family: Arial, sans-serif; background-color: #f9fafb; padding: 24px; border-radius: 10px; max-width: 540px; margin: auto;">
  <h2 style="color: #111827;">Muraho neza {{.Name}},</h2>
  <p>Kwishyura amafaranga <strong>{{.Item}}</strong> ku rubuga <strong>Umuhanda</strong> byagenze neza.</p>
  {{if .Link}}<p>Ubu mushobora <a href="{{.Link}}">kwinjira kurubuga</a> mukiga cyangwa mugakora isuzuma!</p>{{end}}
  <p style="font-size: 13px; color: #9ca3af;">Iki ni ubutumwa bwa sisitemu ya Umuhanda</p>
</div>{{end}}
{{define "payment_failed"}}<div style="font-family: Arial, sans-serif; background-color: #fff4f4; padding: 24px; border-radius: 10px; max-width: 540px; margin: auto;">
  <h2 style="color: #b91c1c;">Muraho neza {{.Name}},</h2>
  <p>Kugura ifatabuguzi ntibibashije gukunda.</p>
  <p>Mushobora kugerageza kongera kuri iri huzwa: <br/><a href="{{.Link}}">{{.Link}}</a></p>
  <p>Cyangwa mutwandikire tubafashe.</p>
</div>{{end}}
{{define "reset_code"}}<div style="font-family: Arial, sans-serif; background-color: #f9fafb; padding: 20px; border-radius: 10px; max-width: 500px; margin: auto;">
  <h2 style="color: #111827;">Password Reset Request</h2>
  <p>We received a request to reset your password. Use the code below to proceed:</p>
  <div style="text-align: center; margin: 20px 0;">
    <span style="font-size: 24px; font-weight: bold; padding: 12px 24px; background: #e0f2fe;">{{.Code}}</span>
  </div>
  <p>This code will expire in 10 minutes.</p>
</div>{{end}}
{{define "welcome"}}<div style="font-family: Arial, sans-serif; background-color: #f9fafb; padding: 24px; border-radius: 10px; max-width: 520px; margin: auto;">
  <h2 style="color: #111827;">Muraho, {{.Name}}</h2>
  <p>Murakoze cyane kwiyandikisha k'urubuga <strong>Umuhanda</strong>. Ubu mwemerewe kwinjira muri konti yanyu no gutangira urugendo rwo kwiga.</p>
  {{if .Link}}<p><a href="{{.Link}}">Injira muri Konti</a></p>{{end}}
</div>{{end}}
{{define "attempt_recorded"}}<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
  <p>Muraho {{.Name}}, wabonye amanota <strong>{{.Score}}/20</strong> mu isuzuma wakoze.</p>
  <p>Komeza ukore kenshi witegura ikizamini cya nyuma !</p>
</div>{{end}}
{{define "contact_received"}}<p>Dear {{.Name}}, your message to us was received successfully. We will reach out to you soon!!</p>{{end}}
{{define "contact_relayed"}}<p>Dear Umuhanda, <strong>{{.SenderName}}</strong> with Phone number <strong>{{.SenderPhone}}</strong>{{if .SenderEmail}} and email {{.SenderEmail}}{{end}} is contacting you. Message is <strong>"{{.Message}}"</strong></p>{{end}}
`))

type templateData struct {
	Name         string
	Subscription string
	Remaining    string
	ExpiresAt    string
	Expired      bool
	Item         string
	Link         string
	Code         string
	Score        int
	SenderName   string
	SenderPhone  string
	SenderEmail  string
	Message      string
}

// TimeUntilExpiry описывает оставшееся время словами. Часы округляются вверх.
func TimeUntilExpiry(expiresAt, now time.Time) string {
	hours := int(math.Ceil(expiresAt.Sub(now).Hours()))
	switch {
	case hours <= 0:
		return "has expired"
	case hours == 1:
		return "will expire in 1 hour"
	case hours < 24:
		return fmt.Sprintf("will expire in %d hours", hours)
	}
	days := hours / 24
	if days == 1 {
		return "will expire in 1 day"
	}
	return fmt.Sprintf("will expire in %d days", days)
}

// Render собирает тексты уведомления. loginURL подставляется в письма об
// успешной оплате и регистрации.
func Render(n models.Notice, now time.Time, loginURL string) (Message, error) {
	data := templateData{
		Name:         n.Contact.Name,
		Subscription: n.SubscriptionName,
		Item:         n.Item,
		Code:         n.Code,
	}

	var (
		msg  Message
		name string
	)
	switch n.Kind {
	case models.NoticeExpired, models.NoticeExpiring:
		data.Remaining = TimeUntilExpiry(n.ExpiresAt, now)
		data.Expired = data.Remaining == "has expired"
		data.ExpiresAt = n.ExpiresAt.Format(expiryDateLayout)
		name = "expiry"
		msg.Subject = "Your subscription is about to expire"
		if data.Expired {
			msg.Subject = "Your subscription has expired"
		}
		msg.SMS = fmt.Sprintf("Hi %s, your subscription %q %s. Expiry: %s. Please renew to continue services.",
			n.Contact.Name, n.SubscriptionName, data.Remaining, data.ExpiresAt)
	case models.NoticePaymentSucceeded:
		data.Link = loginURL
		name = "payment_succeeded"
		msg.Subject = paymentSubject
		msg.SMS = fmt.Sprintf("Muraho neza %s kwishyura amafaranga %s ku rubuga umuhanda byagenze neza!", n.Contact.Name, n.Item)
	case models.NoticePaymentFailed:
		data.Link = n.PaymentURL
		name = "payment_failed"
		msg.Subject = paymentSubject
		msg.SMS = fmt.Sprintf("Muraho neza %s Kugura ifatabuguzi ku rubuga umuhanda ntibibashije gukunda! Mushobora kongera mukagerageza hano: %s",
			n.Contact.Name, n.PaymentURL)
	case models.NoticeResetCode:
		name = "reset_code"
		msg.Subject = "Password Reset Code"
		msg.SMS = fmt.Sprintf("Your Password reset code is : %s. Be aware that it will expire in 10 minutes", n.Code)
	case models.NoticeWelcome:
		data.Link = loginURL
		name = "welcome"
		msg.Subject = "Kwiyandikisha"
		msg.SMS = fmt.Sprintf("Hello, %s Welcome to umuhanda. your registration was done successfully.", n.Contact.Name)
	case models.NoticeAttemptRecorded:
		data.Score = n.Score
		name = "attempt_recorded"
		msg.Subject = "Amanota y'ikizamini"
		msg.SMS = fmt.Sprintf("Muraho %s, wabonye amanota %d/20 mu isuzuma wakoze. Komeza ukore kenshi witegura ikizamini cya nyuma !",
			n.Contact.Name, n.Score)
	case models.NoticeContactReceived:
		name = "contact_received"
		msg.Subject = "Message Received"
		msg.SMS = "Dear, esteemed customer your message to us was received successfully. We will reach out to you soon!!"
	case models.NoticeContactRelayed:
		if n.Sender == nil {
			return Message{}, fmt.Errorf("notifier.Render: %s notice without sender", n.Kind)
		}
		data.SenderName = n.Sender.Name
		data.SenderPhone = n.Sender.Phone
		data.SenderEmail = n.Sender.Email
		data.Message = n.Message
		name = "contact_relayed"
		msg.Subject = "Client's Message"
		withEmail := ""
		if n.Sender.Email != "" {
			withEmail = " and email " + n.Sender.Email
		}
		msg.SMS = fmt.Sprintf("Dear Umuhanda, %s with Phone number %s%s is contacting you. Message is %q",
			n.Sender.Name, n.Sender.Phone, withEmail, n.Message)
	default:
		return Message{}, fmt.Errorf("notifier.Render: unknown notice kind %q", n.Kind)
	}

	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("notifier.Render: %w", err)
	}
	msg.HTML = buf.String()
	return msg, nil
}
