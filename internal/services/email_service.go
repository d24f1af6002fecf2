package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"steeple/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL")
	fromName := os.Getenv("SENDGRID_FROM_NAME")

	client := sendgrid.NewSendClient(apiKey)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send delivers one reminder digest email. A transport rejection comes back as a
// SendResult with zero messages sent rather than an error, so the caller can
// tell "rejected" apart from "could not attempt".
func (s *EmailService) Send(ctx context.Context, person models.Person, templateID int64, digest ReminderDigest) (SendResult, error) {
	_ = ctx

	if person.Email == "" {
		return SendResult{Warnings: []string{fmt.Sprintf("person %d has no email address", person.ID)}}, nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(person.FullName(), person.Email)

	total := digest.TotalItems()
	subject := fmt.Sprintf("You have %d reminders", total)
	if total == 1 {
		subject = "You have 1 reminder"
	}

	plainContent := renderDigestPlain(digest)
	htmlContent := renderDigestHTML(digest)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	response, err := s.client.Send(message)
	if err != nil {
		return SendResult{}, err
	}

	if response.StatusCode >= 400 {
		return SendResult{
			Errors: []string{fmt.Sprintf("sendgrid responded %d for %s", response.StatusCode, person.Email)},
		}, nil
	}

	return SendResult{MessagesSent: 1}, nil
}

func renderDigestPlain(digest ReminderDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, you have reminders that are due:\n", digest.Person.NickName)
	writeSection := func(title string, items []ReminderDigestItem) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s (%s, due %s)", item.Description, item.TypeName, item.ReminderDate.Format("Jan 2, 2006"))
			if item.Note != "" {
				fmt.Fprintf(&b, ": %s", item.Note)
			}
			b.WriteString("\n")
		}
	}
	writeSection("People", digest.PersonItems)
	writeSection("Groups", digest.GroupItems)
	writeSection("Other", digest.OtherItems)
	return b.String()
}

func renderDigestHTML(digest ReminderDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hello %s, you have reminders that are due:</p>", digest.Person.NickName)
	writeSection := func(title string, items []ReminderDigestItem) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "<h3>%s</h3><ul>", title)
		for _, item := range items {
			b.WriteString("<li>")
			if item.PhotoURL != "" {
				fmt.Fprintf(&b, "<img src=%q alt=\"\" width=\"24\" height=\"24\"> ", item.PhotoURL)
			}
			fmt.Fprintf(&b, "<a href=%q style=\"color:%s\"><strong>%s</strong></a> (%s, due %s)",
				item.URL, item.Color, item.Description, item.TypeName, item.ReminderDate.Format("Jan 2, 2006"))
			if item.Note != "" {
				fmt.Fprintf(&b, ": %s", item.Note)
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}
	writeSection("People", digest.PersonItems)
	writeSection("Groups", digest.GroupItems)
	writeSection("Other", digest.OtherItems)
	return b.String()
}
