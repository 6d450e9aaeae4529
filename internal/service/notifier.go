package service

import (
	"context"
	"fmt"
	"strings"

	"smartbin/portal/internal/model"
)

// Notifier tells the operations inbox about new submissions.
type Notifier interface {
	NotifySubmission(ctx context.Context, sub *model.Submission) error
}

type mailNotifier struct {
	sender MailSender
	to     string
}

// NewMailNotifier sends one plain-text e-mail per submission to the given inbox.
func NewMailNotifier(sender MailSender, to string) Notifier {
	return &mailNotifier{sender: sender, to: to}
}

func (n *mailNotifier) NotifySubmission(ctx context.Context, sub *model.Submission) error {
	subject := fmt.Sprintf("[SmartBin] New %s submission from %s", sub.Kind, sub.Name)
	return n.sender.Send(ctx, n.to, subject, submissionBody(sub))
}

func submissionBody(sub *model.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kind:    %s\n", sub.Kind)
	fmt.Fprintf(&b, "Name:    %s\n", sub.Name)
	fmt.Fprintf(&b, "Email:   %s\n", sub.Email)
	if sub.Phone != "" {
		fmt.Fprintf(&b, "Phone:   %s\n", sub.Phone)
	}
	if sub.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", sub.Company)
	}
	if sub.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", sub.Subject)
	}
	b.WriteString("\n")
	b.WriteString(sub.Message)
	b.WriteString("\n")
	return b.String()
}
