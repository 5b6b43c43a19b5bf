package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// If parsing fails, return the original content
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			// Add line breaks for block elements
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "table", "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	result = strings.TrimSpace(result)

	return result
}

// EmailService sends RFQ invitations to vendors over SMTP.
type EmailService struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewEmailService creates a new email service instance from SMTP_* env
// vars.
func NewEmailService() *EmailService {
	return &EmailService{
		host: os.Getenv("SMTP_HOST"),
		port: os.Getenv("SMTP_PORT"),
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASSWORD"),
		from: os.Getenv("SMTP_FROM"),
	}
}

const rfqInvitationTemplate = `
<p>Dear {{vendor_name}},</p>
<p>You are invited to quote for <b>{{doc_number}}</b>: {{title}}.</p>
<p>Please submit your unit price and lead time for each requested item
before the validity date on the request.</p>
<table>
<tr><th>Product</th><th>Quantity</th><th>Unit</th></tr>
{{item_rows}}
</table>
<p>Contact: {{contact_person}} ({{contact_email}})</p>
`

// SendRFQInvitation emails one vendor link of a document. The HTML body
// is converted to plain text before sending.
func (es *EmailService) SendRFQInvitation(doc *models.Document, vendor models.DocumentVendor) error {
	if vendor.VendorEmail == "" {
		return fmt.Errorf("vendor %d has no email address", vendor.VendorID)
	}

	var rows strings.Builder
	for _, it := range doc.Items {
		rows.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%.2f</td><td>%s</td></tr>\n", it.ProductName, it.Quantity, it.Unit))
	}

	body := rfqInvitationTemplate
	for placeholder, value := range map[string]string{
		"vendor_name":    vendor.VendorName,
		"doc_number":     doc.DocNumber,
		"title":          doc.Title,
		"item_rows":      rows.String(),
		"contact_person": doc.ContactPerson,
		"contact_email":  doc.ContactEmail,
	} {
		body = strings.ReplaceAll(body, "{{"+placeholder+"}}", value)
	}

	subject := fmt.Sprintf("Request for quotation %s", doc.DocNumber)
	return es.sendEmail(vendor.VendorEmail, subject, convertHTMLToText(body))
}

// sendEmail sends a plain-text email using SMTP
func (es *EmailService) sendEmail(to, subject, body string) error {
	if es.host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	auth := smtp.PlainAuth("", es.user, es.pass, es.host)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(es.host+":"+es.port, auth, es.from, []string{to}, msg)
}
