package services

import (
	"bytes"
	"fmt"
	"html/template"
)

const emailLayout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 640px; margin: 0 auto; padding: 20px;">
<h2 style="color: #2e7d32;">{{.Title}}</h2>
{{template "content" .}}
<hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
<p style="font-size: 12px; color: #666;">Scrapify &middot; This is an automated message, please do not reply.</p>
</div>
</body>
</html>{{end}}`

const bookingDetails = `{{define "details"}}
<table style="border-collapse: collapse; width: 100%;">
<tr><td><strong>Booking ID</strong></td><td>#{{.Booking.ID}}</td></tr>
<tr><td><strong>Service</strong></td><td>{{.Booking.ServiceTitle}}</td></tr>
<tr><td><strong>Booked on</strong></td><td>{{.Booking.BookingDate}} {{.Booking.BookingTime}}</td></tr>
{{with .Address}}<tr><td><strong>Pickup address</strong></td><td>{{.String}}</td></tr>{{end}}
</table>
<h3>Selected items</h3>
<table style="border-collapse: collapse; width: 100%;" border="1" cellpadding="6">
<tr><th align="left">Item</th><th align="left">Category</th><th align="left">Price</th><th align="left">Qty</th></tr>
{{range .Booking.SelectedItems}}<tr><td>{{.Name}}</td><td>{{.Category}}</td><td>{{.Price}}</td><td>{{if .Quantity}}{{.Quantity}}{{else}}-{{end}}</td></tr>
{{end}}</table>
{{with .Booking.Description}}<p><strong>Description:</strong> {{.}}</p>{{end}}
{{end}}`

var emailTemplates = map[string]string{
	"ops_booking_created": `{{define "content"}}
<p>A new pickup booking was submitted.</p>
<p><strong>Customer:</strong> {{.User.Name}} &lt;{{.User.Email}}&gt;{{with .User.Phone}}, {{.}}{{end}}</p>
{{template "details" .}}
{{if .Images}}<h3>Photos</h3>
{{range .Images}}<img src="cid:{{.}}" alt="{{.}}" style="max-width: 280px; margin: 4px;">{{end}}{{end}}
<p style="margin: 30px 0;">
<a href="{{.AcceptURL}}" style="background-color: #2e7d32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Accept booking</a>
&nbsp;
<a href="{{.RejectURL}}" style="background-color: #c62828; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reject booking</a>
</p>
{{end}}`,

	"customer_booking_created": `{{define "content"}}
<p>Hello {{.User.Name}},</p>
<p>Thank you for booking with Scrapify. We have received your request and our team will review it shortly.</p>
{{template "details" .}}
<p>You will receive another email as soon as your booking is confirmed.</p>
{{end}}`,

	"booking_accepted": `{{define "content"}}
<p>Hello {{.User.Name}},</p>
<p>Good news! Your booking <strong>#{{.Booking.ID}}</strong> has been <strong>confirmed</strong>.</p>
{{template "details" .}}
<p>Our pickup team will contact you to schedule the collection. Please keep the items ready at the pickup address.</p>
{{end}}`,

	"booking_rejected": `{{define "content"}}
<p>Hello {{.User.Name}},</p>
<p>We are sorry, your booking <strong>#{{.Booking.ID}}</strong> could not be accepted.</p>
<p><strong>Reason:</strong> {{.Reason}}</p>
{{template "details" .}}
<p>You are welcome to submit a new booking at any time from the app.</p>
{{end}}`,
}

var parsedEmailTemplates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(emailTemplates))
	for name, body := range emailTemplates {
		t := template.Must(template.New(name).Parse(emailLayout))
		template.Must(t.Parse(bookingDetails))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}()

func renderEmail(name string, data any) (string, error) {
	t, ok := parsedEmailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
