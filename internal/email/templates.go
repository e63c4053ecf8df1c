package email

import (
	"text/template"
	"time"
)

type BookingTemplateData struct {
	Name           string
	ClassName      string
	StartsAt       time.Time
	BikeNumber     *int
	CreditSource   string
	ReservationID  int
	GraceTimeHours int
}

type WaitlistTemplateData struct {
	Name      string
	ClassName string
	StartsAt  time.Time
	Position  int
}

var funcs = template.FuncMap{
	"when": func(t time.Time) string { return t.Format("Mon Jan 2, 2006 at 15:04") },
}

var confirmationTemplate = template.Must(template.New("confirmation").Funcs(funcs).Parse(`Hi {{.Name}},

Your reservation #{{.ReservationID}} is confirmed.

Class: {{.ClassName}}
When: {{when .StartsAt}}
{{if .BikeNumber}}Bike: {{.BikeNumber}}
{{end}}Paid with: {{.CreditSource}}
{{if .GraceTimeHours}}
Please confirm your attendance within {{.GraceTimeHours}} hours by message.
{{end}}
See you in class!
`))

var cancellationTemplate = template.Must(template.New("cancellation").Funcs(funcs).Parse(`Hi {{.Name}},

Your reservation #{{.ReservationID}} for {{.ClassName}} on {{when .StartsAt}} has been cancelled.
{{if eq .CreditSource "external"}}Refunds for single-class payments are handled by the payment provider.
{{else}}The class credit is back in your package.
{{end}}`))

var waitlistTemplate = template.Must(template.New("waitlist").Funcs(funcs).Parse(`Hi {{.Name}},

{{.ClassName}} on {{when .StartsAt}} is full. You are number {{.Position}} on the waitlist.
`))
