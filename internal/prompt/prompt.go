// Package prompt renders the assistant system prompts for kiosk chat.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/profile"
)

// DefaultAgenda is shown to guests with no recorded sessions.
var DefaultAgenda = model.Agenda{
	{Time: "09:00", Title: "Registration and welcome coffee", Location: "Foyer"},
	{Time: "10:00", Title: "Opening keynote", Location: "Main Hall"},
	{Time: "12:30", Title: "Lunch", Location: "Garden Pavilion"},
	{Time: "14:00", Title: "Breakout sessions", Location: "Halls C and D"},
	{Time: "17:00", Title: "Closing remarks and networking", Location: "Main Hall"},
}

const baseTemplate = `{{define "base"}}You are the friendly check-in assistant at {{.Venue}}{{with .Event}} for {{.Name}}{{if .Location}} ({{.Location}}){{end}}{{end}}.
Answer briefly in plain sentences suitable for a kiosk screen. Only answer questions about the event, the venue and the agenda. If you are unsure, direct the guest to the front desk.{{end}}`

const genericTemplate = `{{template "base" .}}
You do not know who you are talking to. Do not guess names, seats or personal schedules.

Event agenda:
{{range .Agenda}}- {{.Time}} {{.Title}}{{if .Location}} ({{.Location}}){{end}}
{{end}}`

const personalizedTemplate = `{{template "base" .}}
You are talking to {{.Guest.FullName}}{{if .Badge}}, who holds a {{.Badge}} badge{{end}}.

Guest profile:
- Hall: {{.Profile.Hall}} ({{.Profile.Floor}})
- Zone: {{.Profile.Zone}}
- Seat: {{.Profile.Seat}}
- Directions: {{.Profile.Directions}}

{{.Guest.FullName}}'s agenda:
{{range .Agenda}}- {{.Time}} {{.Title}}{{if .Location}} ({{.Location}}){{end}}
{{end}}`

type data struct {
	Venue   string
	Event   *model.Event
	Guest   *model.Guest
	Badge   string
	Profile profile.Profile
	Agenda  model.Agenda
}

type Builder struct {
	venue        string
	generic      *template.Template
	personalized *template.Template
}

func NewBuilder(venue string) *Builder {
	if venue == "" {
		venue = "the venue"
	}
	return &Builder{
		venue:        venue,
		generic:      template.Must(template.Must(template.New("generic").Parse(baseTemplate)).Parse(genericTemplate)),
		personalized: template.Must(template.Must(template.New("personalized").Parse(baseTemplate)).Parse(personalizedTemplate)),
	}
}

// Generic is used when the speaker has not been identified. event may be nil.
func (b *Builder) Generic(event *model.Event) (string, error) {
	return render(b.generic, data{Venue: b.venue, Event: event, Agenda: DefaultAgenda})
}

// Personalized injects the guest's profile block and agenda, falling back to
// DefaultAgenda when the guest has none.
func (b *Builder) Personalized(event *model.Event, guest *model.Guest, p profile.Profile) (string, error) {
	if guest == nil {
		return b.Generic(event)
	}
	agenda := guest.Agenda
	if len(agenda) == 0 {
		agenda = DefaultAgenda
	}
	badge := ""
	if guest.Badge != "" && guest.Badge != model.BadgeGeneral {
		badge = string(guest.Badge)
	}
	return render(b.personalized, data{
		Venue:   b.venue,
		Event:   event,
		Guest:   guest,
		Badge:   badge,
		Profile: p,
		Agenda:  agenda,
	})
}

func render(tmpl *template.Template, d data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
