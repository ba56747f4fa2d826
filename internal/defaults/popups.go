// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package defaults

// Popup is one entry of the popup catalog. Key is the short key (without
// the popup prefix); Body is trusted HTML bound with the page data.
type Popup struct {
	Key   string
	Title string
	Body  string
}

// Fallback content for popup keys that are not in the catalog.
const (
	FallbackPopupTitle = "Popup"
	FallbackPopupBody  = "<p>Add your content here.</p>"
)

// builtinPopups is the catalog used when the configuration lists none, and
// the source of bodies for configured entries without one.
var builtinPopups = []Popup{
	{
		Key:   "invite",
		Title: "Invite parents",
		Body: `{{with .classroom}}{{with .invite_url}}<p>Share this link with the other parents of the class:</p>
<p><a class="popup-link" href="{{.}}">{{.}}</a></p>{{else}}<p>No invite link has been created yet.</p>{{end}}{{end}}`,
	},
	{
		Key:   "homework",
		Title: "Homework",
		Body: `<ul class="popup-list">{{with .classroom}}{{range .homework}}<li><strong>{{.subject}}</strong> {{.text}}{{with .due}} <em>due {{.}}</em>{{end}}</li>{{else}}<li>No homework right now.</li>{{end}}{{end}}</ul>`,
	},
	{
		Key:   "links",
		Title: "Links",
		Body:  `<ul class="popup-list">{{with .classroom}}{{range .links}}<li><a href="{{.url}}">{{.title}}</a></li>{{else}}<li>No links yet.</li>{{end}}{{end}}</ul>`,
	},
	{
		Key:   "whatsapp",
		Title: "WhatsApp group",
		Body: `{{with .classroom}}{{with .whatsapp_url}}<p>Join the class group to get messages from other parents.</p>
<p><a class="popup-button" href="{{.}}" rel="noopener" target="_blank">Open WhatsApp</a></p>{{else}}<p>The class has no WhatsApp group yet.</p>{{end}}{{end}}`,
	},
	{
		Key:   "important-links",
		Title: "Important links",
		Body:  `<ul class="popup-list">{{with .classroom}}{{range .important_links}}<li><a href="{{.url}}">{{.title}}</a></li>{{else}}<li>Nothing pinned yet.</li>{{end}}{{end}}</ul>`,
	},
	{
		Key:   "holidays",
		Title: "Holidays",
		Body:  `<table class="popup-table"><tbody>{{with .classroom}}{{range .holidays}}<tr><td>{{.name}}</td><td>{{.date}}</td></tr>{{end}}{{end}}</tbody></table>`,
	},
	{
		Key:   "children",
		Title: "Children",
		Body:  `<ul class="popup-list">{{with .user}}{{range .children}}<li>{{.name}}</li>{{else}}<li>No children linked to your account.</li>{{end}}{{end}}</ul>`,
	},
	{
		Key:   "content",
		Title: "Add content",
		Body:  `<p>Paste a message from the school and it will be sorted into homework, announcements and dates.</p><textarea class="popup-input" name="content" rows="6"></textarea><button type="button" class="popup-button" data-content-submit>Add</button>`,
	},
	{
		Key:   "contacts",
		Title: "Contacts",
		Body:  `<ul class="popup-list">{{with .classroom}}{{range .contacts}}<li><strong>{{.name}}</strong>{{with .role}} ({{.}}){{end}}{{with .phone}} <a href="tel:{{.}}">{{.}}</a>{{end}}</li>{{else}}<li>No contacts yet.</li>{{end}}{{end}}</ul>`,
	},
	{
		Key:   "food",
		Title: "Lunch menu",
		Body:  `<ul class="popup-list">{{with .classroom}}{{range .food}}<li><strong>{{.day}}</strong> {{.menu}}</li>{{else}}<li>No menu published.</li>{{end}}{{end}}</ul>`,
	},
	{
		Key:   "schedule",
		Title: "Timetable",
		Body: `{{with .classroom}}{{range .schedule}}<h3>{{.day}}</h3><ol class="popup-list">{{range .lessons}}<li>{{.time}} {{.subject}}</li>{{end}}</ol>{{else}}<p>No timetable yet.</p>{{end}}{{end}}`,
	},
}

// BuiltinPopups returns a copy of the built-in catalog.
func BuiltinPopups() []Popup {
	return append([]Popup(nil), builtinPopups...)
}

func builtinPopup(key string) (Popup, bool) {
	for _, p := range builtinPopups {
		if p.Key == key {
			return p, true
		}
	}
	return Popup{}, false
}
