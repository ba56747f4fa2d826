// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package defaults

import (
	"html"
	"strings"

	"classportal/internal/parts"
)

// Template keys with built-in content.
const (
	KeyClassroomPage  = "classroom.page"
	KeyAuthLogin      = "auth.login"
	KeyAuthTokenLogin = "auth.token-login"
)

// DayTabsClass is the class that marks a day-tab navigation block.
const DayTabsClass = "day-tabs"

const dayTabsMarkup = `<nav class="day-tabs" aria-label="Days of the week">
<a href="#day-monday" data-day="monday">Mon</a>
<a href="#day-tuesday" data-day="tuesday">Tue</a>
<a href="#day-wednesday" data-day="wednesday">Wed</a>
<a href="#day-thursday" data-day="thursday">Thu</a>
<a href="#day-friday" data-day="friday">Fri</a>
</nav>`

const dayTabsStyle = `.day-tabs { display: flex; gap: .5rem; overflow-x: auto; margin: 1rem 0; }
.day-tabs a { padding: .4rem .9rem; border-radius: 999px; background: #eef2f7; color: inherit; text-decoration: none; white-space: nowrap; }
.day-tabs a:hover, .day-tabs a:focus { background: #dbe4f0; }`

// DayTabs returns the default day-tab navigation and its styling.
func DayTabs() parts.Parts {
	return parts.Parts{Markup: dayTabsMarkup, Style: dayTabsStyle}
}

const pageStyle = `.cp-page { max-width: 960px; margin: 0 auto; padding: 1rem; font-family: system-ui, sans-serif; }
.cp-header { display: flex; justify-content: space-between; align-items: baseline; }
.cp-strip { display: flex; gap: 1rem; padding: .5rem 1rem; border-radius: .5rem; background: #fff7e0; }
.cp-day { padding: .5rem 0; border-bottom: 1px solid #eee; }
.cp-popups { display: flex; flex-wrap: wrap; gap: .5rem; margin: 1rem 0; }
.cp-popups button { padding: .5rem .9rem; border: 1px solid #ccd; border-radius: .5rem; background: #fff; cursor: pointer; }
.popup { position: fixed; inset: 0; display: flex; align-items: center; justify-content: center; background: rgba(0, 0, 0, .4); }
.popup[hidden] { display: none; }
.popup-card { width: min(92vw, 520px); max-height: 85vh; overflow: auto; padding: 1rem; border-radius: .75rem; background: #fff; }
.popup-header { display: flex; justify-content: space-between; align-items: center; }
.popup-close { border: 0; background: none; font-size: 1.5rem; cursor: pointer; }`

const pageScript = `document.addEventListener('click', function (e) {
  var opener = e.target.closest('[data-popup-open]');
  if (opener) {
    var popup = document.getElementById('popup-' + opener.getAttribute('data-popup-open'));
    if (popup) { popup.hidden = false; }
    return;
  }
  var closer = e.target.closest('[data-popup-close]');
  if (closer) {
    var dialog = closer.closest('.popup');
    if (dialog) { dialog.hidden = true; }
  }
});
document.addEventListener('keydown', function (e) {
  if (e.key !== 'Escape') { return; }
  document.querySelectorAll('.popup').forEach(function (p) { p.hidden = true; });
});`

// classroomPage builds the default full-page skeleton. Popup tokens are
// emitted for every catalog entry so the resolver expands them.
func classroomPage(popups []Popup, prefix string) parts.Parts {
	var b strings.Builder
	b.WriteString(`<div class="cp-page" data-locale="{{.locale}}">
<header class="cp-header">
<h1>{{with .classroom}}{{.name}}{{else}}Classroom{{end}}</h1>
{{with .user}}<p class="cp-user">{{.name}}</p>{{end}}
</header>
<section class="cp-strip">{{with .classroom}}{{with .weather}}<span class="cp-weather">{{.summary}} {{.temp}}</span>{{end}}{{with .notice}}<span class="cp-notice">{{.}}</span>{{end}}{{end}}</section>
`)
	b.WriteString(dayTabsMarkup)
	b.WriteString(`
<section class="cp-schedule">{{with .classroom}}{{range .schedule}}<div class="cp-day" id="day-{{.day}}"><h3>{{.day}}</h3><ul>{{range .lessons}}<li><span>{{.time}}</span> {{.subject}}</li>{{end}}</ul></div>{{end}}{{end}}</section>
<section class="cp-announcements"><h2>Announcements</h2><ul>{{with .classroom}}{{range .announcements}}<li><strong>{{.title}}</strong> {{.body}}</li>{{else}}<li>No announcements.</li>{{end}}{{end}}</ul></section>
<section class="cp-links"><h2>Links</h2><ul>{{with .classroom}}{{range .links}}<li><a href="{{.url}}">{{.title}}</a></li>{{end}}{{end}}</ul></section>
<nav class="cp-popups">`)
	for _, p := range popups {
		b.WriteString(`<button type="button" data-popup-open="`)
		b.WriteString(html.EscapeString(popupID(p.Key)))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(p.Title))
		b.WriteString(`</button>`)
	}
	b.WriteString("</nav>\n")
	for _, p := range popups {
		b.WriteString("[[popup:")
		b.WriteString(prefix + p.Key)
		b.WriteString("]]\n")
	}
	b.WriteString("</div>")

	return parts.Parts{
		Markup: b.String(),
		Style:  dayTabsStyle + "\n" + pageStyle,
		Script: pageScript,
	}
}
