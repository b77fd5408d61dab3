package web

import (
	"fmt"
	"html/template"
	"io"

	"github.com/sweeney/espresso-controller/internal/command"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"remaining": func(secs *int64) string {
		if secs == nil {
			return "-"
		}
		m := *secs / 60
		s := *secs % 60
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Espresso Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.off { color: #888; }
.heating { color: orange; font-weight: bold; }
.ready { color: green; font-weight: bold; }
.unknown { color: #888; }
</style>
</head>
<body>
<h1>Espresso Controller</h1>

<h2>Mode</h2>
<table>
<tr><th>Mode</th><td>{{.Mode.Mode}}</td></tr>
<tr><th>Target</th><td>{{.Mode.Target}}&deg;C</td></tr>
<tr><th>Espresso preference</th><td>{{.Mode.EspressoPreference}}&deg;C</td></tr>
<tr><th>Steam preference</th><td>{{.Mode.SteamPreference}}&deg;C</td></tr>
<tr><th>Steam remaining</th><td>{{remaining .Mode.SteamRemainingSeconds}}</td></tr>
</table>

<h2>State</h2>
<table>
<tr><th>Machine state</th><td class="{{.State.MachineState}}">{{.State.MachineState}}</td></tr>
<tr><th>Updated</th><td>{{.State.UpdatedAt}}</td></tr>
<tr><th>Description</th><td>{{.State.Description}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/history">history</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, modeSnap command.ModeResult, stateSnap command.StateResult) {
	data := statusJSON{
		Mode:  formatModeJSON(modeSnap),
		State: formatStateJSON(stateSnap),
	}
	indexTmpl.Execute(w, data)
}
