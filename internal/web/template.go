package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gate-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s string) string {
		switch s {
		case "Open", "Closed":
			return "stable"
		case "Opening", "Closing":
			return "moving"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Gate Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.stable { color: green; font-weight: bold; }
.moving { color: orange; font-weight: bold; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Gate Controller</h1>

<h2>Gate</h2>
<table>
<tr><th>State</th><td id="gate-state" class="{{stateClass .StateName}}">{{.StateName}}</td></tr>
<tr><th>Relays</th><td>{{if .Gate.Relays}}{{.Gate.Relays}}{{else}}OFF{{end}}</td></tr>
{{if not .Gate.Since.IsZero}}<tr><th>Since</th><td>{{.Gate.Since.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
<tr><th>Scheduled reset</th><td>{{if .Gate.ResetScheduled}}armed{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} / {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Presses</th><td>{{.Gate.Counts.Presses}}</td></tr>
<tr><th>Interrupts</th><td>{{.Gate.Counts.Interrupts}}</td></tr>
<tr><th>Opened</th><td>{{.Gate.Counts.Opened}}</td></tr>
<tr><th>Closed</th><td>{{.Gate.Counts.Closed}}</td></tr>
<tr><th>Scheduled resets</th><td>{{.Gate.Counts.ScheduledResets}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot cause</th><td>{{.BootCause}}{{if .Recovered}} (controlled reset){{end}}</td></tr>
<tr><th>GPIO driver</th><td>{{.Config.Driver}}</td></tr>
<tr><th>Travel time</th><td>{{.Config.GateOperationMs}}ms</td></tr>
<tr><th>Relay dead-time</th><td>{{.Config.DeadTimeMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
