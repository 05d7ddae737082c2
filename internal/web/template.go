package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/sweeney/weather-emulator/internal/status"
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
	"ms": func(v uint32) string {
		return (time.Duration(v) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Weather Emulator</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.waiting { color: orange; }
.fault { color: red; }
</style>
</head>
<body>
<h1>Weather Emulator</h1>

<h2>Scenario</h2>
<table>
<tr><th>State</th><td id="scenario-state" class="{{if not .Scenario.Running}}fault{{else if .Scenario.FirstSync}}ok{{else}}waiting{{end}}">{{if not .Scenario.Running}}stopped{{else if .Scenario.FirstSync}}running{{else}}waiting for DUT{{end}}</td></tr>
<tr><th>Scenario</th><td>{{.Scenario.Scenarios}}</td></tr>
<tr><th>Step</th><td>{{.Scenario.Steps}}</td></tr>
<tr><th>Since sync</th><td>{{ms .Scenario.ElapsedMs}}</td></tr>
<tr><th>Sync armed</th><td>{{if .Scenario.Armed}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Channels</h2>
<table>
<tr><th>Wind speed</th><td id="wind-speed">{{.Scenario.Ramp.Speed}} km/h (peak {{.Scenario.Ramp.PeakSpeed}}, {{if .Scenario.Ramp.Down}}down{{else}}up{{end}})</td></tr>
<tr><th>Wind direction</th><td id="wind-direction">{{.Scenario.Direction}}&deg;</td></tr>
<tr><th>Rainfall</th><td id="rainfall">{{.Scenario.Ramp.Rainfall}} mm (peak {{.Scenario.Ramp.PeakRainfall}})</td></tr>
</table>

<h2>Errors</h2>
<table>
<tr><th>Total</th><td class="{{if .Errors.Total}}fault{{else}}ok{{end}}">{{.Errors.Total}}</td></tr>
{{if .Errors.Last}}<tr><th>Last</th><td>{{.Errors.Last}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}fault{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Version</th><td>{{.Config.Version}}</td></tr>
<tr><th>Variant</th><td>{{.Config.Variant}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Period</th><td>{{.Config.PeriodMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Log device</th><td>{{if .Config.LogDevice}}{{.Config.LogDevice}}{{else}}disabled{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
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
	if err := indexTmpl.Execute(w, data); err != nil {
		logger.Warnf("web: render index: %v", err)
	}
}
