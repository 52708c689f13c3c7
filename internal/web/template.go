package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/heartbeat-node/internal/status"
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
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
	"mv": func(v float32) string { return fmt.Sprintf("%.1f", v) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Heartbeat Node</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.RUNNING { color: green; font-weight: bold; }
.EXITED { color: #888; }
.FAILED { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
</style>
</head>
<body>
<h1>Heartbeat Node</h1>

<h2>Heartbeat</h2>
<table>
<tr><th>Speed index</th><td>{{.SpeedIndex}}</td></tr>
<tr><th>Multiplier</th><td>x{{.Multiplier}}</td></tr>
<tr><th>Cycle</th><td>{{ms .Cycle}}ms</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
<tr><th>Presses</th><td>{{.Presses}}</td></tr>
</table>

<h2>Sampler</h2>
<table>
{{if .LastSample}}<tr><th>Last reading</th><td>{{.LastSample.Raw}} ({{mv .LastSample.Millivolts}} mV)</td></tr>
<tr><th>Read at</th><td>{{.LastSample.At.UTC.Format "2006-01-02T15:04:05.000Z"}}</td></tr>
{{else}}<tr><th>Last reading</th><td>none</td></tr>
{{end}}<tr><th>Samples</th><td>{{.Samples}}</td></tr>
{{if .SampleError}}<tr><th>Error</th><td class="error">{{.SampleError}}</td></tr>{{end}}
</table>

<h2>Tasks</h2>
<table>
{{range .Tasks}}<tr><th>{{.Name}}</th><td class="{{.State}}">{{.State}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>NATS</th><td class="{{if .NATSConnected}}connected{{else}}disconnected{{end}}">{{if .NATSConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>NATS URL</th><td>{{if .Config.NATSURL}}{{.Config.NATSURL}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Sample period</th><td>{{.Config.SamplePeriodMs}}ms</td></tr>
<tr><th>ADC</th><td>{{.Config.ADCSource}}</td></tr>
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
