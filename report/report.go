// Package report renders a cleaning run as a standalone HTML document:
// the configuration used, the channels repaired, every accept/reject
// decision with its score and threshold, and a per-channel amplitude
// comparison between input and output.
package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/neuroanalyst/neuroclean/eeg"
	"github.com/neuroanalyst/neuroclean/pipeline"
)

// Data collects everything one report needs.
type Data struct {
	// SourceFile is the input file name, for the header.
	SourceFile string

	// Record is the decision record of the run.
	Record *pipeline.Record

	// Original and Cleaned are the recordings before and after.
	Original *eeg.Recording
	Cleaned  *eeg.Recording

	// Generated is the report timestamp; the zero value means now.
	Generated time.Time
}

// channelRow is one line of the amplitude comparison table.
type channelRow struct {
	Name      string
	RMSBefore float64
	RMSAfter  float64
	Change    float64 // percent
	Repaired  bool
}

type reportModel struct {
	SourceFile  string
	Date        string
	Config      pipeline.Config
	Record      *pipeline.Record
	NumExcluded int
	Channels    []channelRow
	Duration    string
	SampleRate  float64
}

// Generate renders the report to w.
func Generate(w io.Writer, data Data) error {
	if data.Record == nil {
		return fmt.Errorf("report: no cleaning record")
	}
	if data.Original == nil || data.Cleaned == nil {
		return fmt.Errorf("report: both recordings are required")
	}
	if data.Original.NumChannels() != data.Cleaned.NumChannels() {
		return fmt.Errorf("report: channel count mismatch: %d before, %d after",
			data.Original.NumChannels(), data.Cleaned.NumChannels())
	}

	when := data.Generated
	if when.IsZero() {
		when = time.Now()
	}

	repaired := make(map[string]bool, len(data.Record.BadChannels))
	for _, name := range data.Record.BadChannels {
		repaired[name] = true
	}

	rows := make([]channelRow, data.Original.NumChannels())
	for i, name := range data.Original.ChannelNames {
		before := rms(data.Original.Data[i])
		after := rms(data.Cleaned.Data[i])
		change := 0.0
		if before > 0 {
			change = (after - before) / before * 100
		}
		rows[i] = channelRow{
			Name:      name,
			RMSBefore: before,
			RMSAfter:  after,
			Change:    change,
			Repaired:  repaired[name],
		}
	}

	model := reportModel{
		SourceFile:  data.SourceFile,
		Date:        when.Format("2006-01-02 15:04:05"),
		Config:      data.Record.Config,
		Record:      data.Record,
		NumExcluded: len(data.Record.ExcludedSources),
		Channels:    rows,
		Duration:    data.Original.Duration().Round(time.Millisecond).String(),
		SampleRate:  data.Original.SampleRate,
	}
	return tmpl.Execute(w, model)
}

func rms(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}

var tmpl = template.Must(template.New("report").Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html>
<head>
<title>Cleaning Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; margin: 2em; background: #f8f9fa; color: #212529; }
h1, h2 { color: #343a40; border-bottom: 1px solid #dee2e6; padding-bottom: .5em; }
.container { max-width: 1100px; margin: auto; background: white; padding: 2em; border-radius: 8px; box-shadow: 0 0 10px rgba(0,0,0,.05); }
table { border-collapse: collapse; width: 100%; margin-top: 1em; }
th, td { border: 1px solid #dee2e6; padding: .4em .8em; text-align: left; }
th { background: #f1f3f5; }
.rejected { color: #c92a2a; font-weight: bold; }
.kept { color: #2b8a3e; }
code { background: #e9ecef; padding: .2em .4em; border-radius: 3px; }
</style>
</head>
<body>
<div class="container">
<h1>Cleaning Report</h1>
<p><b>Source:</b> <code>{{.SourceFile}}</code> &mdash; {{.Duration}} at {{.SampleRate}} Hz &mdash; generated {{.Date}}</p>

<h2>Configuration</h2>
<table>
<tr><th>Parameter</th><th>Value</th></tr>
<tr><td>Passband</td><td>{{.Config.LowFreq}} &ndash; {{.Config.HighFreq}} Hz</td></tr>
<tr><td>Notch filters</td><td>{{range .Config.NotchFreqs}}{{.}} Hz {{end}}</td></tr>
<tr><td>Components</td><td>{{.Config.NumComponents}} (seed {{.Config.RandomSeed}})</td></tr>
<tr><td>EOG threshold</td><td>{{.Config.EOGThreshold}}</td></tr>
<tr><td>EMG threshold</td><td>{{.Config.EMGThreshold}}</td></tr>
<tr><td>Final stage</td><td>{{.Record.FinalStage}}</td></tr>
</table>

<h2>Bad Channels</h2>
{{if .Record.BadChannels}}
<p>Repaired {{len .Record.BadChannels}} channel(s):
{{range .Record.BadChannels}}<code>{{.}}</code> {{end}}</p>
{{else}}
<p>No bad channels were detected.</p>
{{end}}

<h2>Artifact Decisions</h2>
<p>{{.NumExcluded}} source(s) excluded from the reconstruction.</p>
{{if .Record.Decisions}}
<table>
<tr><th>Entity</th><th>Rule</th><th>Score</th><th>Threshold</th><th>Outcome</th></tr>
{{range .Record.Decisions}}
<tr>
<td><code>{{.Entity}}</code></td>
<td>{{.Rule}}</td>
<td>{{printf "%.3f" .Score}}</td>
<td>{{printf "%.2f" .Threshold}}</td>
{{if .Rejected}}<td class="rejected">rejected</td>{{else}}<td class="kept">kept</td>{{end}}
</tr>
{{end}}
</table>
{{else}}
<p>No decisions were recorded.</p>
{{end}}

{{if .Record.Skips}}
<h2>Skipped Stages</h2>
<table>
<tr><th>Stage</th><th>Reason</th></tr>
{{range .Record.Skips}}
<tr><td>{{.Stage}}</td><td>{{.Reason}}</td></tr>
{{end}}
</table>
{{end}}

<h2>Amplitude Comparison</h2>
<table>
<tr><th>Channel</th><th>RMS before</th><th>RMS after</th><th>Change</th></tr>
{{range .Channels}}
<tr>
<td><code>{{.Name}}</code>{{if .Repaired}} (repaired){{end}}</td>
<td>{{printf "%.4f" .RMSBefore}}</td>
<td>{{printf "%.4f" .RMSAfter}}</td>
<td>{{printf "%+.1f%%" .Change}}</td>
</tr>
{{end}}
</table>
</div>
</body>
</html>
`
