package dashboard

import "html/template"

// pageTemplates holds the index and run-detail views. Kept inline so the
// binary stays self-contained.
var pageTemplates = template.Must(template.New("dashboard").Parse(`
{{define "index"}}<!DOCTYPE html>
<html>
<head>
<title>aeros evaluation dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f0f0f0; }
.metrics { display: flex; gap: 2rem; margin-top: 1rem; }
.metric { border: 1px solid #ccc; padding: 1rem; border-radius: 4px; }
.metric .value { font-size: 1.6rem; font-weight: bold; }
</style>
</head>
<body>
<h1>RAG Bot Evaluation Dashboard</h1>
{{if .Latest}}
<div class="metrics">
  <div class="metric"><div>Latest Accuracy</div><div class="value">{{printf "%.2f%%" .Latest.Accuracy}}</div></div>
  <div class="metric"><div>Verified Accuracy</div><div class="value">{{printf "%.2f%%" .Latest.VerifiedAccuracy}}</div></div>
  <div class="metric"><div>Avg Latency</div><div class="value">{{printf "%.2fs" .Latest.AvgLatency}}</div></div>
  <div class="metric"><div>Total Runs</div><div class="value">{{.TotalRuns}}</div></div>
</div>
{{else}}
<p>No evaluation runs recorded yet.</p>
{{end}}
<h2>Run History</h2>
<table>
<tr><th>ID</th><th>Timestamp</th><th>Model</th><th>Accuracy</th><th>Verified</th><th>Questions</th><th>Avg Latency</th><th>Retrieval</th><th>Ingestion</th></tr>
{{range .Rows}}
<tr>
  <td><a href="/run?id={{.Run.ID}}">{{.Run.ID}}</a></td>
  <td>{{.Run.Timestamp.Format "2006-01-02 15:04"}}</td>
  <td>{{.Run.ModelName}}</td>
  <td>{{printf "%.2f%%" .Run.Accuracy}}</td>
  <td>{{printf "%.2f%%" .Run.VerifiedAccuracy}}</td>
  <td>{{.Run.TotalQuestions}}</td>
  <td>{{printf "%.2fs" .Run.AvgLatency}}</td>
  <td>{{.Run.RetrievalType}}</td>
  <td>{{.IngestSummary}}</td>
</tr>
{{end}}
</table>
</body>
</html>{{end}}

{{define "run"}}<!DOCTYPE html>
<html>
<head>
<title>aeros run {{.Run.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; vertical-align: top; }
th { background: #f0f0f0; }
.correct { color: #0a0; } .incorrect { color: #a00; }
</style>
</head>
<body>
<p><a href="/">&larr; all runs</a></p>
<h1>Run {{.Run.ID}} — {{.Run.ModelName}} ({{.Run.RetrievalType}})</h1>
<p>Accuracy {{printf "%.2f%%" .Run.Accuracy}}, verified {{printf "%.2f%%" .Run.VerifiedAccuracy}}, {{.Run.TotalQuestions}} questions.</p>
<table>
<tr><th>Question</th><th>Gold Answer</th><th>Bot Answer</th><th>Judge</th><th>Citation</th><th>Latency</th><th>Verified</th></tr>
{{range .Details}}
<tr>
  <td>{{.Question}}</td>
  <td>{{.GoldAnswer}}</td>
  <td>{{.BotAnswer}}</td>
  <td>{{if .IsCorrect}}<span class="correct">CORRECT</span>{{else}}<span class="incorrect">INCORRECT</span>{{end}}</td>
  <td>{{if .CitationMatch}}yes{{else}}no{{end}}</td>
  <td>{{printf "%.2fs" .Latency}}</td>
  <td>
    <form method="post" action="/verify">
      <input type="hidden" name="detail_id" value="{{.ID}}">
      <input type="hidden" name="run_id" value="{{.RunID}}">
      <input type="hidden" name="verified" value="{{if .VerifiedCorrect}}false{{else}}true{{end}}">
      <button type="submit">{{if .VerifiedCorrect}}✓ correct (toggle){{else}}✗ incorrect (toggle){{end}}</button>
    </form>
  </td>
</tr>
{{end}}
</table>
</body>
</html>{{end}}
`))
