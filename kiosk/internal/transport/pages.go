package transport

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
	"github.com/Krimson/triage-kiosk/kiosk/internal/survey"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

const pageHead = `<!doctype html><html lang="pt-BR"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>TheraLink</title>
<style>body{font-family:sans-serif;margin:1.5em;background:#101418;color:#e8e8e8}
table{border-collapse:collapse}td,th{padding:.3em .8em;border-bottom:1px solid #333}
.oled{font-family:monospace;background:#000;color:#7fd4ff;padding:1em;width:22em;white-space:pre}
a{color:#7fd4ff}</style></head><body>`

const pageFoot = `</body></html>`

var dashboardPage = template.Must(template.New("dashboard").Parse(pageHead + `
<h1>TheraLink - Painel do Grupo</h1>
<p>Amostra #{{.SampleID}} | BPM ao vivo: {{.Live}}</p>
<table>
<tr><th>Indicador</th><th>Media</th><th>N</th></tr>
<tr><td>BPM</td><td>{{.BPM}}</td><td>{{.BPMN}}</td></tr>
{{if .Survey}}<tr><td>Questionarios</td><td>-</td><td>{{.SurveyN}}</td></tr>
<tr><td>Sem refeicao</td><td>-</td><td>{{.NoMeal}}</td></tr>
<tr><td>Dormiu mal</td><td>-</td><td>{{.PoorSleep}}</td></tr>
{{else}}<tr><td>Ansiedade</td><td>{{.Anxiety}}</td><td>{{.AnxietyN}}</td></tr>
<tr><td>Energia</td><td>{{.Energy}}</td><td>{{.EnergyN}}</td></tr>
<tr><td>Humor</td><td>{{.Mood}}</td><td>{{.MoodN}}</td></tr>
{{end}}</table>
<h2>Pulseiras</h2>
<table>
<tr><td>Verde</td><td>{{.Green}}</td></tr>
<tr><td>Amarela</td><td>{{.Yellow}}</td></tr>
<tr><td>Vermelha</td><td>{{.Red}}</td></tr>
<tr><td>Sem sensor de cor</td><td>{{.NoColorSensor}}</td></tr>
</table>
<p><a href="/download.csv">Baixar CSV</a> | <a href="/display">Tela do totem</a> |
<a href="/stats.json">JSON</a></p>
<script>setTimeout(function(){location.reload()},5000)</script>
` + pageFoot))

var displayPage = template.Must(template.New("display").Parse(pageHead + `
<h1>Tela do totem</h1>
<div class="oled" id="oled">{{index . 0}}
{{index . 1}}
{{index . 2}}
{{index . 3}}</div>
<script>
function poll(){
 fetch('/survey_state.json').then(function(r){return r.json()}).then(function(s){
  if(s.mode===1){location.href='/survey';return}
  return fetch('/oled.json').then(function(r){return r.json()}).then(function(o){
   document.getElementById('oled').textContent=[o.l1,o.l2,o.l3,o.l4].join('\n')
  })
 }).catch(function(){}).then(function(){setTimeout(poll,700)})
}
setTimeout(poll,700)
</script>
` + pageFoot))

var surveyFormPage = template.Must(template.New("survey").Parse(pageHead + `
<h1>Questionario</h1>
<form id="f" onsubmit="return send()">
{{range .}}<p>{{.Number}}. {{.Text}}<br>
<label><input type="radio" name="q{{.Index}}" value="1"> Sim</label>
<label><input type="radio" name="q{{.Index}}" value="0" checked> Nao</label></p>
{{end}}<button type="submit">Enviar</button>
</form>
<script>
function send(){
 var s='';
 for(var i=0;i<{{len .}};i++){
  var c=document.querySelector('input[name=q'+i+']:checked');
  s+=(c&&c.value==='1')?'1':'0'
 }
 location.href='/survey_submit?ans='+s;
 return false
}
</script>
` + pageFoot))

var surveyClosedPage = template.Must(template.New("closed").Parse(pageHead + `
<h1>Questionario fechado</h1>
<p>Inicie uma sessao no totem para responder.</p>
<p><a href="/display">Tela do totem</a></p>
` + pageFoot))

type questionView struct {
	Index  int
	Number int
	Text   string
}

func surveyFormData() []questionView {
	out := make([]questionView, 0, len(survey.Questions))
	for i, q := range survey.Questions {
		out = append(out, questionView{Index: i, Number: i + 1, Text: q})
	}
	return out
}

type dashboardView struct {
	SampleID  uint64
	Live      string
	BPM       string
	BPMN      uint64
	Survey    bool
	SurveyN   uint64
	NoMeal    uint64
	PoorSleep uint64
	Anxiety   string
	AnxietyN  uint64
	Energy    string
	EnergyN   uint64
	Mood      string
	MoodN     uint64

	Green         uint64
	Yellow        uint64
	Red           uint64
	NoColorSensor uint64
}

func dashboardData(s stats.Snapshot, mode triage.Mode) dashboardView {
	needs := s.Needs()
	return dashboardView{
		SampleID:      s.SampleID,
		Live:          strconv.FormatFloat(s.Live, 'f', 1, 64),
		BPM:           formatMean(s.BPMMean),
		BPMN:          s.BPMCount,
		Survey:        mode == triage.ModeSurvey,
		SurveyN:       s.SurveyN,
		NoMeal:        needs.NoMeal,
		PoorSleep:     needs.PoorSleep,
		Anxiety:       formatMean(s.Anxiety.Mean),
		AnxietyN:      s.Anxiety.N,
		Energy:        formatMean(s.Energy.Mean),
		EnergyN:       s.Energy.N,
		Mood:          formatMean(s.Mood.Mean),
		MoodN:         s.Mood.N,
		Green:         s.Colors[triage.Green],
		Yellow:        s.Colors[triage.Yellow],
		Red:           s.Colors[triage.Red],
		NoColorSensor: s.NoColorSensor,
	}
}

func formatMean(m stats.Mean) string {
	if !m.Valid {
		return "-"
	}
	return strconv.FormatFloat(m.Value, 'f', 2, 64)
}

// renderPage выполняет шаблон в буфер, чтобы ошибка не оставила половину страницы
func renderPage(w http.ResponseWriter, t *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Printf("[ERROR] Failed to render %s page: %v", t.Name(), err)
		respondError(w, http.StatusInternalServerError, "Failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
