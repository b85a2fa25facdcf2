package session

import (
	"fmt"
	"log"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/color"
	"github.com/Krimson/triage-kiosk/kiosk/internal/heartrate"
	"github.com/Krimson/triage-kiosk/kiosk/internal/input"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
	"github.com/Krimson/triage-kiosk/kiosk/internal/x/mathx"
)

func (m *Machine) tickIdle(time.Time, input.Events) {}

// --- AwaitStart ---

func (m *Machine) enterAwaitStart(time.Time) {
	m.clearSession()
	m.show("Iniciar triagem?", "(A) Sim   (B) Nao", "", "Botao Joy: Relatorio")
}

func (m *Machine) tickAwaitStart(now time.Time, ev input.Events) {
	switch {
	case ev.A:
		m.beginSession()
		m.transition(now, HeartRatePrep)
	case ev.Joy:
		m.transition(now, ReportView)
	}
}

// --- HeartRatePrep ---

func (m *Machine) enterHeartRatePrep(now time.Time) {
	m.attempts = 0
	m.nextAttempt = now
	m.show("Oximetro", "Iniciando sensor...", "", "(B) Voltar")
}

func (m *Machine) tickHeartRatePrep(now time.Time, ev input.Events) {
	if ev.B {
		m.abort(now, ReasonCancelled, m.cfg.CancelNotice, "Oximetro cancelado", "Voltando ao menu...", "", "")
		return
	}
	if now.Before(m.nextAttempt) {
		return
	}

	hr := m.deps.HeartRate
	if err := hr.Init(); err != nil {
		m.attempts++
		log.Printf("[WARN] Heart-rate sensor init attempt %d/%d failed: %v", m.attempts, m.cfg.InitAttempts, err)
		if m.attempts >= m.cfg.InitAttempts {
			m.deps.Observer.SensorStatus(SensorHeartRate, false)
			m.abort(now, ReasonHeartRateMissing, m.cfg.SensorMissing, "MAX3010x nao encontrado", "Verifique cabos", "Voltando ao menu", "")
			return
		}
		m.nextAttempt = now.Add(m.cfg.InitBackoff)
		return
	}

	m.deps.Observer.SensorStatus(SensorHeartRate, true)
	if err := hr.Start(now); err != nil {
		m.abort(now, ReasonHeartRateStartErr, m.cfg.SensorError, "ERRO no oximetro", "Cheque conexoes", "", "")
		return
	}
	m.transition(now, HeartRateRunning)
}

// --- HeartRateRunning ---

func (m *Machine) enterHeartRateRunning(now time.Time) {
	m.lastRefresh = now
	m.drawHeartRate()
}

func (m *Machine) tickHeartRateRunning(now time.Time, ev input.Events) {
	hr := m.deps.HeartRate
	if ev.B {
		m.abort(now, ReasonCancelled, m.cfg.CancelNotice, "Oximetro cancelado", "Voltando ao menu...", "", "")
		return
	}

	before := hr.State()
	hr.Poll(now)

	switch hr.State() {
	case heartrate.Error:
		m.deps.Observer.SensorStatus(SensorHeartRate, false)
		m.abort(now, ReasonHeartRateError, m.cfg.SensorError, "ERRO no oximetro", "Cheque conexoes", "", "")
		return
	case heartrate.Done:
		final, _ := hr.Final()
		m.inputs.HeartRate = final
		m.inputs.HasHeartRate = true
		m.transition(now, ShowHeartRateResult)
		return
	}

	if hr.State() != before || now.Sub(m.lastRefresh) >= m.cfg.LiveRefresh {
		m.lastRefresh = now
		m.drawHeartRate()
	}
}

func (m *Machine) drawHeartRate() {
	hr := m.deps.HeartRate
	switch hr.State() {
	case heartrate.Settling:
		m.show("Oximetro ativo", "Calibrando...", "", "(B) Voltar")
	case heartrate.Measuring:
		valid, target := hr.Progress()
		m.show("Medindo...", fmt.Sprintf("BPM~ %.1f", hr.Live()), fmt.Sprintf("Validas: %d/%d", valid, target), "(B) Voltar")
	default:
		m.show("Oximetro ativo", "Posicione o dedo", "", "(B) Voltar")
	}
}

// --- ShowHeartRateResult ---

func (m *Machine) enterShowHeartRateResult(now time.Time) {
	m.show("Concluido!", fmt.Sprintf("BPM FINAL: %.1f", m.inputs.HeartRate), "", "")
	m.after(now, m.cfg.HeartRateShow, AwaitSurveyOrManualInput)
}

// --- AwaitSurveyOrManualInput ---

var selectorNames = [...]string{"Energia", "Humor", "Ansiedade"}

func (m *Machine) enterAwaitInput(time.Time) {
	if m.cfg.TriageMode == triage.ModeSurvey {
		m.deps.Survey.Begin()
		m.show("Questionario", "Responda no celular", "Acesse /survey", "Aguardando...")
		return
	}

	m.selector = 0
	m.inputs.Levels = triage.DefaultLevels()
	m.drawSelector()
}

func (m *Machine) tickAwaitInput(now time.Time, ev input.Events) {
	if m.cfg.TriageMode == triage.ModeSurvey {
		bits, ok := m.deps.Survey.Take()
		if !ok {
			return
		}
		m.inputs.Survey = bits
		m.hasSurvey = true
		m.decide()
		m.transition(now, TriageResultShown)
		return
	}

	level := m.selectorLevel()
	current := *level
	if ev.Left {
		*level = mathx.Clamp(*level-1, triage.LevelMin, triage.LevelMax)
	}
	if ev.Right {
		*level = mathx.Clamp(*level+1, triage.LevelMin, triage.LevelMax)
	}

	if ev.A {
		m.selector++
		if m.selector >= len(selectorNames) {
			m.hasLevels = true
			m.decide()
			m.transition(now, TriageResultShown)
			return
		}
		m.drawSelector()
		return
	}

	if *level != current {
		m.drawSelector()
	}
}

func (m *Machine) selectorLevel() *int {
	switch m.selector {
	case 0:
		return &m.inputs.Levels.Energy
	case 1:
		return &m.inputs.Levels.Mood
	default:
		return &m.inputs.Levels.Anxiety
	}
}

func (m *Machine) drawSelector() {
	level := *m.selectorLevel()
	m.show(selectorNames[m.selector], fmt.Sprintf("Nivel: %d (%s)", level, triage.LevelLabel(level)), "Joy<- ->   A=OK", "")
}

// --- TriageResultShown ---

func (m *Machine) enterTriageResult(time.Time) {
	m.colorInit = false
	m.show("Recomendacao:", "Pegue a pulseira", m.recommended.Label(), "Validaremos no sensor")
}

func (m *Machine) tickTriageResult(now time.Time, ev input.Events) {
	if !m.colorInit {
		if !ev.A && now.Sub(m.enteredAt) < m.cfg.TriageResultDwell {
			return
		}
		m.colorInit = true
		m.attempts = 0
		m.nextAttempt = now
	}
	if now.Before(m.nextAttempt) {
		return
	}

	if err := m.deps.Color.Init(); err != nil {
		m.attempts++
		log.Printf("[WARN] Color sensor init attempt %d/%d failed: %v", m.attempts, m.cfg.InitAttempts, err)
		if m.attempts >= m.cfg.InitAttempts {
			m.deps.Observer.SensorStatus(SensorColor, false)
			m.colorValidated = false
			m.show("TCS34725 nao encontrado", "Pulando validacao", "", "")
			m.after(now, m.cfg.ColorSkip, Commit)
			return
		}
		m.nextAttempt = now.Add(m.cfg.InitBackoff)
		return
	}

	m.deps.Observer.SensorStatus(SensorColor, true)
	m.transition(now, ColorValidationIntro)
}

// --- ColorValidationIntro ---

func (m *Machine) enterColorIntro(time.Time) {
	m.show("Validar pulseira", "Aproxime a pulseira", "no sensor", "")
}

func (m *Machine) tickColorIntro(now time.Time, ev input.Events) {
	if ev.A || now.Sub(m.enteredAt) >= m.cfg.ColorIntro {
		m.transition(now, ColorValidationLoop)
	}
}

// --- ColorValidationLoop ---

func (m *Machine) enterColorLoop(now time.Time) {
	m.baselineShown = false
	m.deps.Color.Begin(now, m.recommended)
	m.show("Validar pulseira", "Medindo ambiente...", "", "")
}

func (m *Machine) tickColorLoop(now time.Time, ev input.Events) {
	if m.flash.active {
		if now.Before(m.flash.until) {
			return
		}
		m.flash = flash{}
		m.drawColorPrompt("")
	}
	v := m.deps.Color

	if ev.A && v.Mode() == color.ModeConfirm {
		m.handleColorResult(now, v.Confirm(now), true)
		return
	}
	m.handleColorResult(now, v.Poll(now), false)
}

func (m *Machine) handleColorResult(now time.Time, res color.Result, confirmed bool) {
	target := m.recommended.Label()

	switch res.Outcome {
	case color.OutcomeCalibrating:
		if confirmed {
			m.showFlash(now, m.cfg.WeakReading, "Aguarde...", "Medindo ambiente...", "", "")
			return
		}
		if m.deps.Color.BaselineReady() && !m.baselineShown {
			m.baselineShown = true
			m.drawColorPrompt("")
		}

	case color.OutcomeIdle:
		if m.deps.Color.BaselineReady() && !m.baselineShown {
			m.baselineShown = true
			m.drawColorPrompt("")
		}

	case color.OutcomeNoReading:
		if confirmed {
			m.showFlash(now, m.cfg.WeakReading, "Sem leitura", "Aproxime melhor", "", "")
			return
		}
		m.drawColorPrompt("Sem leitura")

	case color.OutcomeWeak:
		if confirmed {
			m.showFlash(now, m.cfg.WeakReading, "Leitura fraca...", "Aproxime melhor", "", "")
			return
		}
		m.drawColorPrompt("Aproxime melhor")

	case color.OutcomeCandidate:
		m.show("Pegue a pulseira:", target, fmt.Sprintf("Lido: %s  A=OK", res.Eval.Color.Label()), "")

	case color.OutcomeMismatch:
		m.showFlash(now, m.cfg.Mismatch, "Pulseira incorreta", "Pegue a pulseira:", target, "")

	case color.OutcomeMatch:
		m.colorValidated = true
		m.show(fmt.Sprintf("Pulseira %s ok!", target), "", "", "")
		m.after(now, m.cfg.Match, Commit)
	}
}

func (m *Machine) drawColorPrompt(hint string) {
	m.show("Aproxime a pulseira", "no sensor", "Pegue a pulseira: "+m.recommended.Label(), hint)
}

// --- Commit ---

func (m *Machine) enterCommit(now time.Time) {
	rec := CommitRecord{SessionID: m.id, CommittedAt: now, Entry: m.entry()}

	if err := m.deps.Stats.Commit(rec.Entry); err != nil {
		log.Printf("[ERROR] Failed to commit session %s: %v", m.id, err)
		m.deps.Observer.SessionAborted(m.id, ReasonCommitFailed)
	} else {
		log.Printf("[SESSION] Session %s committed: color=%s validated=%v", m.id, rec.Entry.Color, rec.Entry.ColorValidated)
		m.out.Commit = &rec
		m.deps.Observer.SessionCommitted(rec)
	}

	m.clearSession()
	m.show("Registro concluido", "Obrigado!", "", "")
	m.after(now, m.cfg.CommitNotice, AwaitStart)
}

// --- ReportView ---

func (m *Machine) enterReport(now time.Time) {
	m.lastRefresh = now
	m.drawReport()
}

func (m *Machine) tickReport(now time.Time, ev input.Events) {
	if ev.Joy {
		m.transition(now, AwaitStart)
		return
	}
	if now.Sub(m.lastRefresh) >= m.cfg.ReportRefresh {
		m.lastRefresh = now
		m.drawReport()
	}
}

func (m *Machine) drawReport() {
	s := m.deps.Stats.Snapshot()

	bpm := fmt.Sprintf("BPM: -- (n=%d)", s.BPMCount)
	if s.BPMMean.Valid {
		bpm = fmt.Sprintf("BPM: %.1f (n=%d)", s.BPMMean.Value, s.BPMCount)
	}
	colors := fmt.Sprintf("V:%d A:%d R:%d", s.Colors[triage.Green], s.Colors[triage.Yellow], s.Colors[triage.Red])

	last := fmt.Sprintf("Ans: -- (n=%d)", s.Anxiety.N)
	if m.cfg.TriageMode == triage.ModeSurvey {
		last = fmt.Sprintf("Questionarios: %d", s.SurveyN)
	} else if s.Anxiety.Mean.Valid {
		last = fmt.Sprintf("Ans: %.2f (n=%d)", s.Anxiety.Mean.Value, s.Anxiety.N)
	}

	m.show("Relatorio Grupo", bpm, colors, last)
}
