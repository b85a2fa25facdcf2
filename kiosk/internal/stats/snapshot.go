package stats

import (
	"encoding/json"
	"math"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Mean - среднее значение; Valid=false означает "нет значения", а не ноль
type Mean struct {
	Value float64
	Valid bool
}

func (m Mean) MarshalJSON() ([]byte, error) {
	if !m.Valid || math.IsNaN(m.Value) {
		return []byte("null"), nil
	}
	return json.Marshal(round3(m.Value))
}

func (m *Mean) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Mean{}
		return nil
	}
	if err := json.Unmarshal(b, &m.Value); err != nil {
		return err
	}
	m.Valid = true
	return nil
}

// LevelStat - среднее и число ответов по одной шкале
type LevelStat struct {
	Mean Mean
	N    uint64
}

// Snapshot - неизменяемая копия агрегатов на момент чтения
type Snapshot struct {
	SampleID      uint64
	Live          float64
	BPMMean       Mean
	BPMCount      uint64
	Colors        [len(triage.Colors)]uint64
	Anxiety       LevelStat
	Energy        LevelStat
	Mood          LevelStat
	SurveyN       uint64
	SurveyYes     [triage.SurveyQuestions]uint64
	NoColorSensor uint64

	Filter   triage.Color
	Filtered bool
}

// Total возвращает число зафиксированных сессий
func (s Snapshot) Total() uint64 {
	var n uint64
	for _, c := range s.Colors {
		n += c
	}
	return n
}

// Survey question indexes behind the basic-needs indicators.
const (
	NoMealQuestion    = 1
	PoorSleepQuestion = 2
)

// Needs - базовые потребности группы по анкете
type Needs struct {
	NoMeal    uint64 `json:"no_meal"`
	PoorSleep uint64 `json:"poor_sleep"`
}

func (s Snapshot) Needs() Needs {
	return Needs{
		NoMeal:    s.SurveyYes[NoMealQuestion],
		PoorSleep: s.SurveyYes[PoorSleepQuestion],
	}
}

// ColorCounts - счетчики браслетов в JSON
type ColorCounts struct {
	Verde    uint64 `json:"verde"`
	Amarelo  uint64 `json:"amarelo"`
	Vermelho uint64 `json:"vermelho"`
}

// Document - JSON-представление снимка для /stats.json
type Document struct {
	SampleID      uint64      `json:"sample_id"`
	Filter        string      `json:"filter,omitempty"`
	BPMLive       float64     `json:"bpm_live"`
	BPMMean       Mean        `json:"bpm_mean"`
	BPMN          uint64      `json:"bpm_n"`
	Cores         ColorCounts `json:"cores"`
	AnsMean       Mean        `json:"ans_mean"`
	AnsN          uint64      `json:"ans_n"`
	EnergyMean    Mean        `json:"energy_mean"`
	EnergyN       uint64      `json:"energy_n"`
	HumorMean     Mean        `json:"humor_mean"`
	HumorN        uint64      `json:"humor_n"`
	SurveyN       uint64      `json:"survey_n"`
	SurveyYes     []uint64    `json:"survey_yes"`
	Needs         Needs       `json:"needs"`
	NoColorSensor uint64      `json:"no_color_sensor"`
}

// Document собирает JSON-документ из снимка
func (s Snapshot) Document() Document {
	doc := Document{
		SampleID: s.SampleID,
		BPMLive:  round3(s.Live),
		BPMMean:  s.BPMMean,
		BPMN:     s.BPMCount,
		Cores: ColorCounts{
			Verde:    s.Colors[triage.Green],
			Amarelo:  s.Colors[triage.Yellow],
			Vermelho: s.Colors[triage.Red],
		},
		AnsMean:       s.Anxiety.Mean,
		AnsN:          s.Anxiety.N,
		EnergyMean:    s.Energy.Mean,
		EnergyN:       s.Energy.N,
		HumorMean:     s.Mood.Mean,
		HumorN:        s.Mood.N,
		SurveyN:       s.SurveyN,
		SurveyYes:     append([]uint64(nil), s.SurveyYes[:]...),
		Needs:         s.Needs(),
		NoColorSensor: s.NoColorSensor,
	}
	if s.Filtered {
		doc.Filter = s.Filter.String()
	}
	return doc
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
