package triage

import (
	"math"

	"github.com/Krimson/triage-kiosk/kiosk/internal/x/mathx"
)

// DefaultBPM подставляется, когда пульс не измерен
const DefaultBPM = 80.0

// Inputs - входные данные одной сессии
type Inputs struct {
	HeartRate    float64
	HasHeartRate bool
	Levels       Levels
	Survey       SurveyBits
}

// BPM возвращает измеренный пульс или значение по умолчанию
func (in Inputs) BPM() float64 {
	if !in.HasHeartRate || math.IsNaN(in.HeartRate) {
		return DefaultBPM
	}
	return in.HeartRate
}

// Decide вычисляет рекомендованный цвет для выбранного режима
func Decide(mode Mode, in Inputs) Color {
	if mode == ModeSurvey {
		return DecideSurvey(in.BPM(), in.Survey)
	}
	return DecideOrdinal(in.BPM(), in.Levels)
}

// OrdinalRisk считает риск по трем самооценкам и пульсу.
// Уровни вне 1..3 приводятся к ближайшей границе.
func OrdinalRisk(bpm float64, lv Levels) int {
	energy := mathx.Clamp(lv.Energy, LevelMin, LevelMax)
	mood := mathx.Clamp(lv.Mood, LevelMin, LevelMax)
	anxiety := mathx.Clamp(lv.Anxiety, LevelMin, LevelMax)

	return 2*(anxiety-1) + (3 - energy) + (3 - mood) + ordinalBand(bpm)
}

func ordinalBand(bpm float64) int {
	switch {
	case bpm >= 100:
		return 2
	case bpm >= 85 || bpm < 55:
		return 1
	default:
		return 0
	}
}

// DecideOrdinal: risk >= 5 -> Red, risk >= 3 -> Yellow, иначе Green
func DecideOrdinal(bpm float64, lv Levels) Color {
	risk := OrdinalRisk(bpm, lv)
	switch {
	case risk >= 5:
		return Red
	case risk >= 3:
		return Yellow
	default:
		return Green
	}
}

// SurveyScore считает балл по анкете: число "да", надбавка за пульс
// и дополнительный вес вопросов 7, 8 и 9
func SurveyScore(bpm float64, bits SurveyBits) int {
	score := bits.CountYes()

	switch {
	case bpm >= 100:
		score += 2
	case bpm >= 90:
		score++
	}

	if bits[7] {
		score += 2
	}
	if bits[8] {
		score += 2
	}
	if bits[9] {
		score++
	}
	return score
}

// DecideSurvey: score >= 6 -> Red, score >= 3 -> Yellow, иначе Green
func DecideSurvey(bpm float64, bits SurveyBits) Color {
	score := SurveyScore(bpm, bits)
	switch {
	case score >= 6:
		return Red
	case score >= 3:
		return Yellow
	default:
		return Green
	}
}
