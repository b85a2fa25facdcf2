package survey

import (
	"strings"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Questions - каноничный порядок вопросов анкеты.
// Индексы 1 и 2 питают индикаторы базовых потребностей,
// 7, 8 и 9 имеют повышенный вес в балле.
var Questions = [triage.SurveyQuestions]string{
	"Voce esta se sentindo cansado hoje?",
	"Voce ficou sem se alimentar hoje?",
	"Voce dormiu mal na ultima noite?",
	"Voce sente dor de cabeca agora?",
	"Voce esta se sentindo triste?",
	"Voce esta preocupado com algo hoje?",
	"Voce sente dificuldade de concentracao?",
	"Voce sente falta de ar agora?",
	"Voce sente dor no peito agora?",
	"Voce sente tontura agora?",
}

// MaxPayload - длина строки ответа в запросе
const MaxPayload = triage.SurveyQuestions

// ParsePayload обрезает строку на первом символе, отличном от '0'/'1',
// и принимает ее только если остается ровно 10 символов
func ParsePayload(raw string) (triage.SurveyBits, bool) {
	end := strings.IndexFunc(raw, func(r rune) bool { return r != '0' && r != '1' })
	if end >= 0 {
		raw = raw[:end]
	}
	if len(raw) > MaxPayload {
		raw = raw[:MaxPayload]
	}

	bits, err := triage.ParseSurveyBits(raw)
	if err != nil {
		return triage.SurveyBits{}, false
	}
	return bits, true
}
