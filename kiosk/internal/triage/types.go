package triage

import (
	"errors"
	"fmt"
	"strings"
)

// Color - рекомендованный цвет браслета
type Color uint8

const (
	Green Color = iota
	Yellow
	Red
	// Unknown используется только классификатором цвета
	Unknown
)

// Colors перечисляет цвета, которые может выдать триаж
var Colors = [...]Color{Green, Yellow, Red}

var (
	ErrUnknownColor = errors.New("unknown color")
	ErrSurveyBits   = errors.New("survey answer must be 10 binary characters")
	ErrUnknownMode  = errors.New("unknown triage mode")
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

// Label возвращает надпись для дисплея
func (c Color) Label() string {
	switch c {
	case Green:
		return "VERDE"
	case Yellow:
		return "AMARELA"
	case Red:
		return "VERMELHA"
	default:
		return "?"
	}
}

// Key возвращает ключ цвета в JSON/CSV отчетах
func (c Color) Key() string {
	switch c {
	case Green:
		return "verde"
	case Yellow:
		return "amarelo"
	case Red:
		return "vermelho"
	default:
		return ""
	}
}

// Valid сообщает, является ли цвет результатом триажа
func (c Color) Valid() bool {
	return c <= Red
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColor, c)
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, ok := ParseColor(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, string(b))
	}
	*c = parsed
	return nil
}

// ParseColor принимает английские и португальские названия
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green", "verde":
		return Green, true
	case "yellow", "amarelo", "amarela":
		return Yellow, true
	case "red", "vermelho", "vermelha":
		return Red, true
	default:
		return Unknown, false
	}
}

const (
	LevelMin     = 1
	LevelMax     = 3
	LevelDefault = 2
)

// Levels - три порядковые самооценки в диапазоне 1..3
type Levels struct {
	Energy  int `json:"energy"`
	Mood    int `json:"mood"`
	Anxiety int `json:"anxiety"`
}

// DefaultLevels - стартовые значения селекторов
func DefaultLevels() Levels {
	return Levels{Energy: LevelDefault, Mood: LevelDefault, Anxiety: LevelDefault}
}

// LevelLabel возвращает подпись уровня для дисплея
func LevelLabel(v int) string {
	switch v {
	case 1:
		return "Baixa"
	case 2:
		return "Media"
	case 3:
		return "Alta"
	default:
		return "?"
	}
}

// SurveyQuestions - число вопросов анкеты
const SurveyQuestions = 10

// SurveyBits - ответы да/нет на 10 вопросов анкеты
type SurveyBits [SurveyQuestions]bool

// ParseSurveyBits разбирает строку ровно из 10 символов '0'/'1'
func ParseSurveyBits(s string) (SurveyBits, error) {
	var bits SurveyBits
	if len(s) != SurveyQuestions {
		return bits, fmt.Errorf("%w: got %d characters", ErrSurveyBits, len(s))
	}
	for i := 0; i < SurveyQuestions; i++ {
		switch s[i] {
		case '1':
			bits[i] = true
		case '0':
		default:
			return SurveyBits{}, fmt.Errorf("%w: invalid character %q at %d", ErrSurveyBits, s[i], i)
		}
	}
	return bits, nil
}

func (b SurveyBits) String() string {
	var sb strings.Builder
	sb.Grow(SurveyQuestions)
	for _, yes := range b {
		if yes {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// CountYes возвращает число положительных ответов
func (b SurveyBits) CountYes() int {
	n := 0
	for _, yes := range b {
		if yes {
			n++
		}
	}
	return n
}

// Mode - вариант алгоритма триажа
type Mode string

const (
	ModeOrdinal Mode = "ordinal"
	ModeSurvey  Mode = "survey"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOrdinal, ModeSurvey:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}
