package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Layout - набор колонок CSV-выгрузки
type Layout int

const (
	LayoutOrdinal Layout = iota
	LayoutSurvey
)

// CSVFilename - имя файла выгрузки для браузера
const CSVFilename = "theralink_dados.csv"

var ErrCSVFormat = errors.New("malformed stats csv")

var ordinalHeader = []string{
	"bpm_mean", "bpm_n",
	"ans_mean", "ans_n",
	"energy_mean", "energy_n",
	"humor_mean", "humor_n",
	"cores_verde", "cores_amarelo", "cores_vermelho",
}

var surveyHeader = func() []string {
	h := []string{"bpm_mean", "bpm_n", "survey_n"}
	for i := 1; i <= triage.SurveyQuestions; i++ {
		h = append(h, fmt.Sprintf("q%d_yes", i))
	}
	return append(h, "cores_verde", "cores_amarelo", "cores_vermelho")
}()

// LayoutFor выбирает колонки по режиму триажа
func LayoutFor(mode triage.Mode) Layout {
	if mode == triage.ModeSurvey {
		return LayoutSurvey
	}
	return LayoutOrdinal
}

// Header возвращает заголовок CSV для раскладки
func (l Layout) Header() []string {
	if l == LayoutSurvey {
		return append([]string(nil), surveyHeader...)
	}
	return append([]string(nil), ordinalHeader...)
}

// WriteCSV пишет заголовок и одну строку с текущими агрегатами
func WriteCSV(w io.Writer, s Snapshot, layout Layout) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(layout.Header()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.Write(csvRow(s, layout)); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(s Snapshot, layout Layout) []string {
	row := []string{formatMean(s.BPMMean), formatCount(s.BPMCount)}

	if layout == LayoutSurvey {
		row = append(row, formatCount(s.SurveyN))
		for _, yes := range s.SurveyYes {
			row = append(row, formatCount(yes))
		}
	} else {
		for _, ls := range []LevelStat{s.Anxiety, s.Energy, s.Mood} {
			row = append(row, formatMean(ls.Mean), formatCount(ls.N))
		}
	}

	for _, c := range triage.Colors {
		row = append(row, formatCount(s.Colors[c]))
	}
	return row
}

func formatMean(m Mean) string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', 3, 64)
}

func formatCount(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// ParseCSV восстанавливает снимок из выгрузки и определяет раскладку по заголовку
func ParseCSV(r io.Reader) (Snapshot, Layout, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return Snapshot{}, 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) != 2 {
		return Snapshot{}, 0, fmt.Errorf("%w: expected 2 rows, got %d", ErrCSVFormat, len(records))
	}

	header, row := records[0], records[1]

	var layout Layout
	switch {
	case equalHeader(header, ordinalHeader):
		layout = LayoutOrdinal
	case equalHeader(header, surveyHeader):
		layout = LayoutSurvey
	default:
		return Snapshot{}, 0, fmt.Errorf("%w: unknown header", ErrCSVFormat)
	}
	if len(row) != len(header) {
		return Snapshot{}, 0, fmt.Errorf("%w: row has %d fields, header %d", ErrCSVFormat, len(row), len(header))
	}

	p := fieldParser{row: row}
	var s Snapshot
	s.BPMMean = p.mean()
	s.BPMCount = p.count()

	if layout == LayoutSurvey {
		s.SurveyN = p.count()
		for i := range s.SurveyYes {
			s.SurveyYes[i] = p.count()
		}
	} else {
		for _, ls := range []*LevelStat{&s.Anxiety, &s.Energy, &s.Mood} {
			ls.Mean = p.mean()
			ls.N = p.count()
		}
	}

	for _, c := range triage.Colors {
		s.Colors[c] = p.count()
	}

	if p.err != nil {
		return Snapshot{}, 0, p.err
	}
	return s, layout, nil
}

type fieldParser struct {
	row []string
	pos int
	err error
}

func (p *fieldParser) next() string {
	v := p.row[p.pos]
	p.pos++
	return v
}

func (p *fieldParser) mean() Mean {
	v := p.next()
	if v == "" || p.err != nil {
		return Mean{}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err = fmt.Errorf("%w: field %d: %v", ErrCSVFormat, p.pos, err)
		return Mean{}
	}
	return Mean{Value: f, Valid: true}
}

func (p *fieldParser) count() uint64 {
	v := p.next()
	if p.err != nil {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("%w: field %d: %v", ErrCSVFormat, p.pos, err)
		return 0
	}
	return n
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
