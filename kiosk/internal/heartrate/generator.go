package heartrate

import (
	"errors"
	"math/rand"
	"sync"
)

var ErrInvalidBand = errors.New("invalid heart-rate band")

// GeneratorStats содержит статистику генератора
type GeneratorStats struct {
	TotalValuesGenerated int
	MinValueGenerated    float64
	MaxValueGenerated    float64
	AverageValue         float64
	LastValue            float64
}

// Generator - синтетический пульс: случайное блуждание с возвратом
// к середине правдоподобной полосы
type Generator struct {
	mu    sync.Mutex
	rand  *rand.Rand
	min   float64
	max   float64
	stats GeneratorStats
}

// NewGenerator создает генератор пульса в полосе [min, max]
func NewGenerator(min, max float64, seed int64) (*Generator, error) {
	if min <= 0 || max < min {
		return nil, ErrInvalidBand
	}
	g := &Generator{
		rand: rand.New(rand.NewSource(seed)),
		min:  min,
		max:  max,
	}
	g.resetStats()
	return g, nil
}

// Next возвращает следующее значение: первое берется равномерно из полосы,
// далее prev*0.7 + r*0.3. Результат всегда внутри полосы.
func (g *Generator) Next(prev float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.min + g.rand.Float64()*(g.max-g.min)
	value := r
	if prev > 0 {
		value = prev*0.70 + r*0.30
	}

	// Ограничиваем полосой на случай prev вне нее
	if value < g.min {
		value = g.min
	}
	if value > g.max {
		value = g.max
	}

	g.updateStats(value)
	return value
}

// ResetStats обнуляет статистику; последовательность значений продолжается
func (g *Generator) ResetStats() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetStats()
}

// GetStats возвращает статистику работы генератора
func (g *Generator) GetStats() GeneratorStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *Generator) resetStats() {
	g.stats = GeneratorStats{
		MinValueGenerated: g.max,
		MaxValueGenerated: g.min,
	}
}

// updateStats обновляет статистику генератора
func (g *Generator) updateStats(value float64) {
	g.stats.TotalValuesGenerated++
	g.stats.LastValue = value

	if value < g.stats.MinValueGenerated {
		g.stats.MinValueGenerated = value
	}
	if value > g.stats.MaxValueGenerated {
		g.stats.MaxValueGenerated = value
	}

	totalSum := g.stats.AverageValue * float64(g.stats.TotalValuesGenerated-1)
	g.stats.AverageValue = (totalSum + value) / float64(g.stats.TotalValuesGenerated)
}
