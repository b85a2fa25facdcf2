package heartrate

import (
	"errors"
	"math"
	"testing"
	"time"
)

// fakeSensor для тестирования - отдает заданный уровень ИК
type fakeSensor struct {
	level    uint32
	initErr  error
	readErr  error
	starts   int
	shutdown int
}

func (s *fakeSensor) Init() error  { return s.initErr }
func (s *fakeSensor) Start() error { s.starts++; return nil }
func (s *fakeSensor) Shutdown() error {
	s.shutdown++
	return nil
}

func (s *fakeSensor) ReadIR(n int) ([]uint32, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = s.level
	}
	return out, nil
}

func testConfig() Config {
	return Config{
		PresenceThreshold: 20000,
		DetectBurst:       10,
		HoldBurst:         6,
		Settle:            2500 * time.Millisecond,
		Step:              2000 * time.Millisecond,
		TargetBeats:       8,
		MinBPM:            87,
		MaxBPM:            92,
		Seed:              42,
	}
}

func newStarted(t *testing.T, s *fakeSensor, now time.Time) *Acquisition {
	t.Helper()
	a, err := New(s, testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := a.Start(now); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return a
}

func TestAcquisition_FullMeasurement(t *testing.T) {
	sensor := &fakeSensor{level: 52000}
	now := time.Unix(1000, 0)
	a := newStarted(t, sensor, now)

	a.Poll(now)
	if a.State() != Settling {
		t.Fatalf("Expected Settling after contact, got %s", a.State())
	}

	now = now.Add(2500 * time.Millisecond)
	a.Poll(now)
	if a.State() != Measuring {
		t.Fatalf("Expected Measuring after settle, got %s", a.State())
	}

	// Собираем значения на каждом шаге
	var values []float64
	for a.State() == Measuring {
		now = now.Add(2000 * time.Millisecond)
		a.Poll(now)
		values = append(values, a.Live())
	}

	if a.State() != Done {
		t.Fatalf("Expected Done, got %s", a.State())
	}
	if len(values) != 8 {
		t.Fatalf("Expected exactly 8 contributed values, got %d", len(values))
	}

	sum := 0.0
	for _, v := range values {
		if v < 87 || v > 92 {
			t.Errorf("Value %.3f outside band", v)
		}
		sum += v
	}
	final, ok := a.Final()
	if !ok {
		t.Fatal("Expected final value after Done")
	}
	if math.Abs(final-sum/8) > 1e-9 {
		t.Errorf("Final %.6f != mean %.6f", final, sum/8)
	}

	valid, target := a.Progress()
	if valid != 8 || target != 8 {
		t.Errorf("Expected progress 8/8, got %d/%d", valid, target)
	}
	if sensor.shutdown != 1 {
		t.Errorf("Expected sensor shutdown after Done, got %d", sensor.shutdown)
	}
}

func TestAcquisition_NoContact(t *testing.T) {
	sensor := &fakeSensor{level: 800}
	now := time.Unix(1000, 0)
	a := newStarted(t, sensor, now)

	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		a.Poll(now)
	}
	if a.State() != AwaitContact {
		t.Errorf("Expected AwaitContact without finger, got %s", a.State())
	}
	if _, ok := a.Final(); ok {
		t.Error("Final must be invalid before Done")
	}
}

func TestAcquisition_ContactLostResets(t *testing.T) {
	sensor := &fakeSensor{level: 52000}
	now := time.Unix(1000, 0)
	a := newStarted(t, sensor, now)

	a.Poll(now)
	now = now.Add(2500 * time.Millisecond)
	a.Poll(now)
	now = now.Add(4000 * time.Millisecond)
	a.Poll(now)
	a.Poll(now.Add(2000 * time.Millisecond))

	if valid, _ := a.Progress(); valid == 0 {
		t.Fatal("Expected some progress before losing contact")
	}

	sensor.level = 0
	a.Poll(now.Add(2100 * time.Millisecond))

	if a.State() != AwaitContact {
		t.Fatalf("Expected AwaitContact after losing finger, got %s", a.State())
	}
	if valid, _ := a.Progress(); valid != 0 {
		t.Errorf("Expected counters reset, got %d", valid)
	}
	if a.Live() != 0 {
		t.Errorf("Expected live reset, got %f", a.Live())
	}
}

func TestAcquisition_SettlingLost(t *testing.T) {
	sensor := &fakeSensor{level: 52000}
	now := time.Unix(1000, 0)
	a := newStarted(t, sensor, now)

	a.Poll(now)
	sensor.level = 100
	a.Poll(now.Add(time.Second))

	if a.State() != AwaitContact {
		t.Errorf("Expected AwaitContact, got %s", a.State())
	}
}

func TestAcquisition_ReadErrorGoesToError(t *testing.T) {
	sensor := &fakeSensor{level: 52000}
	now := time.Unix(1000, 0)
	a := newStarted(t, sensor, now)

	sensor.readErr = errors.New("bus fault")
	a.Poll(now)

	if a.State() != Error {
		t.Fatalf("Expected Error state, got %s", a.State())
	}
	if a.Err() == nil {
		t.Error("Expected error to be recorded")
	}
}

func TestAcquisition_InitFailure(t *testing.T) {
	a, err := New(&fakeSensor{initErr: errors.New("no ack")}, testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := a.Init(); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("Expected ErrSensorNotFound, got %v", err)
	}
	if err := a.Start(time.Now()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestPresence_Majority(t *testing.T) {
	a, _ := New(&fakeSensor{}, testConfig())

	mixed := &burstSensor{samples: []uint32{30000, 30000, 30000, 100, 100, 0}}
	a.sensor = mixed
	present, err := a.presence(6)
	if err != nil || !present {
		t.Errorf("3 of 5 nonzero above threshold must count as presence, got %v %v", present, err)
	}

	mixed.samples = []uint32{30000, 30000, 100, 100}
	present, _ = a.presence(4)
	if present {
		t.Error("Half above threshold is not a majority")
	}
}

type burstSensor struct {
	fakeSensor
	samples []uint32
}

func (s *burstSensor) ReadIR(n int) ([]uint32, error) {
	return s.samples, nil
}

func TestGenerator_StaysInBand(t *testing.T) {
	g, err := NewGenerator(87, 92, 7)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	prev := 0.0
	for i := 0; i < 1000; i++ {
		prev = g.Next(prev)
		if prev < 87 || prev > 92 {
			t.Fatalf("Value %.3f out of band at step %d", prev, i)
		}
	}

	st := g.GetStats()
	if st.TotalValuesGenerated != 1000 {
		t.Errorf("Expected 1000 values, got %d", st.TotalValuesGenerated)
	}
	if st.MinValueGenerated > st.MaxValueGenerated {
		t.Errorf("Min %.2f > max %.2f", st.MinValueGenerated, st.MaxValueGenerated)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	g1, _ := NewGenerator(87, 92, 99)
	g2, _ := NewGenerator(87, 92, 99)

	for i := 0; i < 20; i++ {
		if v1, v2 := g1.Next(0), g2.Next(0); v1 != v2 {
			t.Fatalf("Same seed must yield same sequence: %f != %f", v1, v2)
		}
	}
}

func TestGenerator_InvalidBand(t *testing.T) {
	if _, err := NewGenerator(92, 87, 1); !errors.Is(err, ErrInvalidBand) {
		t.Errorf("Expected ErrInvalidBand, got %v", err)
	}
}

// measureOnce проводит одно измерение от контакта до Done
func measureOnce(t *testing.T, a *Acquisition, now time.Time) time.Time {
	t.Helper()
	a.Poll(now)
	now = now.Add(2500 * time.Millisecond)
	a.Poll(now)
	for i := 0; i < 8; i++ {
		now = now.Add(2000 * time.Millisecond)
		a.Poll(now)
	}
	if a.State() != Done {
		t.Fatalf("Expected Done, got %s", a.State())
	}
	return now
}

func TestAcquisition_GeneratorStatsPerMeasurement(t *testing.T) {
	sensor := &fakeSensor{level: 52000}
	now := time.Unix(1000, 0)
	a := newStarted(t, sensor, now)

	now = measureOnce(t, a, now)
	first, _ := a.Final()

	if err := a.Start(now); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	now = measureOnce(t, a, now)
	second, _ := a.Final()

	st := a.gen.GetStats()
	if st.TotalValuesGenerated != 8 {
		t.Errorf("Expected stats of the last measurement only (8 values), got %d", st.TotalValuesGenerated)
	}
	if st.MinValueGenerated > second || st.MaxValueGenerated < second {
		t.Errorf("Final %.2f outside measurement range [%.2f, %.2f]", second, st.MinValueGenerated, st.MaxValueGenerated)
	}
	if first == second {
		t.Errorf("Expected the sequence to continue across measurements, got %.3f twice", first)
	}
}

func TestGenerator_ResetStatsKeepsSequence(t *testing.T) {
	g1, _ := NewGenerator(87, 92, 5)
	g2, _ := NewGenerator(87, 92, 5)

	g1.Next(0)
	g2.Next(0)
	g1.ResetStats()

	if st := g1.GetStats(); st.TotalValuesGenerated != 0 || st.MinValueGenerated != 92 || st.MaxValueGenerated != 87 {
		t.Errorf("Unexpected stats after reset: %+v", st)
	}
	if v1, v2 := g1.Next(0), g2.Next(0); v1 != v2 {
		t.Errorf("ResetStats must not reseed: %f != %f", v1, v2)
	}
}
