package transport

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
	"github.com/Krimson/triage-kiosk/kiosk/internal/survey"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Имена маршрутов для логов и метрик
const (
	RouteDashboard   = "dashboard"
	RouteDisplay     = "display"
	RouteOLED        = "oled"
	RouteStats       = "stats"
	RouteCSV         = "csv"
	RouteSurvey      = "survey"
	RouteSubmit      = "survey_submit"
	RouteSurveyState = "survey_state"
)

// RequestObserver считает обслуженные запросы
type RequestObserver interface {
	RequestServed(route string)
}

type nopRequestObserver struct{}

func (nopRequestObserver) RequestServed(string) {}

// Options - параметры обработчика киоска
type Options struct {
	Mode       triage.Mode
	MaxChunk   int
	SendWindow int
	Observer   RequestObserver
}

// HTTPHandler обслуживает страницы и JSON киоска
type HTTPHandler struct {
	stats  *stats.Aggregator
	mirror *display.Mirror
	bridge *survey.Bridge
	opts   Options
}

// NewHTTPHandler создает HTTP обработчик
func NewHTTPHandler(agg *stats.Aggregator, mirror *display.Mirror, bridge *survey.Bridge, opts Options) *HTTPHandler {
	if opts.Observer == nil {
		opts.Observer = nopRequestObserver{}
	}
	if opts.Mode == "" {
		opts.Mode = triage.ModeOrdinal
	}
	return &HTTPHandler{stats: agg, mirror: mirror, bridge: bridge, opts: opts}
}

type route struct {
	prefix  string
	name    string
	handler http.HandlerFunc
}

// routes - таблица префиксов; порядок важен, /survey идет после /survey_*
func (h *HTTPHandler) routes() []route {
	return []route{
		{"/stats.json", RouteStats, h.GetStats},
		{"/oled.json", RouteOLED, h.GetOLED},
		{"/display", RouteDisplay, h.GetDisplay},
		{"/download.csv", RouteCSV, h.DownloadCSV},
		{"/survey_submit", RouteSubmit, h.SubmitSurvey},
		{"/survey_state.json", RouteSurveyState, h.GetSurveyState},
		{"/survey", RouteSurvey, h.GetSurvey},
	}
}

// RegisterRoutes регистрирует маршруты в роутере; все прочие пути ведут на панель
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	for _, rt := range h.routes() {
		router.PathPrefix(rt.prefix).Handler(h.wrap(rt.name, rt.handler))
	}
	router.PathPrefix("/").Handler(h.wrap(RouteDashboard, h.GetDashboard))
}

// Router возвращает готовый роутер киоска
func (h *HTTPHandler) Router() *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func (h *HTTPHandler) wrap(name string, fn http.HandlerFunc) http.Handler {
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s -> %s", r.Method, r.URL.Path, name)
		h.opts.Observer.RequestServed(name)
		fn(w, r)
	})
	return Buffered(counted, h.opts.MaxChunk, h.opts.SendWindow)
}

// GetStats возвращает агрегаты, при необходимости по одному цвету
// @Summary Групповые агрегаты
// @Description Средний пульс, самооценки, анкеты и счетчики браслетов. Неизвестный цвет дает общий снимок.
// @Tags Kiosk
// @Produce json
// @Param color query string false "Фильтр по цвету" Enums(green, yellow, red, verde, amarelo, vermelho)
// @Success 200 {object} stats.Document
// @Router /stats.json [get]
func (h *HTTPHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	if c, ok := triage.ParseColor(r.URL.Query().Get("color")); ok {
		snap = h.stats.SnapshotByColor(c)
	}
	respondJSON(w, http.StatusOK, snap.Document())
}

// OLEDDocument - JSON-копия четырех строк экрана
type OLEDDocument struct {
	L1 string `json:"l1"`
	L2 string `json:"l2"`
	L3 string `json:"l3"`
	L4 string `json:"l4"`
}

// NewOLEDDocument переводит кадр в JSON-документ
func NewOLEDDocument(f display.Frame) OLEDDocument {
	return OLEDDocument{L1: f[0], L2: f[1], L3: f[2], L4: f[3]}
}

// GetOLED возвращает текущий кадр экрана
// @Summary Текущие четыре строки экрана
// @Tags Kiosk
// @Produce json
// @Success 200 {object} transport.OLEDDocument
// @Router /oled.json [get]
func (h *HTTPHandler) GetOLED(w http.ResponseWriter, r *http.Request) {
	frame, _ := h.mirror.Frame()
	respondJSON(w, http.StatusOK, NewOLEDDocument(frame))
}

// SurveyStateDocument - mode=1, пока анкета открыта
type SurveyStateDocument struct {
	Mode int `json:"mode" enums:"0,1"`
}

// GetSurveyState сообщает, открыта ли анкета
// @Summary Состояние анкеты
// @Tags Survey
// @Produce json
// @Success 200 {object} transport.SurveyStateDocument
// @Router /survey_state.json [get]
func (h *HTTPHandler) GetSurveyState(w http.ResponseWriter, r *http.Request) {
	doc := SurveyStateDocument{}
	if h.bridge.IsOpen() {
		doc.Mode = 1
	}
	respondJSON(w, http.StatusOK, doc)
}

// DownloadCSV отдает заголовок и строку текущих агрегатов вложением
// @Summary Агрегаты в CSV
// @Description Заголовок и одна строка, CRLF. Состав колонок зависит от режима триажа.
// @Tags Kiosk
// @Produce text/csv
// @Success 200 {string} string "CSV attachment"
// @Failure 500 {object} map[string]string
// @Router /download.csv [get]
func (h *HTTPHandler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := stats.WriteCSV(&buf, h.stats.Snapshot(), stats.LayoutFor(h.opts.Mode)); err != nil {
		log.Printf("[ERROR] Failed to write CSV: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to build CSV")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+stats.CSVFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// SubmitSurvey принимает ответ анкеты и возвращает клиента на зеркало экрана
// @Summary Отправить ответы анкеты
// @Description Десять символов 0/1; некорректная строка игнорируется. Ответ всегда 302 на /display.
// @Tags Survey
// @Param ans query string true "Ответы на 10 вопросов" minlength(10) maxlength(10)
// @Success 302 {string} string "Redirect to /display"
// @Router /survey_submit [get]
func (h *HTTPHandler) SubmitSurvey(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ans")
	if bits, ok := survey.ParsePayload(raw); ok {
		h.bridge.Submit(bits)
		log.Printf("[SURVEY] Answer submitted: %s", bits)
	} else {
		log.Printf("[WARN] Ignoring malformed survey payload of %d chars", len(raw))
	}
	http.Redirect(w, r, "/display", http.StatusFound)
}

// GetSurvey показывает форму анкеты или страницу "анкета закрыта"
// GET /survey
func (h *HTTPHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	if h.bridge.IsOpen() {
		renderPage(w, surveyFormPage, surveyFormData())
		return
	}
	renderPage(w, surveyClosedPage, nil)
}

// GetDisplay показывает зеркало экрана
// GET /display
func (h *HTTPHandler) GetDisplay(w http.ResponseWriter, r *http.Request) {
	frame, _ := h.mirror.Frame()
	renderPage(w, displayPage, frame)
}

// GetDashboard показывает панель с агрегатами
// GET /
func (h *HTTPHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	renderPage(w, dashboardPage, dashboardData(h.stats.Snapshot(), h.opts.Mode))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}
