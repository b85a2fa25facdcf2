package health

import (
	"context"
	"log"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
)

// Имена сервисов в health-проверке; пустое имя - киоск целиком
const (
	ServiceKiosk     = ""
	ServiceSession   = "kiosk.Session"
	ServiceHeartRate = "kiosk.HeartRateSensor"
	ServiceColor     = "kiosk.ColorSensor"
)

type servingStatus = grpc_health_v1.HealthCheckResponse_ServingStatus

// HealthServer хранит статусы сервисов киоска и рассылает их изменения в Watch
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	mu       sync.RWMutex
	services map[string]servingStatus
	watchers map[string]map[chan servingStatus]struct{}
}

// NewHealthServer создает сервер; киоск целиком сразу SERVING
func NewHealthServer() *HealthServer {
	return &HealthServer{
		services: map[string]servingStatus{
			ServiceKiosk: grpc_health_v1.HealthCheckResponse_SERVING,
		},
		watchers: make(map[string]map[chan servingStatus]struct{}),
	}
}

func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	h.mu.RLock()
	st, ok := h.services[req.GetService()]
	h.mu.RUnlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
}

// Watch отдает текущий статус и затем каждое его изменение до конца потока.
// Незарегистрированный сервис получает SERVICE_UNKNOWN.
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	service := req.GetService()
	updates := make(chan servingStatus, 1)

	h.mu.Lock()
	current, ok := h.services[service]
	if !ok {
		current = grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
	}
	if h.watchers[service] == nil {
		h.watchers[service] = make(map[chan servingStatus]struct{})
	}
	h.watchers[service][updates] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.watchers[service], updates)
		h.mu.Unlock()
	}()

	if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: current}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case st := <-updates:
			if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: st}); err != nil {
				return err
			}
		}
	}
}

func (h *HealthServer) SetServingStatus(service string) {
	h.setStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
}

func (h *HealthServer) SetNotServingStatus(service string) {
	h.setStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Shutdown переводит все сервисы в NOT_SERVING перед остановкой
func (h *HealthServer) Shutdown() {
	h.mu.RLock()
	services := make([]string, 0, len(h.services))
	for s := range h.services {
		services = append(services, s)
	}
	h.mu.RUnlock()

	for _, s := range services {
		h.SetNotServingStatus(s)
	}
	log.Printf("[INFO] Health services set to NOT_SERVING")
}

func (h *HealthServer) setStatus(service string, st servingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.services[service]; ok && prev == st {
		return
	}
	h.services[service] = st

	// Медленный наблюдатель получает только последний статус
	for ch := range h.watchers[service] {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// SensorObserver переводит статус датчиков из сессии в health-сервисы
type SensorObserver struct {
	session.NopObserver
	health *HealthServer
}

// NewSensorObserver регистрирует сервисы киоска; датчики до первой инициализации
// считаются неизвестными
func NewSensorObserver(h *HealthServer) *SensorObserver {
	h.SetServingStatus(ServiceSession)
	h.setStatus(ServiceHeartRate, grpc_health_v1.HealthCheckResponse_UNKNOWN)
	h.setStatus(ServiceColor, grpc_health_v1.HealthCheckResponse_UNKNOWN)
	return &SensorObserver{health: h}
}

func (o *SensorObserver) SensorStatus(sensor session.SensorKind, ok bool) {
	service := ServiceHeartRate
	if sensor == session.SensorColor {
		service = ServiceColor
	}

	if ok {
		o.health.SetServingStatus(service)
		return
	}
	log.Printf("[WARN] Sensor %s reported not serving", sensor)
	o.health.SetNotServingStatus(service)
}
