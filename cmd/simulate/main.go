package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-appointment-booking/internal/auth"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
	"github.com/hackgods/clinic-appointment-booking/pkg/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Targets      int // distinct slots contested
	Contenders   int // concurrent booking attempts per slot
	PatientLimit int
	JWTSecret    string
	PostgresDSN  string
}

// target is one slot every contender tries to book.
type target struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	ServiceID uuid.UUID
	Date      time.Time
	Slot      string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Simulator struct {
	config   SimConfig
	client   *http.Client
	logger   zerolog.Logger
	patients []uuid.UUID
	tokens   sync.Map // patient id -> bearer token

	booking OperationMetrics
	cancel  OperationMetrics

	// winners counts 201 responses per slot; more than one is a double booking.
	winners sync.Map
}

func main() {
	cfg := loadConfig()
	logger := logging.New("info", "dev")
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required to mint patient tokens")
	}
	logger.Info().
		Int("targets", cfg.Targets).
		Int("contenders", cfg.Contenders).
		Str("api", cfg.APIBaseURL).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	patients, err := loadPatients(ctx, pgPool, cfg.PatientLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("load patients")
	}
	targets, err := loadTargets(ctx, pgPool, cfg.Targets)
	if err != nil {
		logger.Fatal().Err(err).Msg("load targets")
	}
	logger.Info().Int("patients", len(patients)).Int("targets", len(targets)).Msg("data loaded")

	sim := &Simulator{
		config:   cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		patients: patients,
	}

	start := time.Now()
	if err := sim.Run(ctx, targets); err != nil {
		logger.Fatal().Err(err).Msg("simulation failed")
	}
	sim.PrintReport(time.Since(start), len(targets))
}

func loadConfig() SimConfig {
	base, err := config.Load()
	if err != nil {
		logging.Default().Fatal().Err(err).Msg("failed to load base config")
	}
	return SimConfig{
		APIBaseURL:   strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Targets:      getInt("SIM_TARGETS", 50),
		Contenders:   getInt("SIM_CONTENDERS", 20),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 1000),
		JWTSecret:    base.JWTSecret,
		PostgresDSN:  base.PostgresDSN,
	}
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no patients, run cmd/seed first")
	}
	return ids, nil
}

// loadTargets picks free slots on upcoming schedules.
func loadTargets(ctx context.Context, pool *pgxpool.Pool, limit int) ([]target, error) {
	rows, err := pool.Query(ctx, `
		SELECT s.clinic_id, s.doctor_id, ds.id, s.schedule_date,
		       to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'), s.interval_min,
		       COALESCE(array_agg(to_char(a.time_slot, 'HH24:MI')) FILTER (WHERE a.id IS NOT NULL), '{}')
		FROM schedules s
		JOIN LATERAL (
			SELECT id FROM doctor_services
			WHERE doctor_id = s.doctor_id AND clinic_id = s.clinic_id
			LIMIT 1
		) ds ON true
		LEFT JOIN appointments a ON a.schedule_id = s.id AND a.status <> 'canceled'
		WHERE s.schedule_date > current_date
		GROUP BY s.id, ds.id
		ORDER BY s.schedule_date
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []target
	for rows.Next() {
		var (
			t      target
			sched  schedule.Schedule
			booked []string
		)
		if err := rows.Scan(&t.ClinicID, &t.DoctorID, &t.ServiceID, &t.Date,
			&sched.StartTime, &sched.EndTime, &sched.Interval, &booked); err != nil {
			return nil, err
		}
		slots, err := sched.Slots()
		if err != nil {
			continue
		}
		free := freeSlots(slots, booked)
		if len(free) == 0 {
			continue
		}
		t.Slot = free[rand.IntN(len(free))]
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no free future slots, run cmd/seed first")
	}
	return out, nil
}

// Run fires Contenders booking attempts at every target at once. The winner
// of every other target cancels right away to exercise the lifecycle.
func (s *Simulator) Run(ctx context.Context, targets []target) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(256)

	for i, t := range targets {
		for c := 0; c < s.config.Contenders; c++ {
			patient := s.patients[rand.IntN(len(s.patients))]
			cancelAfter := i%2 == 0
			g.Go(func() error {
				s.book(gctx, t, patient, cancelAfter)
				return nil
			})
		}
	}
	return g.Wait()
}

func (s *Simulator) book(ctx context.Context, t target, patient uuid.UUID, cancelAfter bool) {
	body, _ := json.Marshal(map[string]any{
		"clinic_id":         t.ClinicID,
		"doctor_id":         t.DoctorID,
		"doctor_service_id": t.ServiceID,
		"date":              t.Date.Format(clock.DateLayout),
		"time_slot":         t.Slot,
		"visit_type":        "private",
		"description":       "simulated booking",
	})

	start := time.Now()
	resp, err := s.do(ctx, http.MethodPost, "/appointments", patient, body)
	if err != nil {
		s.booking.Record(time.Since(start), 0)
		s.logger.Debug().Err(err).Msg("booking request failed")
		return
	}
	defer resp.Body.Close()
	s.booking.Record(time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusCreated {
		return
	}
	key := fmt.Sprintf("%s/%s/%s", t.DoctorID, t.Date.Format(clock.DateLayout), t.Slot)
	n, _ := s.winners.LoadOrStore(key, new(int64))
	atomic.AddInt64(n.(*int64), 1)

	if !cancelAfter {
		return
	}
	var appt struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&appt); err != nil || appt.ID == uuid.Nil {
		return
	}
	start = time.Now()
	cresp, err := s.do(ctx, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", patient, nil)
	if err != nil {
		s.cancel.Record(time.Since(start), 0)
		return
	}
	cresp.Body.Close()
	s.cancel.Record(time.Since(start), cresp.StatusCode)
}

func (s *Simulator) do(ctx context.Context, method, path string, patient uuid.UUID, body []byte) (*http.Response, error) {
	token, err := s.token(patient)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return s.client.Do(req)
}

func (s *Simulator) token(patient uuid.UUID) (string, error) {
	if v, ok := s.tokens.Load(patient); ok {
		return v.(string), nil
	}
	token, err := auth.IssueToken(s.config.JWTSecret, auth.Actor{ID: patient, Role: auth.RolePatient}, time.Hour)
	if err != nil {
		return "", err
	}
	s.tokens.Store(patient, token)
	return token, nil
}

func (s *Simulator) PrintReport(elapsed time.Duration, targets int) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Targets: %d slots x %d contenders\n\n", targets, s.config.Contenders)

	printOperationReport("Booking", &s.booking)
	printOperationReport("Cancel", &s.cancel)

	won, doubled := 0, 0
	s.winners.Range(func(_, v any) bool {
		won++
		if atomic.LoadInt64(v.(*int64)) > 1 {
			doubled++
		}
		return true
	})
	fmt.Printf("Slots won: %d/%d\n", won, targets)
	if doubled > 0 {
		fmt.Printf("DOUBLE BOOKINGS: %d\n", doubled)
		os.Exit(1)
	}
	fmt.Println("No double bookings")
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func freeSlots(slots, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	var out []string
	for _, sl := range slots {
		if _, ok := taken[sl]; !ok {
			out = append(out, sl)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return def
}
