package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/medibook/internal/db"
)

// simulate hammers the booking API with concurrent workers and verifies the
// core guarantee afterwards: no (doctor, date, slot) ever ends up with two
// active appointments, no matter how contended the run was.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	Days        int
	PostgresDSN string
}

type DataPool struct {
	Patients []uuid.UUID
	Doctors  []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Report(name string) {
	om.mu.Lock()
	defer om.mu.Unlock()

	fmt.Printf("%-12s total=%d success=%d conflict=%d error=%d",
		name, om.Total, om.Success, om.Conflict, om.Error)

	if len(om.latencies) > 0 {
		sorted := make([]time.Duration, len(om.latencies))
		copy(sorted, om.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		fmt.Printf(" p50=%s p95=%s max=%s",
			sorted[len(sorted)*50/100],
			sorted[min(len(sorted)*95/100, len(sorted)-1)],
			sorted[len(sorted)-1])
	}
	fmt.Println()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL:  envStr("SIM_API_URL", "http://localhost:8080"),
		Duration:    envDuration("SIM_DURATION", 30*time.Second),
		Workers:     envInt("SIM_WORKERS", 20),
		Days:        envInt("SIM_DAYS", 2),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	data, err := loadDataPool(context.Background(), pool)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d patients, %d doctors", len(data.Patients), len(data.Doctors))

	createMetrics := &OperationMetrics{}
	transitionMetrics := &OperationMetrics{}
	listMetrics := &OperationMetrics{}

	runCtx, stopRun := context.WithTimeout(context.Background(), cfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(runCtx, cfg, data, createMetrics, transitionMetrics, listMetrics)
		}()
	}
	wg.Wait()

	fmt.Println("--- simulation results ---")
	createMetrics.Report("create")
	transitionMetrics.Report("transition")
	listMetrics.Report("list")

	if err := verifyNoDoubleBooking(context.Background(), pool); err != nil {
		log.Fatalf("VERIFICATION FAILED: %v", err)
	}
	fmt.Println("verification passed: no doctor slot holds two active appointments")
}

func worker(ctx context.Context, cfg SimConfig, data *DataPool, create, transition, list *OperationMetrics) {
	client := &http.Client{Timeout: 10 * time.Second}

	for ctx.Err() == nil {
		switch rand.Intn(10) {
		case 0, 1, 2, 3, 4, 5:
			doCreate(ctx, client, cfg, data, create)
		case 6, 7:
			doTransition(ctx, client, cfg, data, transition)
		default:
			doList(ctx, client, cfg, data, list)
		}
	}
}

func doCreate(ctx context.Context, client *http.Client, cfg SimConfig, data *DataPool, m *OperationMetrics) {
	// Narrow slot choice keeps contention high so conflicts actually happen.
	slots := []string{"09:00", "09:30", "10:00", "10:30"}
	body := map[string]string{
		"patient_id": data.Patients[rand.Intn(len(data.Patients))].String(),
		"doctor_id":  data.Doctors[rand.Intn(len(data.Doctors))].String(),
		"date":       time.Now().AddDate(0, 0, 1+rand.Intn(cfg.Days)).Format("2006-01-02"),
		"time_slot":  slots[rand.Intn(len(slots))],
		"notes":      "simulated booking",
	}

	status, resp, latency := post(ctx, client, cfg.APIBaseURL+"/api/appointments", body)
	m.Record(latency, status)

	if status == http.StatusCreated {
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if json.Unmarshal(resp, &created) == nil && created.ID != uuid.Nil {
			data.AddAppointment(created.ID)
		}
	}
}

func doTransition(ctx context.Context, client *http.Client, cfg SimConfig, data *DataPool, m *OperationMetrics) {
	id, ok := data.RandomAppointment()
	if !ok {
		return
	}
	actions := []string{"confirm", "cancel", "complete", "no-show"}
	action := actions[rand.Intn(len(actions))]

	status, _, latency := post(ctx, client, fmt.Sprintf("%s/api/appointments/%s/%s", cfg.APIBaseURL, id, action), nil)
	m.Record(latency, status)
}

func doList(ctx context.Context, client *http.Client, cfg SimConfig, data *DataPool, m *OperationMetrics) {
	doctorID := data.Doctors[rand.Intn(len(data.Doctors))]
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/appointments/doctor/%s", cfg.APIBaseURL, doctorID), nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		m.Record(time.Since(start), 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	m.Record(time.Since(start), resp.StatusCode)
}

func post(ctx context.Context, client *http.Client, url string, body map[string]string) (int, []byte, time.Duration) {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return 0, nil, time.Since(start)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, time.Since(start)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, payload, time.Since(start)
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool) (*DataPool, error) {
	data := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.Patients = append(data.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docRows, err := pool.Query(ctx, `SELECT id FROM doctors LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer docRows.Close()
	for docRows.Next() {
		var id uuid.UUID
		if err := docRows.Scan(&id); err != nil {
			return nil, err
		}
		data.Doctors = append(data.Doctors, id)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	if len(data.Patients) == 0 || len(data.Doctors) == 0 {
		return nil, fmt.Errorf("database is empty, run cmd/seed first")
	}
	return data, nil
}

func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) error {
	var violations int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT doctor_id, date, time_slot
			FROM appointments
			WHERE status IN ('requested', 'confirmed')
			GROUP BY doctor_id, date, time_slot
			HAVING count(*) > 1
		) dup
	`).Scan(&violations)
	if err != nil {
		return err
	}
	if violations > 0 {
		return fmt.Errorf("%d doctor slots hold more than one active appointment", violations)
	}
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
