package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/db"
)

// Every seeded account gets the same password so local testing is painless.
const seedPassword = "medibook-dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	doctors, err := seedDoctors(context.Background(), pool, string(hash), 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patients, err := seedPatients(context.Background(), pool, string(hash), 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctors, patients); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, hash string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, email, phone, specialization, password, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, id, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), spec, hash)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, hash string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 100
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, password, created_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, id, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), hash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return ids, nil
}

// seedAppointments books each doctor's next three working days about half
// full, walking the slot grid so no seeded pair violates the unique indexes.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctors, patients []uuid.UUID) error {
	log.Println("seeding appointments")

	grid, err := booking.NewSlotGrid("09:00", "17:00", 30*time.Minute)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	patientIdx := 0
	for _, doctorID := range doctors {
		for day := 1; day <= 3; day++ {
			date := booking.DateOf(time.Now().AddDate(0, 0, day))
			for slot := range grid.Slots() {
				if gofakeit.Bool() {
					continue
				}
				patientID := patients[patientIdx%len(patients)]
				patientIdx++

				status := booking.StatusRequested
				if gofakeit.Bool() {
					status = booking.StatusConfirmed
				}

				_, err := tx.Exec(ctx, `
					INSERT INTO appointments (id, patient_id, doctor_id, date, time_slot, status, notes, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
				`, uuid.New(), patientID, doctorID, date, slot, status, gofakeit.Sentence(6))
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}
