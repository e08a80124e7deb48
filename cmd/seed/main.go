package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-booking/internal/auth"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/directory"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
	"github.com/hackgods/clinic-appointment-booking/pkg/logging"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var cities = []string{"Lisbon", "Porto", "Braga", "Coimbra", "Faro"}

type seedOptions struct {
	clinics          int
	doctorsPerClinic int
	patients         int
	days             int
	seed             uint64
}

type clinicRow struct {
	id      uuid.UUID
	doctors []uuid.UUID
}

func main() {
	var opts seedOptions
	flag.IntVar(&opts.clinics, "clinics", 5, "number of clinics")
	flag.IntVar(&opts.doctorsPerClinic, "doctors", 6, "doctors per clinic")
	flag.IntVar(&opts.patients, "patients", 2000, "number of patients")
	flag.IntVar(&opts.days, "days", 14, "schedule this many days ahead, weekdays only")
	flag.Uint64Var(&opts.seed, "seed", 0, "faker seed, 0 picks a random one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().
		Int("clinics", opts.clinics).
		Int("doctors_per_clinic", opts.doctorsPerClinic).
		Int("patients", opts.patients).
		Int("days", opts.days).
		Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	if opts.seed != 0 {
		_ = gofakeit.Seed(opts.seed)
	}

	clinics, err := seedClinics(ctx, pool, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed clinics")
	}
	patients, err := seedPatients(ctx, pool, logger, opts.patients)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	today := clock.DateOf(clock.System{Location: cfg.Location}.Now())
	scheduleSvc := schedule.NewService(schedule.NewPgRepository(pool), directory.NewPgRepository(pool), logger)
	total := 0
	for _, c := range clinics {
		created, err := scheduleSvc.CreateSchedules(ctx, c.id, schedule.CreateRequest{
			DoctorIDs: c.doctors,
			Range: &schedule.DateRange{
				From:     today,
				To:       today.AddDate(0, 0, opts.days),
				Weekdays: []int{1, 2, 3, 4, 5},
			},
			Fields: schedule.Fields{StartTime: "09:00", EndTime: "17:00", Interval: 30},
		})
		if err != nil {
			logger.Fatal().Err(err).Str("clinic_id", c.id.String()).Msg("seed schedules")
		}
		total += len(created)
	}
	logger.Info().Int("schedules", total).Msg("schedules seeded")

	if cfg.JWTSecret != "" && len(clinics) > 0 && len(patients) > 0 {
		printToken(logger, cfg.JWTSecret, auth.Actor{ID: clinics[0].id, Role: auth.RoleClinic})
		printToken(logger, cfg.JWTSecret, auth.Actor{ID: patients[0], Role: auth.RolePatient})
	}

	logger.Info().Msg("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, opts seedOptions) ([]clinicRow, error) {
	out := make([]clinicRow, 0, opts.clinics)

	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		for i := 0; i < opts.clinics; i++ {
			c := clinicRow{id: uuid.New()}
			_, err := tx.Exec(ctx, `
				INSERT INTO clinics (id, name, city, address)
				VALUES ($1, $2, $3, $4)
			`, c.id, gofakeit.Company()+" Clinic", gofakeit.RandomString(cities), gofakeit.Street())
			if err != nil {
				return fmt.Errorf("insert clinic: %w", err)
			}

			for j := 0; j < opts.doctorsPerClinic; j++ {
				doctorID := uuid.New()
				_, err := tx.Exec(ctx, `
					INSERT INTO doctors (id, clinic_id, name, specialty)
					VALUES ($1, $2, $3, $4)
				`, doctorID, c.id, "Dr. "+gofakeit.Name(), gofakeit.RandomString(specialties))
				if err != nil {
					return fmt.Errorf("insert doctor: %w", err)
				}
				_, err = tx.Exec(ctx, `
					INSERT INTO doctor_services (id, doctor_id, clinic_id, name, price_cents)
					VALUES ($1, $2, $3, $4, $5)
				`, uuid.New(), doctorID, c.id, "Consultation", int64(gofakeit.Number(40, 150))*100)
				if err != nil {
					return fmt.Errorf("insert doctor service: %w", err)
				}
				c.doctors = append(c.doctors, doctorID)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
			for i := offset; i < end; i++ {
				id := uuid.New()
				_, err := tx.Exec(ctx, `
					INSERT INTO patients (id, name, email)
					VALUES ($1, $2, $3)
				`, id, gofakeit.Name(), gofakeit.Email())
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("insert patients: %w", err)
		}

		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}
	return ids, nil
}

func printToken(logger zerolog.Logger, secret string, a auth.Actor) {
	token, err := auth.IssueToken(secret, a, 24*time.Hour)
	if err != nil {
		logger.Error().Err(err).Msg("issue token")
		return
	}
	fmt.Printf("%s %s\n  %s\n", a.Role, a.ID, token)
}
