package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"staydesk/internal/auth"
	"staydesk/internal/bookings"
	"staydesk/internal/shared/config"
	"staydesk/internal/shared/database"
	"staydesk/internal/shared/middleware"
	"staydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db      *database.DB
	store   bookings.Store
	manager *bookings.Manager
}

func main() {
	fmt.Println("🌱 Starting staydesk database seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	store := bookings.NewRepository(db.GetPostgreSQL())
	seeder := &Seeder{
		db:    db,
		store: store,
		// seeded history must not e-mail anyone
		manager: bookings.NewManager(store, bookings.NopEmitter{}, logger.Discard(), bookings.ManagerConfig{
			RefundPolicy: bookings.DefaultRefundPolicy(),
		}),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Log in with password \"staydesk123\".")
}

// CleanDatabase truncates all tables, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"booking_status_transitions",
		"credit_notes",
		"refund_requests",
		"booking_rooms",
		"bookings",
		"accounts",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds accounts and a few bookings in different lifecycle states
func (s *Seeder) SeedAll(ctx context.Context) error {
	accounts, err := s.SeedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}

	if err := s.SeedBookings(ctx, accounts); err != nil {
		return fmt.Errorf("failed to seed bookings: %w", err)
	}

	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

// SeedAccounts creates an admin, a front desk clerk and two guests
func (s *Seeder) SeedAccounts(ctx context.Context) (map[string]*auth.Account, error) {
	fmt.Println("  👤 Seeding accounts...")

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("staydesk123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	accountsData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      string
	}{
		{"admin", "Admin", "User", "admin@staydesk.local", middleware.RoleAdmin},
		{"staff", "Front", "Desk", "desk@staydesk.local", middleware.RoleStaff},
		{"guest1", "Grace", "Hopper", "grace@example.com", middleware.RoleGuest},
		{"guest2", "Alan", "Turing", "alan@example.com", middleware.RoleGuest},
	}

	repo := auth.NewRepository(s.db.PostgreSQL)
	accounts := make(map[string]*auth.Account)
	for _, data := range accountsData {
		account := &auth.Account{
			FirstName: data.firstName,
			LastName:  data.lastName,
			Email:     data.email,
			Password:  string(hashedPassword),
			Role:      data.role,
		}
		if err := repo.CreateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create account %s: %w", data.email, err)
		}

		accounts[data.key] = account
		fmt.Printf("    ✅ Created account: %s (%s)\n", account.Email, account.Role)
	}

	return accounts, nil
}

// SeedBookings drives sample bookings through the lifecycle manager
func (s *Seeder) SeedBookings(ctx context.Context, accounts map[string]*auth.Account) error {
	fmt.Println("  🛏️  Seeding bookings...")

	staff := bookings.StaffActor(accounts["staff"].ID)
	property := uuid.New()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	samples := []struct {
		guest    *auth.Account
		checkIn  time.Time
		nights   int
		total    int64
		statuses []bookings.Status
		paid     int64
	}{
		{accounts["guest1"], today.AddDate(0, 0, 14), 3, 450, nil, 0},
		{accounts["guest1"], today.AddDate(0, 0, 30), 2, 320, []bookings.Status{bookings.StatusConfirmed}, 320},
		{accounts["guest2"], today.AddDate(0, 0, -1), 4, 600, []bookings.Status{bookings.StatusConfirmed, bookings.StatusCheckedIn}, 600},
		{accounts["guest2"], today.AddDate(0, 0, -10), 2, 280, []bookings.Status{bookings.StatusConfirmed, bookings.StatusCheckedIn, bookings.StatusCompleted}, 280},
	}

	for _, sample := range samples {
		b := &bookings.Booking{
			PropertyID:     property,
			GuestID:        sample.guest.ID,
			GuestEmail:     sample.guest.Email,
			GuestName:      sample.guest.FullName(),
			CheckIn:        sample.checkIn,
			CheckOut:       sample.checkIn.AddDate(0, 0, sample.nights),
			TotalAmount:    decimal.NewFromInt(sample.total),
			Currency:       "USD",
			Status:         bookings.StatusPending,
			PaymentStatus:  bookings.PaymentUnpaid,
			AmountPaid:     decimal.Zero,
			AmountRefunded: decimal.Zero,
			AmountCredited: decimal.Zero,
			Rooms:          []bookings.BookingRoom{{RoomID: uuid.New()}},
		}
		if err := s.store.CreateBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to create booking for %s: %w", sample.guest.Email, err)
		}

		if sample.paid > 0 {
			if _, err := s.manager.ApplyPayment(ctx, b.ID, decimal.NewFromInt(sample.paid), staff); err != nil {
				return fmt.Errorf("failed to pay booking %s: %w", b.ID, err)
			}
		}
		for _, status := range sample.statuses {
			if _, err := s.manager.TransitionStatus(ctx, b.ID, status, staff, bookings.TransitionOptions{Reason: "seed"}); err != nil {
				return fmt.Errorf("failed to move booking %s to %s: %w", b.ID, status, err)
			}
		}

		fmt.Printf("    ✅ Created booking %s for %s\n", b.ID, sample.guest.Email)
	}

	return nil
}
