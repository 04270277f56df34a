package hall

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/venue-booking-backend/internal/db"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("No .env file found or failed to load: %v", err)
	}

	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		ctx := context.Background()
		pool, err := db.NewPool(ctx, dsn)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v\n", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("Unable to migrate database: %v\n", err)
		}
		testPool = pool
	}

	exitCode := m.Run()

	if testPool != nil {
		testPool.Close()
	}
	os.Exit(exitCode)
}

func requireDB(t *testing.T) Repository {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DB_DSN is not set")
	}
	_, err := testPool.Exec(context.Background(), "TRUNCATE TABLE public.halls CASCADE")
	require.NoError(t, err)
	return NewPgxRepository(testPool)
}

func createHall(t *testing.T, repo Repository) *Hall {
	t.Helper()
	h := &Hall{Name: "Main Hall", Location: "Block A", Capacity: 200, Price: 5000}
	require.NoError(t, repo.Create(context.Background(), h))
	return h
}

func TestLedgerMarkBooked(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	h := createHall(t, repo)
	day := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)

	booked, err := repo.IsBooked(ctx, h.ID, day)
	require.NoError(t, err)
	assert.False(t, booked)

	require.NoError(t, repo.MarkBooked(ctx, h.ID, day, "BK-A"))
	// Same reference again is a no-op success.
	require.NoError(t, repo.MarkBooked(ctx, h.ID, day, "BK-A"))
	assert.ErrorIs(t, repo.MarkBooked(ctx, h.ID, day, "BK-B"), ErrSlotTaken)

	// A foreign release leaves the entry alone.
	require.NoError(t, repo.Release(ctx, h.ID, day, "BK-B"))
	booked, err = repo.IsBooked(ctx, h.ID, day)
	require.NoError(t, err)
	assert.True(t, booked)

	require.NoError(t, repo.Release(ctx, h.ID, day, "BK-A"))
	entries, err := repo.ListAvailability(ctx, h.ID, day, day)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedgerConcurrentClaims(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	h := createHall(t, repo)
	day := time.Date(2031, 7, 4, 0, 0, 0, 0, time.UTC)

	refs := []string{"R1", "R2", "R3", "R4", "R5", "R6", "R7", "R8"}
	errs := make([]error, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			errs[i] = repo.MarkBooked(ctx, h.ID, day, ref)
		}(i, ref)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotTaken)
	}
	assert.Equal(t, 1, wins)
}

func TestLedgerAdminEntries(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	h := createHall(t, repo)
	day := time.Date(2031, 8, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SetEntry(ctx, h.ID, day, StatusBlocked))
	// Booking overrides a blocked day.
	require.NoError(t, repo.MarkBooked(ctx, h.ID, day, "BK-X"))

	assert.ErrorIs(t, repo.SetEntry(ctx, h.ID, day, StatusSpecial), ErrBookedEntry)
	assert.ErrorIs(t, repo.ClearEntry(ctx, h.ID, day), ErrBookedEntry)

	other := day.AddDate(0, 0, 1)
	require.NoError(t, repo.SetEntry(ctx, h.ID, other, StatusPreliminary))
	require.NoError(t, repo.ClearEntry(ctx, h.ID, other))
	require.NoError(t, repo.ClearEntry(ctx, h.ID, other))

	entries, err := repo.ListAvailability(ctx, h.ID, day, other)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusBooked, entries[0].Status)
	require.NotNil(t, entries[0].BookingRef)
	assert.Equal(t, "BK-X", *entries[0].BookingRef)
}

func TestHallCRUD(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	h := createHall(t, repo)

	got, err := repo.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.Price)

	got.Price = 6000
	require.NoError(t, repo.Update(ctx, got))

	list, total, err := repo.List(ctx, Filter{Name: "main", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(6000), list[0].Price)

	require.NoError(t, repo.Delete(ctx, h.ID))
	_, err = repo.GetByID(ctx, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
