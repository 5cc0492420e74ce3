package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("THREADLINE_DB_DSN")
	if dsn == "" {
		t.Skip("THREADLINE_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func mustCreateRunProduct(t *testing.T, tx *gorm.DB) *models.Product {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		Email:     "tl_test_" + uuid.NewString() + "@example.com",
		FirstName: "Run",
		LastName:  "Tester",
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	product := &models.Product{
		UserID: user.ID,
		Name:   "Pipeline Test Product",
		Status: enums.ProductStatusDraft,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("creating test product: %v", err)
	}
	return product
}

func TestRunRepositoryLifecycle(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRunRepository(tx)
	ctx := context.Background()
	product := mustCreateRunProduct(t, tx)

	run, err := repo.Create(ctx, &models.PipelineRun{
		ProductID:   product.ID,
		Status:      enums.PipelineRunPending,
		YieldBuffer: 10,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.ID == uuid.Nil {
		t.Fatal("expected run id to be generated")
	}

	if err := repo.MarkRunning(ctx, run.ID, "worker-test"); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	loaded, err := repo.FindByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("find run: %v", err)
	}
	if loaded.Status != enums.PipelineRunRunning {
		t.Fatalf("expected running, got %s", loaded.Status)
	}
	if loaded.WorkerID == nil || *loaded.WorkerID != "worker-test" {
		t.Fatalf("worker id not recorded: %v", loaded.WorkerID)
	}
	if loaded.StartedAt == nil || loaded.HeartbeatAt == nil {
		t.Fatal("start and heartbeat timestamps expected")
	}

	bomID := uuid.New()
	if err := repo.MarkGenerationDone(ctx, run.ID, bomID); err != nil {
		t.Fatalf("mark generation done: %v", err)
	}
	if err := repo.MarkSourcingDone(ctx, run.ID, 5); err != nil {
		t.Fatalf("mark sourcing done: %v", err)
	}
	if err := repo.FinishSucceeded(ctx, run.ID); err != nil {
		t.Fatalf("finish succeeded: %v", err)
	}

	loaded, err = repo.FindByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if loaded.Status != enums.PipelineRunSucceeded {
		t.Fatalf("expected succeeded, got %s", loaded.Status)
	}
	if !loaded.GenerationDone || !loaded.SourcingDone {
		t.Fatal("stage markers not persisted")
	}
	if loaded.SuppliersFound != 5 {
		t.Fatalf("expected 5 suppliers found, got %d", loaded.SuppliersFound)
	}
	if loaded.BOMID == nil || *loaded.BOMID != bomID {
		t.Fatal("bom id not persisted")
	}
	if loaded.FinishedAt == nil {
		t.Fatal("finished timestamp expected")
	}
}

func TestRunRepositoryFailureKeepsReason(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRunRepository(tx)
	ctx := context.Background()
	product := mustCreateRunProduct(t, tx)

	run, err := repo.Create(ctx, &models.PipelineRun{ProductID: product.ID, Status: enums.PipelineRunPending, YieldBuffer: 10})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := repo.MarkRunning(ctx, run.ID, "worker-test"); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := repo.FinishFailed(ctx, run.ID, "classifier returned no materials"); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	loaded, err := repo.FindByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if loaded.Status != enums.PipelineRunFailed {
		t.Fatalf("expected failed, got %s", loaded.Status)
	}
	if loaded.ErrorReason == nil || *loaded.ErrorReason != "classifier returned no materials" {
		t.Fatalf("error reason not kept: %v", loaded.ErrorReason)
	}

	// Terminal runs are immutable.
	if err := repo.FinishSucceeded(ctx, run.ID); err != nil {
		t.Fatalf("finish succeeded on terminal run: %v", err)
	}
	loaded, _ = repo.FindByID(ctx, run.ID)
	if loaded.Status != enums.PipelineRunFailed {
		t.Fatal("terminal run must not flip back to succeeded")
	}
}

func TestRunRepositoryFindStale(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRunRepository(tx)
	ctx := context.Background()
	product := mustCreateRunProduct(t, tx)

	run, err := repo.Create(ctx, &models.PipelineRun{ProductID: product.ID, Status: enums.PipelineRunPending, YieldBuffer: 10})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := repo.MarkRunning(ctx, run.ID, "worker-test"); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	// A pending run has no heartbeat; its age comes from created_at. It must
	// still be sweepable or the product stays processing forever after a
	// crash between scheduling and pickup.
	pendingProduct := mustCreateRunProduct(t, tx)
	pending, err := repo.Create(ctx, &models.PipelineRun{ProductID: pendingProduct.ID, Status: enums.PipelineRunPending, YieldBuffer: 10})
	if err != nil {
		t.Fatalf("create pending run: %v", err)
	}

	stale, err := repo.FindStale(ctx, time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	for _, candidate := range stale {
		if candidate.ID == run.ID {
			t.Fatal("freshly heartbeating run must not be stale")
		}
		if candidate.ID == pending.ID {
			t.Fatal("freshly created pending run must not be stale")
		}
	}

	stale, err = repo.FindStale(ctx, time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("find stale with future cutoff: %v", err)
	}
	foundRunning := false
	foundPending := false
	for _, candidate := range stale {
		if candidate.ID == run.ID {
			foundRunning = true
		}
		if candidate.ID == pending.ID {
			foundPending = true
		}
	}
	if !foundRunning {
		t.Fatal("run with an old heartbeat should be reported stale")
	}
	if !foundPending {
		t.Fatal("pending run older than the cutoff should be reported stale")
	}
}

func TestActiveRunIndexMatchesMigration(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "pkg", "migrate", "migrations", "20260120110000_pipeline_runs.sql"))
	if err != nil {
		t.Fatalf("reading pipeline_runs migration: %v", err)
	}
	if !strings.Contains(string(raw), "CREATE UNIQUE INDEX "+activeRunIndex) {
		t.Fatalf("migration does not create index %q", activeRunIndex)
	}
}

func TestActiveRunUniqueViolationMapping(t *testing.T) {
	violation := &pgconn.PgError{Code: "23505", ConstraintName: activeRunIndex}
	if !db.IsUniqueViolation(violation, activeRunIndex) {
		t.Fatal("active-run unique violation must map to the named index")
	}
	other := &pgconn.PgError{Code: "23505", ConstraintName: "idx_suppliers_name_country"}
	if db.IsUniqueViolation(other, activeRunIndex) {
		t.Fatal("a different constraint must not match the active-run index")
	}
}
