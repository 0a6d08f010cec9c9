// Command sweeper expires every pending invitation past its deadline and exits.
// Run it from an external scheduler such as cron or a Kubernetes CronJob.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/config"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/postgresql"
	auditService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/audit"
	invitationService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/invitation"
	membershipService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/membership"
	"github.com/go-chi/httplog/v3"
)

func main() {
	logFormat := httplog.SchemaECS.Concise(true)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(slog.String("app", "taskflow-sweeper")))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tx := postgresql.NewTransactor(db)
	userRepo := postgresql.NewUserRepository(db)
	membershipRepo := postgresql.NewMembershipRepository(db)
	auditSvc := auditService.NewAuditService(postgresql.NewAuditRepository(db))
	svc := invitationService.NewInvitationService(
		tx,
		postgresql.NewInvitationRepository(db),
		postgresql.NewOrganisationRepository(db),
		userRepo,
		membershipRepo,
		membershipService.NewMembershipService(tx, userRepo, membershipRepo, auditSvc),
		auditSvc,
		cfg.Invitation.TTL,
	)

	n, err := svc.SweepExpired(ctx)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		db.Close()
		os.Exit(1)
	}
	slog.Info("sweep finished", "expired", n)
}
