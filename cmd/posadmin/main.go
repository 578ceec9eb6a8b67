// Command posadmin runs maintenance tasks against the back office database.
//
//	posadmin reset-password -email admin@example.com -password secret
//	posadmin create-superadmin -email root@example.com -password secret
//	posadmin sweep-overdue
//	posadmin balance -tenant <uuid>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pos-backoffice/internal/notify"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/service"
	"pos-backoffice/internal/storage"
	"pos-backoffice/pkg/config"
	"pos-backoffice/pkg/database"
	"pos-backoffice/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const usage = `usage: posadmin <command> [flags]

commands:
  reset-password     set a user's password
  create-superadmin  create the platform superadmin if missing
  sweep-overdue      notify tenants holding overdue debts
  balance            print a tenant's billing balance`

type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.ConnectDB(cfg.DSN(), log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	a := &app{cfg: cfg, log: log, db: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "reset-password":
		err = a.resetPassword(ctx, args)
	case "create-superadmin":
		err = a.createSuperadmin(ctx, args)
	case "sweep-overdue":
		err = a.sweepOverdue(ctx)
	case "balance":
		err = a.balance(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error(cmd+" failed", zap.Error(err))
		os.Exit(1)
	}
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "new password")
	fs.Parse(args)
	if *email == "" || len(*password) < 6 {
		return errors.New("-email and a -password of at least 6 characters are required")
	}

	users := repository.NewUserRepo(a.db)
	user, err := users.FindByEmail(ctx, strings.ToLower(*email))
	if err != nil {
		return fmt.Errorf("user %s: %w", *email, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return err
	}
	// rotate the session so existing tokens stop working
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		return err
	}
	a.log.Info("password reset", zap.String("email", user.Email))
	return nil
}

func (a *app) createSuperadmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-superadmin", flag.ExitOnError)
	email := fs.String("email", a.cfg.SuperadminEmail, "superadmin email")
	password := fs.String("password", a.cfg.SuperadminPassword, "superadmin password")
	fs.Parse(args)
	if *password == "" {
		return errors.New("-password or SUPERADMIN_PASSWORD is required")
	}

	users := service.NewUserService(repository.NewUserRepo(a.db), a.log)
	user, created, err := users.EnsureSuperadmin(ctx, *email, *password)
	if err != nil {
		return err
	}
	if !created {
		a.log.Info("superadmin already exists", zap.String("email", user.Email))
		return nil
	}
	a.log.Info("superadmin created", zap.String("email", user.Email))
	return nil
}

func (a *app) billing() service.BillingService {
	return service.NewBillingService(
		repository.NewBillingRepo(a.db),
		repository.NewTenantRepo(a.db),
		storage.NewLocalFileStore(a.cfg.ReceiptDir, a.cfg.ReceiptBaseURL),
		notify.NewLogNotifier(a.log),
		a.log,
		time.Duration(a.cfg.OverdueAfterDays)*24*time.Hour,
	)
}

func (a *app) sweepOverdue(ctx context.Context) error {
	overdue, err := a.billing().CheckOverdueDebts(ctx)
	if err != nil {
		return err
	}
	for _, t := range overdue {
		fmt.Printf("%s\t%s\t%s\t%s\n", t.TenantID, t.TenantName, t.Balance.StringFixed(2), t.OldestDebt.Format("2006-01-02"))
	}
	a.log.Info("overdue sweep finished", zap.Int("overdue_tenants", len(overdue)))
	return nil
}

func (a *app) balance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant id")
	fs.Parse(args)

	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		return errors.New("-tenant must be a tenant id")
	}
	balance, err := a.billing().GetBalance(ctx, tenantID)
	if err != nil {
		return err
	}
	fmt.Println(balance.StringFixed(2))
	return nil
}
