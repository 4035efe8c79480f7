package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/identity"
	"github.com/mmeshcher/foodshare/internal/notify"
	"github.com/mmeshcher/foodshare/internal/repository"
	"github.com/mmeshcher/foodshare/internal/service"
)

var databaseURI string

var rootCmd = &cobra.Command{
	Use:           "foodsharectl",
	Short:         "foodsharectl manages a FoodShare deployment",
	Long:          "foodsharectl runs maintenance tasks against the FoodShare database and watches realtime change streams.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURI, "database-uri", "", "database URI (defaults to $DATABASE_URI)")
}

func resolveDatabaseURI() (string, error) {
	if databaseURI != "" {
		return databaseURI, nil
	}
	if v := os.Getenv("DATABASE_URI"); v != "" {
		return v, nil
	}
	return "", errors.New("--database-uri or DATABASE_URI is required")
}

// withService открывает базу, применяет миграции и передаёт сервис в run.
func withService(ctx context.Context, run func(context.Context, *service.Service) error) error {
	dsn, err := resolveDatabaseURI()
	if err != nil {
		return err
	}

	repo, err := repository.NewPostgresRepository(dsn)
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		_ = repo.Close()
		return err
	}
	defer logger.Sync()

	svc := service.NewService(repo, identity.NewLocalProvider(repo), nil, logger, serviceOptions(repo, logger))
	defer svc.Close()

	return run(ctx, svc)
}

// serviceOptions подключает уведомления, чтобы задачи CLI уведомляли пользователей
// так же, как сервер. Рассылки подписчикам нет, письма уходят при заданном SENDGRID_API_KEY.
func serviceOptions(store notify.Store, logger *zap.Logger) service.Options {
	var mailer notify.Mailer
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		from := os.Getenv("MAIL_FROM")
		if from == "" {
			from = "noreply@foodshare.local"
		}
		mailer = notify.NewSendGridMailer(key, from)
	}

	return service.Options{
		Notifier: notify.New(store, nil, mailer, logger),
	}
}
