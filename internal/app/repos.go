package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/yungbote/employee-directory/internal/data/db"
	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// Store is the wired record store plus what the app needs to manage it.
type Store struct {
	Employees employee.EmployeeRepo
	Ping      func(ctx context.Context) error
	Close     func() error
}

func wireStore(ctx context.Context, log *logger.Logger, cfg StoreConfig) (Store, error) {
	log.Info("Wiring record store...", "driver", cfg.Driver)
	switch cfg.Driver {
	case DriverMemory:
		return Store{
			Employees: employee.NewMemoryRepo(log),
			Close:     func() error { return nil },
		}, nil

	case DriverSQLite, DriverPostgres:
		var (
			svc *db.Service
			err error
		)
		if cfg.Driver == DriverSQLite {
			svc, err = db.NewSQLiteService(cfg.SQLitePath, log)
		} else {
			svc, err = db.NewPostgresService(cfg.Postgres, log)
		}
		if err != nil {
			return Store{}, err
		}
		if cfg.AutoMigrate {
			if err := svc.AutoMigrateAll(); err != nil {
				_ = svc.Close()
				return Store{}, fmt.Errorf("%s automigrate: %w", cfg.Driver, err)
			}
		}
		return Store{
			Employees: employee.NewEmployeeRepo(svc.DB(), log),
			Ping:      svc.Ping,
			Close:     svc.Close,
		}, nil

	case DriverDynamoDB:
		client, err := employee.NewDynamoClient(ctx, cfg.DynamoDB)
		if err != nil {
			return Store{}, err
		}
		if cfg.AutoMigrate {
			if err := employee.EnsureDynamoTable(ctx, client, cfg.DynamoDB.Table); err != nil {
				return Store{}, err
			}
		}
		table := cfg.DynamoDB.Table
		return Store{
			Employees: employee.NewDynamoRepo(client, table, log),
			Ping: func(ctx context.Context) error {
				_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
				return err
			},
			Close: func() error { return nil },
		}, nil
	}
	return Store{}, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
