// tenantctl registers, lists, and removes tenant shards in the catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/catalog"
	"github.com/shardops/loadshaper/internal/config"
	"github.com/shardops/loadshaper/internal/provision"
)

var (
	configPath string

	serverName   string
	databaseName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Manage tenant shards in the catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")

	registerCmd := &cobra.Command{
		Use:   "register <tenant-name>",
		Short: "Register a new tenant shard",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegister,
	}
	registerCmd.Flags().StringVar(&serverName, "server", "", "tenant database server name")
	registerCmd.Flags().StringVar(&databaseName, "database", "", "tenant database name")
	registerCmd.MarkFlagRequired("server")
	registerCmd.MarkFlagRequired("database")

	moveCmd := &cobra.Command{
		Use:   "move <tenant-name>",
		Short: "Point an existing tenant at a different shard database",
		Args:  cobra.ExactArgs(1),
		RunE:  runMove,
	}
	moveCmd.Flags().StringVar(&serverName, "server", "", "new tenant database server name")
	moveCmd.Flags().StringVar(&databaseName, "database", "", "new tenant database name")
	moveCmd.MarkFlagRequired("server")
	moveCmd.MarkFlagRequired("database")

	rootCmd.AddCommand(
		registerCmd,
		moveCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List registered tenant shards",
			Args:  cobra.NoArgs,
			RunE:  runList,
		},
		&cobra.Command{
			Use:   "remove <tenant-name>",
			Short: "Remove a tenant's shard mapping",
			Args:  cobra.ExactArgs(1),
			RunE:  runRemove,
		},
		&cobra.Command{
			Use:   "key <tenant-name>",
			Short: "Print the derived tenant key for a name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Printf("%d\n", catalog.TenantKey(args[0]))
				return nil
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newService wires a provisioning service against the configured catalog
func newService() (*provision.Service, catalog.Store, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := catalog.NewPostgresStore(
		cfg.Catalog.Host,
		cfg.Catalog.Port,
		cfg.Catalog.Database,
		cfg.Catalog.User,
		cfg.Catalog.Password,
		cfg.Catalog.MaxConnections,
		cfg.Catalog.MinConnections,
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	var cache catalog.Cache
	if cfg.Redis.Enabled {
		cache, err = catalog.NewRedisCache(
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	} else {
		cache = catalog.NewInMemoryCache(cfg.Cache.MaxSize, logger)
	}

	return provision.NewService(store, cache, cfg.Cache.DirectoryTTL, logger), store, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenant, err := svc.RegisterTenant(ctx, args[0], serverName, databaseName)
	if err != nil {
		return err
	}

	fmt.Printf("Registered tenant %q with key %d on %s/%s\n",
		tenant.Name, tenant.TenantKey, tenant.ServerName, tenant.DatabaseName)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenant, err := svc.MoveTenant(ctx, args[0], serverName, databaseName)
	if err != nil {
		return err
	}

	fmt.Printf("Tenant %q now maps to %s/%s\n",
		tenant.Name, tenant.ServerName, tenant.DatabaseName)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenants, err := svc.ListTenants(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKEY\tSERVER\tDATABASE\tCREATED")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			t.Name, t.TenantKey, t.ServerName, t.DatabaseName,
			t.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runRemove(cmd *cobra.Command, args []string) error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.RemoveTenant(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Removed tenant %q\n", args[0])
	return nil
}
