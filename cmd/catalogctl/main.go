// Command catalogctl administers the catalog from the shell: schema
// migration, product creation from YAML files and stock/status/price edits.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/config"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/ariefcatur/go-catalog-carts/internal/postgres"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/ariefcatur/go-catalog-carts/internal/redisx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

type app struct {
	cfg   config.Config
	log   *zap.Logger
	money pricing.Formatter
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel, "catalogctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a := &app{cfg: cfg, log: log, money: pricing.NewFormatter(cfg.CurrencySymbol)}
	if err := a.command().Run(context.Background(), os.Args); err != nil {
		log.Error("catalogctl failed", zap.Error(err))
		os.Exit(1)
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:  "catalogctl",
		Usage: "administer products, variants and stock",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", Usage: "postgres connection string", Value: a.cfg.PostgresDSN},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply the embedded schema",
				Action: a.migrate,
			},
			{
				Name:  "create-product",
				Usage: "Create a product and its variant matrix from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: a.createProduct,
			},
			{
				Name:  "restock",
				Usage: "Add stock to a product or variant",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Value: string(catalog.KindVariant), Usage: "product or variant"},
					&cli.StringFlag{Name: "id", Required: true},
					&cli.IntFlag{Name: "amount", Required: true},
				},
				Action: a.restock,
			},
			{
				Name:  "set-status",
				Usage: "Pause, resume or discontinue a variant",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "variant", Required: true},
					&cli.StringFlag{Name: "status", Required: true, Usage: "ACTIVE, INACTIVE or DISCONTINUED"},
				},
				Action: a.setStatus,
			},
			{
				Name:  "reprice",
				Usage: "Set price and discount of a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true},
					&cli.StringFlag{Name: "price", Required: true},
					&cli.IntFlag{Name: "discount"},
				},
				Action: a.reprice,
			},
		},
	}
}

func (a *app) connect(ctx context.Context, c *cli.Command) (*pgxpool.Pool, error) {
	return postgres.Connect(ctx, c.String("dsn"))
}

// service wires the catalog service with cache invalidation against redis;
// a missing redis only costs a warning per write.
func (a *app) service(pool *pgxpool.Pool) (*catalog.Service, func()) {
	rdb := redisx.New(a.cfg.RedisAddr)
	cache := &redisx.CatalogCache{RDB: rdb, TTL: a.cfg.CacheTTL, Log: a.log}
	svc := catalog.NewService(&catalog.PGStore{Pool: pool}, cache, a.log)
	return svc, func() { _ = rdb.Close() }
}

func (a *app) migrate(ctx context.Context, c *cli.Command) error {
	pool, err := a.connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	a.log.Info("migration complete")
	return nil
}

func (a *app) createProduct(ctx context.Context, c *cli.Command) error {
	fh, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer fh.Close()
	def, err := parseProductFile(fh)
	if err != nil {
		return err
	}

	pool, err := a.connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, done := a.service(pool)
	defer done()

	var in catalog.ProductInput
	err = (&catalog.PGStore{Pool: pool}).InTx(ctx, func(ctx context.Context, repo catalog.Repository) error {
		var err error
		in, err = def.input(ctx, repo)
		return err
	})
	if err != nil {
		return err
	}

	p, variants, err := svc.CreateProduct(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("product %s  %s  %s  sku=%s\n", p.ID, p.Slug, a.money.Format(p.FinalPrice), p.SKU)
	for _, v := range variants {
		fmt.Printf("  variant %s  %s  %s  stock=%d  %s\n", v.ID, v.SKU, a.money.Format(v.Price), v.Stock, v.Status)
	}
	return nil
}

func (a *app) restock(ctx context.Context, c *cli.Command) error {
	ref := catalog.UnitRef{Kind: catalog.UnitKind(c.String("kind")), ID: c.String("id")}
	pool, err := a.connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, done := a.service(pool)
	defer done()

	lvl, err := svc.Restock(ctx, ref, int(c.Int("amount")))
	if err != nil {
		return err
	}
	fmt.Printf("%s stock=%d status=%s\n", ref, lvl.Stock, lvl.Status)
	return nil
}

func (a *app) setStatus(ctx context.Context, c *cli.Command) error {
	pool, err := a.connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, done := a.service(pool)
	defer done()

	status, err := svc.SetVariantStatus(ctx, c.String("variant"), catalog.VariantStatus(c.String("status")))
	if err != nil {
		return err
	}
	fmt.Printf("variant %s status=%s\n", c.String("variant"), status)
	return nil
}

func (a *app) reprice(ctx context.Context, c *cli.Command) error {
	price, err := parseMoney("price", c.String("price"))
	if err != nil {
		return err
	}
	pool, err := a.connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, done := a.service(pool)
	defer done()

	p, err := svc.Reprice(ctx, c.String("product"), price, int(c.Int("discount")))
	if err != nil {
		return err
	}
	fmt.Printf("product %s price=%s discount=%d%% final=%s\n",
		p.ID, a.money.Format(p.Price), p.Discount, a.money.Format(p.FinalPrice))
	return nil
}
