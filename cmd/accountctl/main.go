// accountctl manages the scraping account pool from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"jobscout/scraper-service/internal/config"
	"jobscout/scraper-service/internal/db"
	"jobscout/scraper-service/internal/identity"
	"jobscout/scraper-service/internal/secrets"
)

type addCmd struct {
	Email    string `required:"" help:"Platform login email."`
	Password string `required:"" help:"Platform login password."`
	Premium  bool   `help:"Mark the account as premium (leased first)."`
}

func (c *addCmd) Run(ctx context.Context, pool *identity.Pool) error {
	id, err := pool.Add(ctx, c.Email, c.Password, c.Premium)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

type listCmd struct{}

func (c *listCmd) Run(ctx context.Context, pool *identity.Pool) error {
	accounts, err := pool.List(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		state := "active"
		if !a.IsActive {
			state = "inactive"
		}
		tier := ""
		if a.IsPremium {
			tier = " premium"
		}
		fmt.Printf("%s  %-30s %s%s  requests_today=%d  last_used=%s\n",
			a.ID, a.Email, state, tier, a.RequestsToday, orDash(a.LastUsedAt))
	}
	return nil
}

type deactivateCmd struct {
	ID string `arg:"" help:"Account id to deactivate."`
}

func (c *deactivateCmd) Run(ctx context.Context, pool *identity.Pool) error {
	return pool.Deactivate(ctx, c.ID)
}

type statsCmd struct{}

func (c *statsCmd) Run(ctx context.Context, pool *identity.Pool) error {
	st, err := pool.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("active=%d available=%d rate_limited=%d cooling_down=%d\n",
		st.TotalActive, st.Available, st.RateLimited, st.CoolingDown)
	return nil
}

var cli struct {
	Add        addCmd        `cmd:"" help:"Add a scraping account to the pool."`
	List       listCmd       `cmd:"" help:"List accounts with masked emails."`
	Deactivate deactivateCmd `cmd:"" help:"Soft-delete an account."`
	Stats      statsCmd      `cmd:"" help:"Show pool capacity."`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("accountctl"),
		kong.Description("Manage the scraping account pool."))

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbpool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	kctx.FatalIfErrorf(err)
	defer dbpool.Close()

	cipher, err := secrets.NewCipher(cfg.EncryptionKey)
	kctx.FatalIfErrorf(err)

	pool := identity.NewPool(identity.NewPGStore(dbpool), cipher,
		identity.Limits{DailyCap: cfg.DailyRequestCap, Cooldown: cfg.Cooldown},
		zerolog.New(os.Stderr).Level(zerolog.WarnLevel))

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(pool)
	kctx.FatalIfErrorf(kctx.Run())
}
