package cli

import (
	"fmt"
	"os"

	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/keyring"
	"github.com/julianstephens/streaks/internal/storage"
)

// InitCmd writes the config file, stores secrets in the OS keyring and seeds
// empty collections so later commands start from a known state.
type InitCmd struct {
	KeyringDSN    string `help:"Postgres connection string to store in the OS keyring." name:"keyring-dsn"`
	RedisPassword string `help:"Redis password to store in the OS keyring."`
	Force         bool   `help:"Overwrite an existing config file."`
}

func (c *InitCmd) Run(ctx *Context) error {
	if ctx.Config.Backend == constants.BackendMemory {
		return fmt.Errorf("the memory backend cannot be initialized; it does not persist")
	}

	if c.KeyringDSN != "" {
		if err := keyring.SetConnectionString(c.KeyringDSN); err != nil {
			return err
		}
		ctx.Println("✓ Connection string stored in the OS keyring")
	}
	if c.RedisPassword != "" {
		if err := keyring.Set(keyring.RedisPasswordEntry, c.RedisPassword); err != nil {
			return err
		}
		ctx.Println("✓ Redis password stored in the OS keyring")
	}

	// Secrets live in the keyring, never in the YAML file.
	saved := *ctx.Config
	saved.Redis.Password = ""
	if err := writeConfig(ctx.ConfigPath, &saved, c.Force); err != nil {
		return err
	}

	if err := ctx.LoadForWrite(); err != nil {
		return err
	}
	if err := seed(ctx, ctx.Store.Habits()); err != nil {
		return err
	}
	if err := seed(ctx, ctx.Store.Tasks()); err != nil {
		return err
	}

	ctx.Printf("Initialized %s storage at: %s\n", ctx.Config.Backend, ctx.Store.Location())
	return nil
}

// writeConfig leaves an existing file alone unless force is set.
func writeConfig(path string, cfg *config.Config, force bool) error {
	if path == "" {
		path = constants.DefaultConfigFile
	}
	path = config.ExpandHome(path)
	if _, err := os.Stat(path); err == nil && !force {
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	return cfg.Save(path)
}

// seed writes an empty list for a namespace that has never been saved.
func seed[T storage.Entity](ctx *Context, c *storage.Collection[T]) error {
	_, found, err := ctx.Store.ReadRaw(ctx.Ctx, c.Namespace())
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return c.SaveAll(ctx.Ctx, []T{})
}
