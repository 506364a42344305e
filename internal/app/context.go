// Package app wires the workspace together: database, migrations, config
// and engine, in the order every entrypoint needs them.
package app

import (
	"fmt"

	"caseline/internal/config"
	"caseline/internal/db"
	"caseline/internal/engine"
	"caseline/internal/migrate"
)

// Context is an opened workspace. Close it when done.
type Context struct {
	Workspace string
	Config    *config.Config
	Engine    engine.Engine
}

// Open ensures the workspace exists, opens the database, applies pending
// migrations and loads the config file (defaults when absent).
func Open(workspace string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workspace: workspace,
		Config:    cfg,
		Engine:    engine.New(conn, cfg),
	}, nil
}

func (c *Context) Close() error {
	return c.Engine.DB.Close()
}
