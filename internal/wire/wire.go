//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/bug-warden/internal/app"
)

// InitializeRuntime wires the components used by one-shot CLI commands.
func InitializeRuntime(ctx context.Context, configFile string) (*app.Runtime, func(), error) {
	wire.Build(RuntimeSet)
	return &app.Runtime{}, nil, nil
}

// InitializeApp wires the server application.
func InitializeApp(ctx context.Context, configFile string) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}
