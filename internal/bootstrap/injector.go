//go:build wireinject

package bootstrap

import (
	"github.com/google/wire"
)

// InitializeApp is the Wire injector for Initialize's dependency
// graph. It is never compiled into the normal build (build tag
// wireinject); running `wire` in this package would generate an
// InitializeApp implementation in wire_gen.go from this declaration.
// Initialize in wire.go is the hand-written graph actually used,
// since this build never invokes the wire binary.
func InitializeApp(configPath, workspaceDir string) (*App, error) {
	wire.Build(
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
