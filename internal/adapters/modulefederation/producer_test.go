package modulefederation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"go.dynplug.dev/dp/internal/core/ports"
)

func TestNewProducer_DefaultsToYarnBuild(t *testing.T) {
	p := NewProducer(nil)
	require.Equal(t, []string{"yarn", "build"}, p.Command)
	require.Equal(t, "module-federation", p.Name())
}

func TestProducer_Produce_RunsInPluginDir(t *testing.T) {
	dir := t.TempDir()
	p := NewProducer([]string{"sh", "-c", "pwd > cwd.txt"})

	err := p.Produce(context.Background(), ports.AssetProducerRequest{PluginDir: dir})
	require.NoError(t, err)
	require.FileExists(t, dir+"/cwd.txt")
}

func TestProducer_Produce_NonZeroExitReturnsError(t *testing.T) {
	p := NewProducer([]string{"sh", "-c", "exit 1"})
	err := p.Produce(context.Background(), ports.AssetProducerRequest{PluginDir: t.TempDir()})
	require.Error(t, err)
}
