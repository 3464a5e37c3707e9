package di

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/riskmap/pkg/api"
	"github.com/ssargent/riskmap/pkg/storage"
)

type stubStarter struct {
	config api.ServerConfig
}

func (s *stubStarter) StartServer(_ context.Context, _ api.Archive, config api.ServerConfig) error {
	s.config = config
	return nil
}

type stubFactory struct {
	starter *stubStarter
}

func (f stubFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestContainer_Defaults(t *testing.T) {
	c := NewContainer()
	assert.NotNil(t, c.GetServerFactory())

	archive, err := c.OpenArchive(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, archive.Close())
}

func TestContainer_Overrides(t *testing.T) {
	c := NewContainer()

	errBoom := errors.New("boom")
	c.SetArchiveOpener(func(string) (*storage.Archive, error) { return nil, errBoom })
	_, err := c.OpenArchive("ignored")
	assert.ErrorIs(t, err, errBoom)

	starter := &stubStarter{}
	c.SetServerFactory(stubFactory{starter: starter})
	err = c.GetServerFactory().CreateServerStarter().StartServer(context.Background(), nil, api.ServerConfig{Port: 9999})
	require.NoError(t, err)
	assert.Equal(t, 9999, starter.config.Port)
}
