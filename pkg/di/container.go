// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/riskmap/pkg/api"     //nolint:depguard
	"github.com/ssargent/riskmap/pkg/storage" //nolint:depguard
)

// ArchiveOpener opens the map archive for a data directory.
type ArchiveOpener func(dir string) (*storage.Archive, error)

// Container holds all the dependencies for the application
type Container struct {
	archiveOpener ArchiveOpener
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		archiveOpener: func(dir string) (*storage.Archive, error) {
			return storage.Open(dir)
		},
		serverFactory: api.NewServerFactory(),
	}
}

// OpenArchive opens the archive in dir
func (c *Container) OpenArchive(dir string) (*storage.Archive, error) {
	return c.archiveOpener(dir)
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetArchiveOpener allows overriding how archives are opened (for testing)
func (c *Container) SetArchiveOpener(opener ArchiveOpener) {
	c.archiveOpener = opener
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
