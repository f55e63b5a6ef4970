// Package testsupport adapts
// Chris-Alexander-Pop-microservices-library/pkg/test's Suite helper for
// this module's tests, dropping the redis/postgres/testcontainers helpers
// that package also carries — nothing in this engine touches those
// backends, so adapting just the base Suite avoids pulling in an unused
// dependency tree.
package testsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// Suite wraps testify's suite with a context every test can use.
type Suite struct {
	suite.Suite
	Ctx context.Context
}

// SetupTest runs before each test method.
func (s *Suite) SetupTest() {
	s.Ctx = context.Background()
}

// NewSuite creates a new test suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Assert exposes the embedded assertions explicitly.
func (s *Suite) Assert() *assert.Assertions {
	return s.Assertions
}

// Run runs s as a standard Test* function.
func Run(t *testing.T, s suite.TestingSuite) {
	suite.Run(t, s)
}
