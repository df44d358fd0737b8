//go:build integration

package tree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rotacultural/internal/points/store/tree"
	"rotacultural/pkg/testutil/containers"
)

type PostgresTreeSuite struct {
	treeContract
	postgres *containers.PostgresContainer
}

func TestPostgresTreeSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTreeSuite))
}

func (s *PostgresTreeSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(tree.NewPostgresTree(s.postgres.Pool).EnsureSchema(context.Background()))
}

func (s *PostgresTreeSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "tree_records"))
	s.tree = tree.NewPostgresTree(s.postgres.Pool)
}

func (s *PostgresTreeSuite) TestEnsureSchemaIsRepeatable() {
	pt := tree.NewPostgresTree(s.postgres.Pool)
	s.NoError(pt.EnsureSchema(context.Background()))
	s.NoError(pt.Health(context.Background()))
}

func (s *PostgresTreeSuite) TestUnderscoreInPathIsLiteral() {
	ctx := context.Background()
	s.Require().NoError(s.tree.Set(ctx, "a_b/x", museum()))
	s.Require().NoError(s.tree.Set(ctx, "aXb/y/z", museum()))

	s.Require().NoError(s.tree.Delete(ctx, "a_b"))

	_, err := s.tree.Get(ctx, "aXb/y/z")
	s.NoError(err)
}
