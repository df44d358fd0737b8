package tree_test

import (
	"context"

	"github.com/stretchr/testify/suite"

	"rotacultural/internal/points/models"
	"rotacultural/internal/points/store/tree"
	"rotacultural/pkg/platform/sentinel"
)

// Tree is the contract every adapter is exercised against.
type Tree interface {
	Get(ctx context.Context, path string) (models.Record, error)
	Children(ctx context.Context, path string) (map[string]models.Record, error)
	Set(ctx context.Context, path string, rec models.Record) error
	Delete(ctx context.Context, path string) error
	Push(ctx context.Context, parent string, rec models.Record) (string, error)
}

// treeContract holds behavior shared by all adapters. Embedding suites set
// tree in SetupTest to a fresh, empty namespace.
type treeContract struct {
	suite.Suite
	tree Tree
}

func museum() models.Record {
	return models.Record{
		"name":      "Museu X",
		"category":  "Museum",
		"latitude":  "-22.9",
		"longitude": "-43.2",
		"createdBy": "u1",
	}
}

func (s *treeContract) TestSetThenGet() {
	ctx := context.Background()
	s.Require().NoError(s.tree.Set(ctx, "points/p1", museum()))

	got, err := s.tree.Get(ctx, "points/p1")
	s.Require().NoError(err)
	s.Equal(museum(), got)
}

func (s *treeContract) TestGetMissingReturnsErrNotFound() {
	_, err := s.tree.Get(context.Background(), "points/nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *treeContract) TestSetReplacesWholeRecord() {
	ctx := context.Background()
	s.Require().NoError(s.tree.Set(ctx, "points/p1", museum()))
	s.Require().NoError(s.tree.Set(ctx, "points/p1", models.Record{"name": "Only"}))

	got, err := s.tree.Get(ctx, "points/p1")
	s.Require().NoError(err)
	s.Equal(models.Record{"name": "Only"}, got)
}

func (s *treeContract) TestChildren() {
	ctx := context.Background()

	s.Run("empty namespace", func() {
		children, err := s.tree.Children(ctx, "points")
		s.Require().NoError(err)
		s.Empty(children)
	})

	s.Run("lists direct children only", func() {
		s.Require().NoError(s.tree.Set(ctx, "points/a", museum()))
		s.Require().NoError(s.tree.Set(ctx, "points/b", models.Record{"name": "B"}))
		s.Require().NoError(s.tree.Set(ctx, "users/u1", models.Record{"email": "x"}))

		children, err := s.tree.Children(ctx, "points")
		s.Require().NoError(err)
		s.Len(children, 2)
		s.Equal("B", children["b"]["name"])
		s.Equal("Museu X", children["a"]["name"])
	})
}

func (s *treeContract) TestDeleteIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.tree.Set(ctx, "points/p1", museum()))

	s.Require().NoError(s.tree.Delete(ctx, "points/p1"))
	s.Require().NoError(s.tree.Delete(ctx, "points/p1"))
	s.Require().NoError(s.tree.Delete(ctx, "points/never-existed"))

	_, err := s.tree.Get(ctx, "points/p1")
	s.ErrorIs(err, sentinel.ErrNotFound)
	children, err := s.tree.Children(ctx, "points")
	s.Require().NoError(err)
	s.Empty(children)
}

func (s *treeContract) TestDeleteNamespaceRemovesSubtree() {
	ctx := context.Background()
	s.Require().NoError(s.tree.Set(ctx, "points/a", museum()))
	s.Require().NoError(s.tree.Set(ctx, "points/b", museum()))

	s.Require().NoError(s.tree.Delete(ctx, "points"))

	children, err := s.tree.Children(ctx, "points")
	s.Require().NoError(err)
	s.Empty(children)
}

func (s *treeContract) TestEmptyRecordDeletes() {
	ctx := context.Background()
	s.Require().NoError(s.tree.Set(ctx, "points/p1", museum()))
	s.Require().NoError(s.tree.Set(ctx, "points/p1", models.Record{}))

	_, err := s.tree.Get(ctx, "points/p1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *treeContract) TestPushGeneratesDistinctKeys() {
	ctx := context.Background()
	k1, err := s.tree.Push(ctx, "points", museum())
	s.Require().NoError(err)
	k2, err := s.tree.Push(ctx, "points", museum())
	s.Require().NoError(err)
	s.NotEqual(k1, k2)

	got, err := s.tree.Get(ctx, tree.Join("points", k1))
	s.Require().NoError(err)
	s.Equal(museum(), got)
}

func (s *treeContract) TestInvalidPaths() {
	ctx := context.Background()
	_, err := s.tree.Get(ctx, "")
	s.ErrorIs(err, sentinel.ErrInvalidPath)
	s.ErrorIs(s.tree.Set(ctx, "points//x", museum()), sentinel.ErrInvalidPath)
	s.ErrorIs(s.tree.Set(ctx, "points", museum()), sentinel.ErrInvalidPath)
}
