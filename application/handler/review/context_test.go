package review_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	handler "github.com/codeowl/codeowl/application/handler/review"
	"github.com/codeowl/codeowl/domain/search"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/internal/testdb"
)

const sampleDiff = `diff --git a/src/auth.go b/src/auth.go
index 111..222 100644
--- a/src/auth.go
+++ b/src/auth.go
@@ -1,3 +1,4 @@
+func Login() {}
diff --git a/src/db.go b/src/db.go
--- a/src/db.go
+++ b/src/db.go
@@ -5,2 +5,3 @@
+var pool *DB
`

func TestChangedFiles(t *testing.T) {
	paths := handler.ChangedFiles(sampleDiff)
	require.Equal(t, []string{"src/auth.go", "src/db.go"}, paths)
}

func TestChangedFiles_NewFile(t *testing.T) {
	diff := "diff --git a/added.go b/added.go\n--- /dev/null\n+++ b/added.go\n"
	paths := handler.ChangedFiles(diff)
	require.Equal(t, []string{"added.go"}, paths)
}

func TestChangedFiles_Empty(t *testing.T) {
	require.Empty(t, handler.ChangedFiles("not a diff at all"))
}

func seedVectors(t *testing.T, store persistence.VectorStore, repositoryID int64, byPath map[string]string) {
	t.Helper()
	embedder := &fakeEmbedder{}
	var vectors []search.Vector
	for path, content := range byPath {
		embedding, err := embedder.Embed(context.Background(), content)
		require.NoError(t, err)
		vectors = append(vectors, search.NewVector(
			path,
			embedding,
			search.Metadata{RepositoryID: repositoryID, FilePath: path, TotalChunks: 1, Content: content},
		))
	}
	require.NoError(t, store.UpsertBatch(context.Background(), repositoryID, vectors))
}

func TestContextRetriever_PrefersChangedFiles(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewVectorStore(db, nil)
	seedVectors(t, store, 1, map[string]string{
		"src/auth.go":   "func Login() error { return nil }",
		"src/db.go":     "var pool *DB",
		"docs/notes.md": "unrelated notes",
	})

	retriever := handler.NewContextRetriever(store, &fakeEmbedder{}, nil)
	got := retriever.Retrieve(context.Background(), 1, sampleDiff)

	require.Contains(t, got, "func Login()")
	require.Contains(t, got, "var pool *DB")
	require.NotContains(t, got, "unrelated notes")
}

func TestContextRetriever_FallsBackToSemanticSearch(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewVectorStore(db, nil)
	seedVectors(t, store, 1, map[string]string{
		"docs/notes.md": "architecture overview",
	})

	// The changed files are not indexed, so the unfiltered search runs.
	retriever := handler.NewContextRetriever(store, &fakeEmbedder{}, nil)
	got := retriever.Retrieve(context.Background(), 1, sampleDiff)

	require.Contains(t, got, "architecture overview")
}

func TestContextRetriever_EmptyIndex(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewVectorStore(db, nil)

	retriever := handler.NewContextRetriever(store, &fakeEmbedder{}, nil)
	require.Empty(t, retriever.Retrieve(context.Background(), 1, sampleDiff))
}

func TestContextRetriever_EmbedderFailureDegrades(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewVectorStore(db, nil)

	retriever := handler.NewContextRetriever(store, &fakeEmbedder{fail: true}, nil)
	require.Empty(t, retriever.Retrieve(context.Background(), 1, sampleDiff))
}
