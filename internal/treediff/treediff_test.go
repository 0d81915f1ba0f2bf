package treediff

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrz1836/go-cligolden/internal/ignore"
	"github.com/mrz1836/go-cligolden/internal/normalize"
	"github.com/mrz1836/go-cligolden/internal/testutil"
	"github.com/mrz1836/go-cligolden/internal/transform"
)

func trees(t *testing.T, actual, expected map[string]string) (string, string) {
	t.Helper()
	root := t.TempDir()
	a, x := filepath.Join(root, "actual"), filepath.Join(root, "expected")
	testutil.WriteTree(t, a, actual)
	testutil.WriteTree(t, x, expected)
	return a, x
}

func kinds(r *Result) map[string]Kind {
	out := map[string]Kind{}
	for _, e := range r.Entries {
		out[e.Path] = e.Kind
	}
	return out
}

func writeIndex(t *testing.T, path string, names ...string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	require.NoError(t, db.Exec("CREATE TABLE searchIndex(id INTEGER PRIMARY KEY, name TEXT, type TEXT, path TEXT)").Error)
	for _, name := range names {
		require.NoError(t, db.Exec("INSERT INTO searchIndex(name, type, path) VALUES (?, 'Class', ?)", name, "Classes/"+name+".html").Error)
	}
}

func TestCompareIdenticalTrees(t *testing.T) {
	files := map[string]string{"README.md": "# x\n", "docs/index.html": "<html/>\n"}
	a, x := trees(t, files, files)

	result, err := NewEngine(Options{}).Compare(context.Background(), a, x)
	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Empty(t, result.Failures())
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 2, result.Counts()[Match])
}

func TestCompareContentMismatch(t *testing.T) {
	a, x := trees(t, map[string]string{"output.txt": "goodbye\n"}, map[string]string{"output.txt": "hello\n"})

	result, err := NewEngine(Options{}).Compare(context.Background(), a, x)
	require.NoError(t, err)
	require.False(t, result.Passed())

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "output.txt", failures[0].Path)
	assert.Equal(t, ContentMismatch, failures[0].Kind)
	assert.False(t, failures[0].Binary)
	assert.Contains(t, failures[0].Diff, "--- expected/output.txt")
	assert.Contains(t, failures[0].Diff, "+++ actual/output.txt")
	assert.Contains(t, failures[0].Diff, "-hello")
	assert.Contains(t, failures[0].Diff, "+goodbye")
}

func TestCompareMissingAndOrdering(t *testing.T) {
	a, x := trees(t,
		map[string]string{"b.txt": "b", "extra/z.txt": "z", "same.txt": "s"},
		map[string]string{"a.txt": "a", "b.txt": "b", "same.txt": "s"},
	)

	result, err := NewEngine(Options{}).Compare(context.Background(), a, x)
	require.NoError(t, err)

	paths := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "extra/z.txt", "same.txt"}, paths)
	assert.Equal(t, map[string]Kind{
		"a.txt":       MissingInActual,
		"b.txt":       Match,
		"extra/z.txt": MissingInExpected,
		"same.txt":    Match,
	}, kinds(result))
}

func TestCompareIgnoreIsSymmetric(t *testing.T) {
	a, x := trees(t,
		map[string]string{"docs/index.html": "x", ".DS_Store": "junk", "build.log": "log"},
		map[string]string{"docs/index.html": "x", "docs/.DS_Store": "other junk", "notes.md": "n"},
	)

	dsStore, err := ignore.NewGlob(".DS_Store")
	require.NoError(t, err)
	whitelist, err := ignore.NewRegex(`^(?!(docs/|execution_output.txt))`)
	require.NoError(t, err)

	engine := NewEngine(Options{Ignore: ignore.New(dsStore, whitelist)})
	result, err := engine.Compare(context.Background(), a, x)
	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Equal(t, map[string]Kind{"docs/index.html": Match}, kinds(result))
}

func TestCompareNormalizesText(t *testing.T) {
	a, x := trees(t,
		map[string]string{"out.txt": "root: /home/ci/work\r\nversion 2.0.1\r\n"},
		map[string]string{"out.txt": "root: ROOT\nversion VERSION\n"},
	)

	version, err := normalize.NewSemver(normalize.AnyVersion, "VERSION")
	require.NoError(t, err)
	n := normalize.New(normalize.NewLiteral("/home/ci/work", "ROOT"), version)

	result, err := NewEngine(Options{Normalizer: n}).Compare(context.Background(), a, x)
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestCompareBinary(t *testing.T) {
	a, x := trees(t,
		map[string]string{"logo.png": "\x89PNG\x00\x01", "data.bin": "\x00\x01\x02"},
		map[string]string{"logo.png": "\x89PNG\x00\x02", "data.bin": "\x00\x01\x02"},
	)

	result, err := NewEngine(Options{}).Compare(context.Background(), a, x)
	require.NoError(t, err)

	failures := result.Failures()
	require.Len(t, failures, 1)
	f := failures[0]
	assert.Equal(t, "logo.png", f.Path)
	assert.True(t, f.Binary)
	assert.Empty(t, f.Diff)
	assert.Equal(t, int64(6), f.ActualSize)
	assert.Equal(t, int64(6), f.ExpectedSize)
	assert.Len(t, f.ActualSum, 64)
	assert.NotEqual(t, f.ActualSum, f.ExpectedSum)
}

func TestCompareSymlinks(t *testing.T) {
	a, x := trees(t, map[string]string{"target.txt": "t"}, map[string]string{"target.txt": "t"})
	require.NoError(t, os.Symlink("target.txt", filepath.Join(a, "link")))
	require.NoError(t, os.Symlink("other.txt", filepath.Join(x, "link")))

	result, err := NewEngine(Options{}).Compare(context.Background(), a, x)
	require.NoError(t, err)

	entry, ok := result.Entry("link")
	require.True(t, ok)
	assert.Equal(t, ContentMismatch, entry.Kind)
	assert.False(t, entry.Binary)
	assert.Equal(t, "-> target.txt", entry.ActualText)
	assert.Equal(t, "-> other.txt", entry.ExpectedText)
}

func TestCompareMissingRoots(t *testing.T) {
	root := t.TempDir()
	expected := filepath.Join(root, "expected")
	testutil.WriteTree(t, expected, map[string]string{"a.txt": "a"})

	result, err := NewEngine(Options{}).Compare(context.Background(), filepath.Join(root, "gone"), expected)
	require.NoError(t, err)
	assert.Equal(t, map[string]Kind{"a.txt": MissingInActual}, kinds(result))

	_, err = NewEngine(Options{}).Compare(context.Background(), expected, filepath.Join(root, "no-expected"))
	require.Error(t, err)
}

func dsidxEngine(t *testing.T) *Engine {
	t.Helper()
	rule, err := transform.NewRule("**/*.dsidx", transform.NewSQLiteCSVTransformer("", ""))
	require.NoError(t, err)
	dsidx, err := ignore.NewGlob("**/*.dsidx")
	require.NoError(t, err)
	return NewEngine(Options{
		Ignore:   ignore.New(dsidx),
		Pipeline: transform.NewPipeline(nil, nil, rule),
	})
}

func TestCompareTransformedIndex(t *testing.T) {
	root := t.TempDir()
	actual := filepath.Join(root, "actual", "docsets", "A.docset")
	expected := filepath.Join(root, "expected", "docsets", "A.docset")
	require.NoError(t, os.MkdirAll(actual, 0o750))
	require.NoError(t, os.MkdirAll(expected, 0o750))

	writeIndex(t, filepath.Join(actual, "docSet.dsidx"), "Foo", "Bar")
	writeIndex(t, filepath.Join(expected, "docSet.dsidx"), "Foo")
	require.NoError(t, os.WriteFile(filepath.Join(expected, "docSet.dsidx.csv"),
		[]byte("id,name,type,path\n1,Foo,Class,Classes/Foo.html\n"), 0o600))

	engine := dsidxEngine(t)
	result, err := engine.Compare(context.Background(), filepath.Join(root, "actual"), filepath.Join(root, "expected"))
	require.NoError(t, err)

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "docsets/A.docset/docSet.dsidx.csv", failures[0].Path)
	assert.Equal(t, ContentMismatch, failures[0].Kind)
	assert.Contains(t, failures[0].Diff, "+2,Bar,Class,Classes/Bar.html")
	_, rawReported := result.Entry("docsets/A.docset/docSet.dsidx")
	assert.False(t, rawReported)

	// the expected tree is never written to
	assert.NoFileExists(t, filepath.Join(expected, "docSet.dsidx.csv.csv"))
	entries, err := os.ReadDir(expected)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// comparing again over the already transformed tree gives the same outcome
	again, err := engine.Compare(context.Background(), filepath.Join(root, "actual"), filepath.Join(root, "expected"))
	require.NoError(t, err)
	assert.Equal(t, kinds(result), kinds(again))
	assert.Equal(t, result.Failures()[0].Diff, again.Failures()[0].Diff)
}

func TestCompareTransformFailureBecomesMismatch(t *testing.T) {
	junk := strings.Repeat("not a database ", 20)

	t.Run("expected artifact exists", func(t *testing.T) {
		a, x := trees(t,
			map[string]string{"index.dsidx": junk},
			map[string]string{"index.dsidx": junk, "index.dsidx.csv": "id,name\n"},
		)

		result, err := dsidxEngine(t).Compare(context.Background(), a, x)
		require.NoError(t, err)

		failures := result.Failures()
		require.Len(t, failures, 1)
		assert.Equal(t, "index.dsidx.csv", failures[0].Path)
		assert.Equal(t, ContentMismatch, failures[0].Kind)
		var te *transform.Error
		require.ErrorAs(t, failures[0].Err, &te)
		assert.Equal(t, transform.CategoryQuery, te.Category)
	})

	t.Run("no artifact on either side", func(t *testing.T) {
		a, x := trees(t,
			map[string]string{"index.dsidx": junk, "z.txt": "z"},
			map[string]string{"a.txt": "a", "z.txt": "z"},
		)

		result, err := dsidxEngine(t).Compare(context.Background(), a, x)
		require.NoError(t, err)

		paths := make([]string, 0, len(result.Entries))
		for _, e := range result.Entries {
			paths = append(paths, e.Path)
		}
		assert.Equal(t, []string{"a.txt", "index.dsidx.csv", "z.txt"}, paths)
		entry, ok := result.Entry("index.dsidx.csv")
		require.True(t, ok)
		assert.Equal(t, ContentMismatch, entry.Kind)
		require.Error(t, entry.Err)
	})
}

func TestEngineWithCopies(t *testing.T) {
	base := NewEngine(Options{})
	glob, err := ignore.NewGlob("*.log")
	require.NoError(t, err)

	scoped := base.WithIgnore(ignore.New(glob)).WithNormalizer(normalize.New()).WithVariables(map[string]string{"a": "b"})
	assert.Nil(t, base.Ignore())
	assert.NotNil(t, scoped.Ignore())
	assert.NotNil(t, scoped.Normalizer())
	assert.Nil(t, base.Normalizer())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "match", Match.String())
	assert.Equal(t, "missing-in-actual", MissingInActual.String())
	assert.Equal(t, "missing-in-expected", MissingInExpected.String())
	assert.Equal(t, "content-mismatch", ContentMismatch.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary("index.dsidx", []byte("anything")))
	assert.True(t, IsBinary("blob", []byte{'a', 0, 'b'}))
	assert.True(t, IsBinary("ctrl", []byte{1, 2, 3, 4, 5, 'a'}))
	assert.False(t, IsBinary("empty", nil))
	assert.False(t, IsBinary("readme.md", []byte("héllo wörld\n\ttabbed\r\n")))
	assert.False(t, IsBinary("latin1.txt", []byte{'c', 'a', 'f', 0xe9, '\n'}))
	assert.False(t, IsBinary("colored.log", []byte("\x1b[31mred\x1b[0m\n")))
	assert.False(t, IsBinary("few-ctrl", []byte{1, 'a', 'b', 'c'}))
}
