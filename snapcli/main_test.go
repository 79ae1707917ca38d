package snapcli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goaux/contextvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumakei/modelsnap-go/schema"
	"github.com/takumakei/modelsnap-go/snapshot"
)

type Account struct {
	Number  string   `json:"number"`
	Holders []string `json:"holders"`
}

func (Account) NestedTypes() []schema.EnumType {
	return []schema.EnumType{{Name: "Relation", Members: []string{"OWNER", "BANK"}}}
}

type Branch struct {
	Code string `json:"code"`
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	config := Config{
		Use:       "modelsnap",
		Version:   "test",
		Models:    []reflect.Type{reflect.TypeFor[Account](), reflect.TypeFor[Branch]()},
		Formatter: []string{"cat"},
	}
	cmd := newCommand(&config)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(contextvalue.With(context.Background(), &config))
	return out.String(), err
}

func TestCreateVerify(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")

	out, err := execute(t, "", "create", "--dir", dir, "--seed", "9")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "created "))

	out, err = execute(t, "", "verify", "-d", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+schema.TypeName(reflect.TypeFor[Account]()))
	assert.Contains(t, out, "ok   "+schema.TypeName(reflect.TypeFor[Branch]()))
}

func TestVerifyDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "", "create", "--dir", dir)
	require.NoError(t, err)

	m := snapshot.For[Account](snapshot.WithFolder(dir))
	require.NoError(t, os.WriteFile(m.RelationNamesFile(), []byte(`["OWNER","BANK","BRANCH"]`), 0o644))

	out, err := execute(t, "", "verify", "--dir", dir)
	assert.EqualError(t, err, "1 of 2 snapshots do not match")
	assert.Contains(t, out, "FAIL "+m.TypeName())
	assert.Contains(t, out, "relation names in snapshot and not in model: [BRANCH]")
}

func TestSeedIsReproducible(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	_, err := execute(t, "", "create", "--dir", a, "--seed", "5")
	require.NoError(t, err)
	_, err = execute(t, "", "create", "--dir", b, "--seed", "5")
	require.NoError(t, err)

	name := schema.TypeName(reflect.TypeFor[Account]()) + ".json"
	x, err := os.ReadFile(filepath.Join(a, name))
	require.NoError(t, err)
	y, err := os.ReadFile(filepath.Join(b, name))
	require.NoError(t, err)
	assert.Equal(t, string(x), string(y))
}

func TestOnly(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "# selected\nBranch\n\n", "create", "--dir", dir, "--only", "-")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "created "))
	assert.False(t, snapshot.For[Account](snapshot.WithFolder(dir)).Exists())

	_, err = execute(t, "Nope\n", "verify", "--dir", dir, "--only", "-")
	assert.EqualError(t, err, "unknown model: Nope")
}

func TestSettingsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "from-settings")
	settings := filepath.Join(t.TempDir(), "modelsnap.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("dir: "+dir+"\nseed: 3\nminSize: 2\nmaxSize: 2\n"), 0o644))

	_, err := execute(t, "", "create", "--config", settings)
	require.NoError(t, err)

	m := snapshot.For[Account](snapshot.WithFolder(dir))
	require.True(t, m.Exists())
	data, err := os.ReadFile(m.SnapshotFile())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n    \""), "holders has two elements")
}

func TestFormatAndClean(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.json")
	require.NoError(t, os.WriteFile(stale, []byte(`{}`), 0o644))

	_, err := execute(t, "", "create", "--dir", dir, "--format", "--clean")
	require.NoError(t, err)
	assert.NoFileExists(t, stale)

	_, err = execute(t, "", "clean", "--dir", dir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestList(t *testing.T) {
	out, err := execute(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "  number: primitive\n")
	assert.Contains(t, out, "  holders: sequence\n")
	assert.Contains(t, out, "  relations: OWNER, BANK\n")
}
