// Package snapshottest runs model snapshots as Go tests.
//
// A model library keeps its snapshots under testdata and runs
//
//	func TestSnapshots(t *testing.T) {
//		snapshottest.Run(t, snapshot.DefaultFolder, model.Types...)
//	}
//
// Missing snapshots are created on the first run. Pass -modelsnap.update to
// regenerate all of them.
package snapshottest

import (
	"flag"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumakei/modelsnap-go/snapshot"
)

// Update regenerates every snapshot instead of only the missing ones.
var Update = flag.Bool("modelsnap.update", false, "regenerate model snapshots")

// Assert creates the snapshot of m when it is missing and then requires
// that it matches the model type.
func Assert(t testing.TB, m *snapshot.Manager) {
	t.Helper()
	if *Update || !m.Exists() {
		require.NoError(t, m.Create(), "create snapshot of %s", m.TypeName())
	}
	r := m.CheckSnapshot()
	assert.True(t, r.OK(), "%s", r)
	r = m.CheckRelationNames()
	assert.True(t, r.OK(), "%s", r)
}

// Run asserts the snapshot of every type in folder, one subtest per type.
func Run(t *testing.T, folder string, types ...reflect.Type) {
	t.Helper()
	for _, typ := range types {
		m := snapshot.New(typ, snapshot.WithFolder(folder))
		t.Run(m.TypeName(), func(t *testing.T) {
			Assert(t, m)
		})
	}
}
