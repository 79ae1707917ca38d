package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/goaux/stacktrace/v2"
	"github.com/takumakei/modelsnap-go/schema"
	"go.uber.org/zap"
)

// MatchesSnapshot reports whether the snapshot file still decodes into the
// model type with no null property. Failures are logged.
func (m *Manager) MatchesSnapshot() bool {
	r := m.CheckSnapshot()
	m.LogReport(r)
	return r.OK()
}

// MatchesRelationNames reports whether the relation names of the model
// type equal the ones stored with the snapshot. Failures are logged.
func (m *Manager) MatchesRelationNames() bool {
	r := m.CheckRelationNames()
	m.LogReport(r)
	return r.OK()
}

// CheckSnapshot decodes the snapshot file into the model type. Unknown
// fields fail the decoding. A property is null when the file holds null
// for it, when the file lacks it, or when the decoded field is nil.
func (m *Manager) CheckSnapshot() Report {
	name := filepath.Base(m.snapshotFile)
	r := Report{Model: m.typeName, File: m.snapshotFile}

	data, err := stacktrace.Trace2(os.ReadFile(m.snapshotFile))
	if err != nil {
		r.Err = fmt.Errorf("read snapshot json file (%s): %w", name, err)
		return r
	}
	obj := reflect.New(m.modelType)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj.Interface()); err != nil {
		r.Err = fmt.Errorf("read snapshot json file (%s): %w", name, err)
		return r
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.Err = fmt.Errorf("read snapshot json file (%s): %w", name, err)
		return r
	}

	props, err := schema.Properties(obj.Interface())
	if err != nil {
		r.Err = fmt.Errorf("read property values: %w", err)
		return r
	}
	for _, p := range props {
		v, ok := raw[p.Name]
		if p.Null || !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			r.Mismatches = append(r.Mismatches, Mismatch{Kind: NullProperty, Name: p.Name})
		}
	}
	return r
}

// CheckRelationNames compares the relation names of the model type with
// the stored ones as sets, in both directions.
func (m *Manager) CheckRelationNames() Report {
	r := Report{Model: m.typeName, File: m.relationNamesFile}

	var stored []string
	data, err := stacktrace.Trace2(os.ReadFile(m.relationNamesFile))
	if err == nil {
		err = stacktrace.Trace(json.Unmarshal(data, &stored))
	}
	if err != nil {
		r.Err = fmt.Errorf("read relation names json file (%s): %w", filepath.Base(m.relationNamesFile), err)
		return r
	}

	live := schema.RelationNames(m.modelType)
	for _, n := range difference(live, stored) {
		r.Mismatches = append(r.Mismatches, Mismatch{Kind: OnlyInModel, Name: n})
	}
	for _, n := range difference(stored, live) {
		r.Mismatches = append(r.Mismatches, Mismatch{Kind: OnlyInSnapshot, Name: n})
	}
	return r
}

// difference returns the sorted names of a that are not in b.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var diff []string
	for _, s := range a {
		if !in[s] {
			in[s] = true
			diff = append(diff, s)
		}
	}
	slices.Sort(diff)
	return diff
}

// LogReport logs r at error level unless it is OK.
func (m *Manager) LogReport(r Report) {
	if r.OK() {
		return
	}
	fields := []zap.Field{zap.String("file", filepath.Base(r.File))}
	if r.Err != nil {
		m.log.Error("test failed", append(fields, zap.Error(r.Err))...)
		return
	}
	for _, k := range []MismatchKind{NullProperty, OnlyInModel, OnlyInSnapshot} {
		if names := r.Names(k); len(names) > 0 {
			fields = append(fields, zap.Strings(k.key(), names))
		}
	}
	m.log.Error("test failed", fields...)
}
