// Package snapshot creates and verifies JSON snapshots of model types.
//
// A snapshot is a pair of files named after the fully qualified name of the
// model type: "<type>.json" holds a randomly populated instance and
// "<type>-relation-names.json" holds the relation names of the type at the
// time the snapshot was taken. Verifying a snapshot later detects fields and
// relation names that changed since.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/goaux/stacktrace/v2"
	"github.com/takumakei/modelsnap-go/execpipe"
	"github.com/takumakei/modelsnap-go/populate"
	"github.com/takumakei/modelsnap-go/schema"
	"go.uber.org/zap"
)

// DefaultFolder is the snapshot folder used when none is given.
const DefaultFolder = "testdata/snapshots"

// Manager manages the snapshot of one model type.
type Manager struct {
	modelType         reflect.Type
	typeName          string
	folder            string
	snapshotFile      string
	relationNamesFile string

	log       *zap.Logger
	populator *populate.Populator
	formatter []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithFolder sets the snapshot folder.
func WithFolder(folder string) Option {
	return func(m *Manager) {
		m.folder = folder
	}
}

// WithLogger sets the logger that receives verification failures.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithPopulator sets the populator used by Create.
func WithPopulator(p *populate.Populator) Option {
	return func(m *Manager) {
		m.populator = p
	}
}

// WithFormatter pipes every written file through the external command name.
func WithFormatter(name string, args ...string) Option {
	return func(m *Manager) {
		m.formatter = append([]string{name}, args...)
	}
}

// New returns a Manager for the model type t.
func New(t reflect.Type, opts ...Option) *Manager {
	t = schema.Indirect(t)
	m := &Manager{
		modelType: t,
		typeName:  schema.TypeName(t),
		folder:    DefaultFolder,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.populator == nil {
		m.populator = populate.New()
	}
	m.snapshotFile = filepath.Join(m.folder, fmt.Sprintf("%s.json", m.typeName))
	m.relationNamesFile = filepath.Join(m.folder, fmt.Sprintf("%s-relation-names.json", m.typeName))
	m.log = m.log.With(zap.String("model", m.typeName))
	return m
}

// For returns a Manager for the model type T.
func For[T any](opts ...Option) *Manager {
	return New(reflect.TypeFor[T](), opts...)
}

func (m *Manager) ModelType() reflect.Type { return m.modelType }
func (m *Manager) TypeName() string { return m.typeName }
func (m *Manager) Folder() string { return m.folder }
func (m *Manager) SnapshotFile() string { return m.snapshotFile }
func (m *Manager) RelationNamesFile() string { return m.relationNamesFile }

// SnapshotFolderExists reports whether the snapshot folder is a directory.
func (m *Manager) SnapshotFolderExists() bool {
	return FolderExists(m.folder)
}

// Exists reports whether the snapshot file exists.
func (m *Manager) Exists() bool {
	fi, err := os.Stat(m.snapshotFile)
	return err == nil && fi.Mode().IsRegular()
}

// CleanSnapshotFolder removes everything inside the snapshot folder.
func (m *Manager) CleanSnapshotFolder() error {
	return CleanFolder(m.folder)
}

// FolderExists reports whether folder is a directory.
func FolderExists(folder string) bool {
	fi, err := os.Stat(folder)
	return err == nil && fi.IsDir()
}

// CleanFolder removes every entry of folder but keeps folder itself.
// A missing folder is not an error.
func CleanFolder(folder string) error {
	if !FolderExists(folder) {
		return nil
	}
	entries, err := stacktrace.Trace2(os.ReadDir(folder))
	if err != nil {
		return fmt.Errorf("clean snapshot folder (%s): %w", folder, err)
	}
	for _, e := range entries {
		if err := stacktrace.Trace(os.RemoveAll(filepath.Join(folder, e.Name()))); err != nil {
			return fmt.Errorf("clean snapshot folder (%s): %w", folder, err)
		}
	}
	return nil
}

// Create writes a new snapshot and relation names file, replacing any
// previous ones.
func (m *Manager) Create() error {
	if err := m.createSnapshotFolder(); err != nil {
		return err
	}
	if err := m.createSnapshotJSON(); err != nil {
		return err
	}
	return m.createRelationNamesJSON()
}

func (m *Manager) createSnapshotFolder() error {
	if m.SnapshotFolderExists() {
		return nil
	}
	if err := stacktrace.Trace(os.MkdirAll(m.folder, 0o755)); err != nil {
		return fmt.Errorf("create snapshot folder (%s): %w", m.folder, err)
	}
	m.log.Info("snapshot folder created", zap.String("folder", m.folder))
	return nil
}

func (m *Manager) createSnapshotJSON() error {
	name := filepath.Base(m.snapshotFile)
	v, err := m.populator.Value(m.modelType)
	if err != nil {
		return fmt.Errorf("populate snapshot (%s): %w", name, err)
	}
	if err := m.writeJSON(m.snapshotFile, v.Interface()); err != nil {
		return fmt.Errorf("write snapshot json file (%s): %w", name, err)
	}
	return nil
}

func (m *Manager) createRelationNamesJSON() error {
	if err := m.writeJSON(m.relationNamesFile, schema.RelationNames(m.modelType)); err != nil {
		return fmt.Errorf("write relation names json file (%s): %w", filepath.Base(m.relationNamesFile), err)
	}
	return nil
}

func (m *Manager) writeJSON(path string, v any) error {
	data, err := stacktrace.Trace2(json.MarshalIndent(v, "", "  "))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if len(m.formatter) > 0 {
		out := new(bytes.Buffer)
		if err := execpipe.Run(out, bytes.NewReader(data), m.formatter[0], m.formatter[1:]...); err != nil {
			return err
		}
		data = out.Bytes()
	}
	return stacktrace.Trace(os.WriteFile(path, data, 0o644))
}
