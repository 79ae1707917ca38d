package snapshot

import (
	"fmt"
	"strings"
)

type MismatchKind int

const (
	NullProperty MismatchKind = iota + 1
	OnlyInModel
	OnlyInSnapshot
)

func (k MismatchKind) String() string {
	switch k {
	case NullProperty:
		return "property value is null"
	case OnlyInModel:
		return "relation names in model and not in snapshot"
	case OnlyInSnapshot:
		return "relation names in snapshot and not in model"
	}
	return fmt.Sprintf("MismatchKind(%d)", int(k))
}

func (k MismatchKind) key() string {
	switch k {
	case NullProperty:
		return "null_properties"
	case OnlyInModel:
		return "only_in_model"
	case OnlyInSnapshot:
		return "only_in_snapshot"
	}
	return "mismatches"
}

// Mismatch is one difference between a model type and its snapshot.
type Mismatch struct {
	Kind MismatchKind
	Name string
}

// Report is the outcome of a verification. Err is set when the files could
// not be read; Mismatches lists the drift found otherwise.
type Report struct {
	Model      string
	File       string
	Mismatches []Mismatch
	Err        error
}

func (r Report) OK() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// Names returns the names of the mismatches of kind k.
func (r Report) Names(k MismatchKind) []string {
	var names []string
	for _, m := range r.Mismatches {
		if m.Kind == k {
			names = append(names, m.Name)
		}
	}
	return names
}

func (r Report) String() string {
	if r.OK() {
		return r.Model + ": ok"
	}
	var b strings.Builder
	b.WriteString(r.Model)
	b.WriteString(": test failed")
	if r.Err != nil {
		fmt.Fprintf(&b, "\n - %v", r.Err)
		return b.String()
	}
	for _, k := range []MismatchKind{NullProperty, OnlyInModel, OnlyInSnapshot} {
		if names := r.Names(k); len(names) > 0 {
			fmt.Fprintf(&b, "\n - %s: %v", k, names)
		}
	}
	return b.String()
}
