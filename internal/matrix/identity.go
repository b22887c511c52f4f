// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package matrix

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"github.com/specialistvlad/ptm/internal/buildinfo"
)

// IDLength is the number of hex characters kept from the digest.
const IDLength = 12

// Identity computes the content hash of a run.
//
// Fields are written length-prefixed in a fixed order: the tool version,
// the strategy, the interpreter, every dependency in declared order, then
// the sorted non-internal setenv pairs, groups, extras and deduplicated
// marker strings. Tags are not part of the identity.
func Identity(r *Run) string {
	h := sha256.New()
	w := fieldWriter{h: h}

	w.field("version=" + buildinfo.Version)
	w.field("strategy=" + string(r.Properties.Strategy))
	w.field("python=" + r.Python)

	deps := make([]string, len(r.Dependencies))
	for i, d := range r.Dependencies {
		deps[i] = d.String()
	}
	w.section("deps", deps)

	var env []string
	for k, v := range r.Properties.Setenv {
		if strings.HasPrefix(k, InternalEnvPrefix) {
			continue
		}
		env = append(env, k+"="+v)
	}
	w.section("env", sortedSet(env))
	w.section("groups", sortedSet(r.Properties.Groups))
	w.section("extras", sortedSet(r.Properties.Extras))

	markers := make([]string, len(r.Properties.Markers))
	for i, m := range r.Properties.Markers {
		markers[i] = m.String()
	}
	w.section("markers", sortedSet(markers))

	return hex.EncodeToString(h.Sum(nil))[:IDLength]
}

type fieldWriter struct {
	h hash.Hash
}

func (w fieldWriter) field(s string) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(s)))
	w.h.Write(prefix[:])
	w.h.Write([]byte(s))
}

// section writes a label and an element count ahead of the elements so that
// moving a value between sections changes the digest.
func (w fieldWriter) section(label string, values []string) {
	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(values)))
	w.field(label + "=")
	w.h.Write(count[:])
	for _, v := range values {
		w.field(v)
	}
}

func sortedSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
